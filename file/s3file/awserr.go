// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	goerrors "errors"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/grailbio/filemanager/errors"
)

// retryable tells whether err is a throttling or server-side failure
// that may succeed when the request is reissued.
func retryable(err error) bool {
	var aerr awserr.Error
	if !goerrors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case "SlowDown", "Throttling", "ThrottlingException", "RequestTimeout",
		"InternalError", "ServiceUnavailable", "RequestError":
		return true
	}
	var rerr awserr.RequestFailure
	if goerrors.As(err, &rerr) {
		return rerr.StatusCode() >= 500
	}
	return false
}

// annotate interprets err as an AWS request error and returns a version of it
// annotated with a kind from the errors package. The args are passed to
// errors.E.
func annotate(err error, args ...interface{}) error {
	var aerr awserr.Error
	if !goerrors.As(err, &aerr) {
		return errors.E(append(args, err)...)
	}
	var kind errors.Kind
	switch aerr.Code() {
	// Code NotFound is not documented, but it's what HEAD actually returns.
	case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NoSuchVersion", "NotFound":
		kind = errors.NotExist
	case "AccessDenied", "Forbidden":
		kind = errors.NotAllowed
	case "InvalidRequest", "InvalidArgument", "KeyTooLong", "MethodNotAllowed":
		kind = errors.Invalid
	case "PreconditionFailed":
		kind = errors.Precondition
	case "RequestCanceled":
		kind = errors.Canceled
	default:
		return errors.E(append(args, err)...)
	}
	return errors.E(append(args, kind, err)...)
}
