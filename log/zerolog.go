// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log

import (
	"flag"
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	level       = Info
	flagsCalled int32
)

// AddFlags adds a standard log level flag to the flag.CommandLine
// flag set.
func AddFlags() {
	if atomic.AddInt32(&flagsCalled, 1) != 1 {
		Error.Printf("log.AddFlags: called twice!")
		return
	}
	flag.Var(new(logFlag), "log", "set log level (off, error, info, debug)")
}

// SetLevel sets the level of the default outputter. It should be called
// once at the beginning of a program's main.
func SetLevel(l Level) {
	level = l
}

// SetOutput directs the default outputter to w. Lines written to w are
// JSON objects carrying "level" and "message" fields.
func SetOutput(w io.Writer) {
	if z, ok := out.(*zerologOutputter); ok {
		z.logger = zerolog.New(w)
	}
}

type logFlag string

func (f logFlag) String() string {
	return string(f)
}

func (f *logFlag) Set(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level = l
	return nil
}

// Get implements flag.Getter.
func (logFlag) Get() interface{} {
	return level
}

type zerologOutputter struct {
	logger zerolog.Logger
}

// newZerologOutputter returns an outputter writing to w, or a
// human-readable console on stderr if w is nil.
func newZerologOutputter(w io.Writer) *zerologOutputter {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02T15:04:05.000"}
		return &zerologOutputter{zerolog.New(w).With().Timestamp().Logger()}
	}
	return &zerologOutputter{zerolog.New(w)}
}

func (*zerologOutputter) Level() Level { return level }

func (z *zerologOutputter) Output(_ int, l Level, s string) error {
	if level < l {
		return nil
	}
	var zl zerolog.Level
	switch {
	case l <= Error:
		zl = zerolog.ErrorLevel
	case l == Info:
		zl = zerolog.InfoLevel
	default:
		zl = zerolog.DebugLevel
	}
	z.logger.WithLevel(zl).Msg(s)
	return nil
}
