// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package tsv reads delimited text (comma- or tab-separated values) as
// records keyed by the names in the header row.
//
// Rows need not have as many fields as the header. The reader applies one
// policy to every row:
//
//   - a short row yields a record without the keys of its missing fields;
//   - a long row yields a record whose extra fields are collected, in order,
//     as a []string under Options.OverflowKey.
//
// Thus the header a,b,c and the row 1,2 yield {a:"1", b:"2"}, and the row
// 1,2,3,4 yields {a:"1", b:"2", c:"3", _extra:["4"]}.
package tsv
