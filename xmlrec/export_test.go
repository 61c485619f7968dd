// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package xmlrec

// HeldBytes returns the number of input bytes r keeps in memory.
func HeldBytes(r *Reader) int { return len(r.src.buf) }
