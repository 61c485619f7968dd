// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lineio_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/lineio"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func scanAll(t *testing.T, s lineio.Scanner) []interface{} {
	t.Helper()
	var recs []interface{}
	for s.Scan() {
		recs = append(recs, s.Record())
	}
	assert.NoError(t, s.Err())
	return recs
}

func TestReader(t *testing.T) {
	for _, test := range []struct {
		in   string
		want []interface{}
	}{
		{"", nil},
		{"a", []interface{}{"a"}},
		{"a\n", []interface{}{"a\n"}},
		{"a\n\nb\r\nc", []interface{}{"a\n", "\n", "b\r\n", "c"}},
	} {
		expect.EQ(t, scanAll(t, lineio.NewReader(strings.NewReader(test.in))), test.want, test.in)
	}
}

func TestReaderEndIsFinal(t *testing.T) {
	r := lineio.NewReader(strings.NewReader("x\n"))
	assert.True(t, r.Scan())
	expect.EQ(t, r.LineNumber(), 1)
	for i := 0; i < 3; i++ {
		assert.False(t, r.Scan())
	}
	assert.NoError(t, r.Err())
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		r.n++
		return copy(p, "first\nsec"), nil
	}
	return 0, fmt.Errorf("disk on fire")
}

func TestReaderError(t *testing.T) {
	r := lineio.NewReader(&failingReader{})
	assert.True(t, r.Scan())
	expect.EQ(t, r.Record(), "first\n")
	assert.False(t, r.Scan())
	expect.HasSubstr(t, r.Err().Error(), "disk on fire")
	expect.HasSubstr(t, r.Err().Error(), "line 2")
}

func TestJSONReader(t *testing.T) {
	in := `{"a": 1, "b": [true, null, "x"]}
[1, 2]
"str"
3.5
1e3
-7
18446744073709551616
`
	got := scanAll(t, lineio.NewJSONReader(strings.NewReader(in)))
	expect.EQ(t, got, []interface{}{
		map[string]interface{}{"a": int64(1), "b": []interface{}{true, nil, "x"}},
		[]interface{}{int64(1), int64(2)},
		"str",
		3.5,
		1000.0,
		int64(-7),
		18446744073709551616.0,
	})
}

func TestJSONLargeIntegers(t *testing.T) {
	var buf bytes.Buffer
	w := lineio.NewJSONWriter(&buf)
	want := []interface{}{
		map[string]interface{}{"id": int64(9007199254740993)},
		map[string]interface{}{"id": int64(-9223372036854775808), "ids": []interface{}{int64(9223372036854775807)}},
	}
	for _, rec := range want {
		assert.NoError(t, w.Write(rec))
	}
	assert.NoError(t, w.Commit())
	expect.EQ(t, scanAll(t, lineio.NewJSONReader(&buf)), want)
}

func TestJSONReaderMalformed(t *testing.T) {
	in := "{\"a\": 1}\n{\"a\": 2}\n{\"a\": \n{\"a\": 4}\n"
	r := lineio.NewJSONReader(strings.NewReader(in))
	var got []interface{}
	for r.Scan() {
		got = append(got, r.Record())
	}
	expect.EQ(t, got, []interface{}{
		map[string]interface{}{"a": int64(1)},
		map[string]interface{}{"a": int64(2)},
	})
	assert.True(t, errors.Is(errors.MalformedRecord, r.Err()))
	expect.HasSubstr(t, r.Err().Error(), "line 3")
	assert.False(t, r.Scan())
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := lineio.NewWriter(&buf)
	assert.NoError(t, w.Write("a\n"))
	assert.NoError(t, w.Write([]byte("b")))
	assert.NoError(t, w.Write("c\n"))
	assert.NoError(t, w.Commit())
	expect.EQ(t, buf.String(), "a\nbc\n")
	err := w.Write(42)
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestJSONRoundTrip(t *testing.T) {
	const n = 1000
	var (
		buf  bytes.Buffer
		want []interface{}
	)
	w := lineio.NewJSONWriter(&buf)
	for i := 0; i < n; i++ {
		rec := map[string]interface{}{
			"id":    int64(i),
			"name":  fmt.Sprintf("record %d", i),
			"even":  i%2 == 0,
			"score": float64(i) + 0.5,
			"tags":  []interface{}{"x", int64(i % 7)},
			"empty": nil,
		}
		assert.NoError(t, w.Write(rec))
		want = append(want, rec)
	}
	assert.NoError(t, w.Write(`{"id": "raw"}`+"\n"))
	want = append(want, map[string]interface{}{"id": "raw"})
	assert.NoError(t, w.Commit())

	got := scanAll(t, lineio.NewJSONReader(&buf))
	assert.EQ(t, len(got), n+1)
	expect.EQ(t, got, want)
}
