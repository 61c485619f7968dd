// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/grailbio/filemanager/log"
	"github.com/grailbio/testutil/expect"
)

type testOutputter struct {
	level    log.Level
	messages map[log.Level][]string
}

func newTestOutputter(level log.Level) *testOutputter {
	return &testOutputter{level, make(map[log.Level][]string)}
}

func (t *testOutputter) Next(level log.Level) string {
	if len(t.messages[level]) == 0 {
		return ""
	}
	var m string
	m, t.messages[level] = t.messages[level][0], t.messages[level][1:]
	return m
}

func (t *testOutputter) Level() log.Level {
	return t.level
}

func (t *testOutputter) Output(calldepth int, level log.Level, s string) error {
	t.messages[level] = append(t.messages[level], s)
	return nil
}

func TestLog(t *testing.T) {
	out := newTestOutputter(log.Info)
	defer log.SetOutputter(log.SetOutputter(out))
	log.Printf("hello %q", "world")
	expect.EQ(t, out.Next(log.Info), `hello "world"`)
	log.Error.Print(1, 2, 3)
	expect.EQ(t, out.Next(log.Error), "1 2 3")
	log.Debug.Print("x")
	expect.EQ(t, out.Next(log.Debug), "")
}

func TestParseLevel(t *testing.T) {
	for _, l := range []log.Level{log.Off, log.Error, log.Info, log.Debug} {
		got, err := log.ParseLevel(l.String())
		expect.NoError(t, err)
		expect.EQ(t, got, l)
	}
	_, err := log.ParseLevel("loud")
	expect.HasSubstr(t, err.Error(), "invalid log level")
}

func TestZerologLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	log.SetLevel(log.Debug)
	defer log.SetLevel(log.Info)
	log.Debug.Printf("commit %d", 3)
	expect.EQ(t, buf.String(), `{"level":"debug","message":"commit 3"}`+"\n")
}

func ExampleSetOutput() {
	log.SetOutput(os.Stdout)
	log.Print("hello, world!")
	log.Error.Print("hello from error")
	log.Debug.Print("invisible")

	// Output:
	// {"level":"info","message":"hello, world!"}
	// {"level":"error","message":"hello from error"}
}
