// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		msg  string
		kv   []any
		want string
	}{
		{"boot", nil, "boot"},
		{"update", []any{"addr", uint32(0x08020000), "type", "plain"}, "update addr=0x8020000 type=plain"},
		{"odd", []any{"k", 1, "dangling"}, "odd k=1 dangling"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := format(tt.msg, tt.kv); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := &Progress{W: &buf, Pre: "patch", Post: "%"}
	p.Percent(50)
	if s := buf.String(); strings.HasSuffix(s, "\n") || !strings.Contains(s, "50 %") {
		t.Errorf("unexpected line %q", s)
	}
	buf.Reset()
	p.Percent(100)
	if s := buf.String(); !strings.HasSuffix(s, "100 %\n") {
		t.Errorf("unexpected line %q", s)
	}
}

func TestOutFile(t *testing.T) {
	tests := []struct{ in, out, want string }{
		{"update.bin", "", "update.hex"},
		{"dir/fw", "", "dir/fw.hex"},
		{"a.b/fw.bin", "x.hex", "x.hex"},
	}
	for _, tt := range tests {
		if got := OutFile(tt.in, tt.out, ".hex"); got != tt.want {
			t.Errorf("OutFile(%q, %q): got %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}
