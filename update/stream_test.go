// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package update_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/embeddedgo/boot/update"
)

func TestStreamRead(t *testing.T) {
	e := newEnv(t, layout, 1)
	data := random(64, 6)
	e.poke(t, upAddr, data)
	s := update.NewStream(e.d, upAddr+1, 50)

	b, err := io.ReadAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[1:51]) {
		t.Errorf("got %x", b)
	}
	if n, err := s.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("read at end: %d, %v", n, err)
	}
	if _, err := s.Write([]byte{1}); err != update.ErrReadOnly {
		t.Errorf("write: %v", err)
	}
}

func TestStreamSeek(t *testing.T) {
	e := newEnv(t, layout, 1)
	s := update.NewStream(e.d, upAddr, 100)
	tests := []struct {
		off    int64
		whence int
		want   int64
		err    error
	}{
		{10, io.SeekStart, 10, nil},
		{5, io.SeekCurrent, 15, nil},
		{-1, io.SeekEnd, 99, nil},
		{0, io.SeekEnd, 100, nil},
		{1, io.SeekEnd, 100, update.ErrSeek},
		{-101, io.SeekCurrent, 100, update.ErrSeek},
		{-100, io.SeekCurrent, 0, nil},
		{0, 7, 0, update.ErrSeek},
	}
	for i, tt := range tests {
		got, err := s.Seek(tt.off, tt.whence)
		if got != tt.want || err != tt.err {
			t.Errorf("%d: got %d, %v, want %d, %v", i, got, err, tt.want, tt.err)
		}
		if s.Tell() != tt.want {
			t.Errorf("%d: tell %d", i, s.Tell())
		}
	}
}

func TestFlashStreamWrite(t *testing.T) {
	e := newEnv(t, layout, 1)
	e.poke(t, scratchBase, bytes.Repeat([]byte{0x55}, 512))
	s := update.NewFlashStream(e.d, e.eng, scratchBase, 300)
	data := random(400, 7)

	if n, err := s.Write(data[:128]); n != 128 || err != nil {
		t.Fatalf("write: %d, %v", n, err)
	}
	if n, err := s.Write(data[128:]); n != 172 || err != nil {
		t.Fatalf("write: %d, %v", n, err)
	}
	if s.Tell() != 300 {
		t.Errorf("tell %d", s.Tell())
	}
	if got := e.peek(t, scratchBase, 300); !bytes.Equal(got, data[:300]) {
		t.Error("data differs")
	}
	if pad := e.peek(t, scratchBase+300, 84); !bytes.Equal(pad, make([]byte, 84)) {
		t.Errorf("page not zero padded: %x", pad)
	}
	if rest := e.peek(t, scratchBase+384, 128); !bytes.Equal(rest, bytes.Repeat([]byte{0x55}, 128)) {
		t.Error("next page modified")
	}
	if !e.eng.Locked() || !e.d.Locked() {
		t.Error("controller left unlocked")
	}

	s.Seek(10, io.SeekStart)
	if _, err := s.Write(data[:4]); err != update.ErrAlign {
		t.Errorf("unaligned write: %v", err)
	}
}
