// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpatch

import (
	"fmt"
	"io"
)

// reader is a paged read cache over a stream. The logical position pos may
// be moved freely, the page containing pos is loaded on demand.
type reader struct {
	s        Stream
	buf      []byte
	page     int64 // stream offset of buf[0]
	n        int   // valid bytes in buf
	pos      int64
	size     int64 // used to report progress
	progress func(percent uint8)
	last     int
}

func (r *reader) getc() (byte, error) {
	if r.pos < r.page || r.pos >= r.page+int64(r.n) {
		if err := r.load(); err != nil {
			return 0, err
		}
	}
	b := r.buf[r.pos-r.page]
	r.pos++
	return b, nil
}

func (r *reader) load() error {
	size := int64(len(r.buf))
	page := r.pos / size * size
	r.n = 0
	r.page = page
	if _, err := r.s.Seek(page, io.SeekStart); err != nil {
		// positioned past the end of stream
		return io.EOF
	}
	if t := r.s.Tell(); t != page {
		return fmt.Errorf("stream at %d after seek to %d", t, page)
	}
	n, err := io.ReadFull(r.s, r.buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	r.n = n
	if err != nil && err != io.EOF {
		return err
	}
	if r.pos >= page+int64(n) {
		return io.EOF
	}
	if r.progress != nil && r.size > 0 {
		if pc := int(page * 100 / r.size); pc != r.last {
			r.last = pc
			r.progress(uint8(pc))
		}
	}
	return nil
}

// writer buffers the sequentially written target.
type writer struct {
	s   Stream
	buf []byte
}

func (w *writer) putc(b byte) error {
	w.buf = append(w.buf, b)
	if len(w.buf) == cap(w.buf) {
		return w.flush()
	}
	return nil
}

func (w *writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.s.Write(w.buf)
	if err == nil && n != len(w.buf) {
		err = io.ErrShortWrite
	}
	w.buf = w.buf[:0]
	return err
}
