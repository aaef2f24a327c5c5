// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jpatch applies JojoDiff binary patches using three fixed-size
// buffers, so an image of any size can be patched in a few hundred bytes of
// RAM.
//
// A patch is a sequence of operations, each introduced by ESC (0xA7):
//
//	ESC MOD data  replace source bytes with data
//	ESC INS data  insert data, the source does not advance
//	ESC DEL len   skip len source bytes
//	ESC EQL len   copy len source bytes
//	ESC BKT len   move the source back by len bytes
//
// An ESC byte inside data is written as ESC ESC. An ESC followed by a byte
// that is not an operation code is data too.
package jpatch

import (
	"errors"
	"fmt"
	"io"
)

// Operation codes.
const (
	ESC = 0xA7
	MOD = 0xA6
	INS = 0xA5
	DEL = 0xA4
	EQL = 0xA3
	BKT = 0xA2
)

// Stream is a seekable file like object. Patching reads the source and
// patch streams and writes the target stream sequentially.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	Tell() int64
}

// Context holds the working buffers. Each buffer must be non-empty; the
// target buffer is written out whenever it fills up, so its length is the
// unit of every target write except the last one.
type Context struct {
	SourceBuf []byte
	PatchBuf  []byte
	TargetBuf []byte

	// Progress, if not nil, is called with the percentage of the patch
	// consumed so far.
	Progress func(percent uint8)
}

type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "jpatch: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, errp *error) {
	if *errp != nil {
		*errp = &Error{op, *errp}
	}
}

var (
	ErrFormat    = errors.New("malformed patch")
	ErrTruncated = errors.New("unexpected end of patch")
	ErrSource    = errors.New("read past the end of source")
)

// Apply applies patch to source and writes the result to target.
func Apply(ctx *Context, source, patch, target Stream) (err error) {
	defer wrapErr("apply", &err)
	if len(ctx.SourceBuf) == 0 || len(ctx.PatchBuf) == 0 || len(ctx.TargetBuf) == 0 {
		return errors.New("empty buffer")
	}
	psize, err := patch.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	p := &patcher{
		src: reader{s: source, buf: ctx.SourceBuf},
		pat: reader{s: patch, buf: ctx.PatchBuf, size: psize, progress: ctx.Progress},
		dst: writer{s: target, buf: ctx.TargetBuf[:0:len(ctx.TargetBuf)]},
	}
	p.src.pos = source.Tell()
	if err = p.run(); err != nil {
		return err
	}
	if err = p.dst.flush(); err != nil {
		return err
	}
	if ctx.Progress != nil {
		ctx.Progress(100)
	}
	return nil
}

type patcher struct {
	src reader
	pat reader
	dst writer
}

func (p *patcher) run() error {
	for {
		c, err := p.pat.getc()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c != ESC {
			return fmt.Errorf("%w: %#02x at %d, want ESC", ErrFormat, c, p.pat.pos-1)
		}
		op, err := p.pat.getc()
		if err != nil {
			return truncated(err)
		}
		switch op {
		case EQL:
			n, err := p.length()
			if err != nil {
				return err
			}
			for ; n > 0; n-- {
				b, err := p.src.getc()
				if err == io.EOF {
					return ErrSource
				}
				if err != nil {
					return err
				}
				if err = p.dst.putc(b); err != nil {
					return err
				}
			}
		case MOD, INS:
			if err := p.data(op == MOD); err != nil {
				return err
			}
		case DEL:
			n, err := p.length()
			if err != nil {
				return err
			}
			p.src.pos += n
		case BKT:
			n, err := p.length()
			if err != nil {
				return err
			}
			if n > p.src.pos {
				return fmt.Errorf("%w: BKT %d before the start of source", ErrFormat, n)
			}
			p.src.pos -= n
		default:
			return fmt.Errorf("%w: unknown operation %#02x", ErrFormat, op)
		}
	}
}

// data copies MOD or INS data up to the next operation.
func (p *patcher) data(mod bool) error {
	put := func(b byte) error {
		if mod {
			p.src.pos++
		}
		return p.dst.putc(b)
	}
	for {
		c, err := p.pat.getc()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c == ESC {
			c2, err := p.pat.getc()
			switch {
			case err == io.EOF:
				return put(c)
			case err != nil:
				return err
			case c2 == ESC:
			case BKT <= c2 && c2 <= MOD:
				p.pat.pos -= 2
				return nil
			default:
				p.pat.pos--
			}
		}
		if err = put(c); err != nil {
			return err
		}
	}
}

// length decodes the 1 to 5 byte length of EQL, DEL and BKT.
func (p *patcher) length() (int64, error) {
	l, err := p.pat.getc()
	if err != nil {
		return 0, truncated(err)
	}
	var n int
	switch {
	case l < 252:
		return int64(l) + 1, nil
	case l == 252:
		b, err := p.pat.getc()
		if err != nil {
			return 0, truncated(err)
		}
		return int64(b) + 253, nil
	case l == 253:
		n = 2
	case l == 254:
		n = 4
	default:
		return 0, fmt.Errorf("%w: bad length prefix %#02x", ErrFormat, l)
	}
	var v int64
	for ; n > 0; n-- {
		b, err := p.pat.getc()
		if err != nil {
			return 0, truncated(err)
		}
		v = v<<8 | int64(b)
	}
	return v, nil
}

func truncated(err error) error {
	if err == io.EOF {
		return ErrTruncated
	}
	return err
}
