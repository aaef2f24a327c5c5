// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func Warn(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
}

// FatalErr prints an error description and exits the program if the
// err != nil.
func FatalErr(what string, err error) {
	if err == nil {
		return
	}
	s := err.Error() + "\n"
	if what != "" {
		s = what + ": " + s
	}
	os.Stderr.WriteString(s)
	os.Exit(1)
}

// OutFile returns outName or, if it is empty, inName with its extension
// replaced by outSuffix.
func OutFile(inName, outName, outSuffix string) string {
	if outName != "" {
		return outName
	}
	return strings.TrimSuffix(inName, filepath.Ext(inName)) + outSuffix
}

const (
	ptodo = "                         ] "
	pdone = " [========================="
)

// Progress draws a progress bar.
type Progress struct {
	W    io.Writer
	Pre  string
	Post string
	buf  []byte
}

// Set draws the bar for cur of max. The line is finished when cur == max.
func (p *Progress) Set(cur, max int) {
	if max <= 0 {
		return
	}
	cur = min(cur, max)
	b := append(p.buf[:0], '\r')
	b = append(b, p.Pre...)
	done := 25 * cur / max
	b = append(b, pdone[:2+done]...)
	b = append(b, ptodo[done:]...)
	b = strconv.AppendInt(b, int64(cur), 10)
	b = append(b, ' ')
	b = append(b, p.Post...)
	if cur == max {
		b = append(b, '\n')
	}
	p.buf = b
	p.W.Write(b)
}

// Percent is Set(percent, 100), usable as a progress callback.
func (p *Progress) Percent(percent uint8) {
	p.Set(int(percent), 100)
}
