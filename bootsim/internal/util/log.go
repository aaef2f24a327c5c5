// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// Glog logs through github.com/golang/glog. Debug messages need -v=2.
type Glog struct{}

func format(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		sb.WriteByte(' ')
		if i+1 == len(kv) {
			fmt.Fprintf(&sb, "%v", kv[i])
			break
		}
		switch v := kv[i+1].(type) {
		case uint32:
			fmt.Fprintf(&sb, "%v=%#x", kv[i], v)
		default:
			fmt.Fprintf(&sb, "%v=%v", kv[i], v)
		}
	}
	return sb.String()
}

func (Glog) Debug(msg string, kv ...any) {
	if glog.V(2) {
		glog.InfoDepth(1, format(msg, kv))
	}
}

func (Glog) Info(msg string, kv ...any) {
	glog.InfoDepth(1, format(msg, kv))
}

func (Glog) Error(msg string, kv ...any) {
	glog.ErrorDepth(1, format(msg, kv))
}
