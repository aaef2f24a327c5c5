// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"github.com/embeddedgo/boot/staging"
	"github.com/embeddedgo/boot/update"
)

// Logger is the logging interface of the bootloader.
type Logger = update.Logger

// Config holds the optional bootloader settings.
type Config struct {
	Logger        Logger
	Authenticator staging.Authenticator
	PageBuffer    int // staging buffer size in pages
}

// Option configures the bootloader.
type Option func(*Config)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithAuthenticator replaces the SHA-256 check of staged updates. A nil
// authenticator accepts updates without a hash.
func WithAuthenticator(a staging.Authenticator) Option {
	return func(c *Config) { c.Authenticator = a }
}

// WithPageBuffer sets the size of the installer staging buffer in pages.
func WithPageBuffer(pages int) Option {
	return func(c *Config) {
		if pages > 0 {
			c.PageBuffer = pages
		}
	}
}

func defaultConfig() Config {
	return Config{
		Logger:        update.NopLogger,
		Authenticator: staging.SHA256{},
		PageBuffer:    1,
	}
}
