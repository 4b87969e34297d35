/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// subsystemLogger is a logger bound to one subsystem of its AppLogger
type subsystemLogger struct {
	name   string
	logger *AppLogger
}

// Logf for a subsystem logger is just a wrap for the Logf of its AppLogger, giving its only name
func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.name, format, v...)
}

// AppLogger hands out one named zap logger per subsystem (storage, messaging, http...).
// It's safe to share amongst goroutines.
type AppLogger struct {
	base *zap.Logger

	lock       sync.RWMutex
	subsystems map[string]*zap.SugaredLogger

	enabled atomic.Bool
}

// NewAppLogger builds a zap production (or development) logger and wraps it.
func NewAppLogger(logging, development bool) (*AppLogger, error) {
	var base *zap.Logger
	var err error
	if development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return NewAppLoggerFromZap(base, logging), nil
}

// NewAppLoggerFromZap wraps an already built zap logger.
func NewAppLoggerFromZap(base *zap.Logger, logging bool) *AppLogger {
	n := &AppLogger{
		base:       base,
		subsystems: make(map[string]*zap.SugaredLogger),
	}
	n.enabled.Store(logging)
	return n
}

// RegisterSubsystem registers a new subsystem, returning a Logger whose entries are named after it.
// Registering the same name twice returns a logger for the existing subsystem.
func (n *AppLogger) RegisterSubsystem(name string) Logger {
	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.subsystems[name]; !ok {
		n.subsystems[name] = n.base.Named(name).Sugar()
	}
	return &subsystemLogger{name, n}
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registered.
func (n *AppLogger) GetSubsystemLogger(name string) (Logger, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if _, ok := n.subsystems[name]; !ok {
		return nil, fmt.Errorf("The subsystem %s was not registered", name)
	}
	return &subsystemLogger{name, n}, nil
}

// EnableLogging enables the logging done by this logger
func (n *AppLogger) EnableLogging() { n.enabled.Store(true) }

// DisableLogging disables the logging done by this logger
func (n *AppLogger) DisableLogging() { n.enabled.Store(false) }

// Logf writes an info entry on the logger of subsystem name.
// Entries for unregistered subsystems are dropped.
func (n *AppLogger) Logf(name, format string, v ...any) {
	if !n.enabled.Load() {
		return
	}
	n.lock.RLock()
	sugar, ok := n.subsystems[name]
	n.lock.RUnlock()
	if ok {
		sugar.Infof(format, v...)
	}
}

// Sync flushes buffered entries, to be called before the process exits.
func (n *AppLogger) Sync() error {
	return n.base.Sync()
}
