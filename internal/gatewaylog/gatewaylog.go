// Package gatewaylog adapts the gateway's ambient logging needs onto
// github.com/pion/logging's leveled-logger seam (loggerFactory.NewLogger("scope")).
//
// The buffered, disk-backed logger sink lives outside this module; this
// package only defines the interface subsystems are constructed with and
// a couple of small, dependency-free adapters so the core is testable
// without that sink present.
package gatewaylog

import (
	"sync"
	"time"

	"github.com/pion/logging"
)

// Factory is the seam every subsystem constructor accepts, matching
// pion/logging.LoggerFactory exactly so a caller can hand the core a
// real pion logging.DefaultLoggerFactory, a zerolog-backed factory (see
// cmd/gatewayd), or NewNopFactory for tests.
type Factory = logging.LoggerFactory

// Logger is the per-component leveled logger subsystems log through.
type Logger = logging.LeveledLogger

// NewNopFactory returns a factory whose loggers discard everything,
// for use in unit tests that don't want log noise.
func NewNopFactory() Factory {
	return nopFactory{}
}

type nopFactory struct{}

func (nopFactory) NewLogger(string) Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Trace(string)                  {}
func (nopLogger) Tracef(string, ...interface{}) {}
func (nopLogger) Debug(string)                  {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Info(string)                   {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warn(string)                   {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Error(string)                  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Flood guards a repeated, identical warn/error condition from spamming
// the log, mirroring janus_ice_stream's noerrorlog flag: the first
// occurrence of a keyed condition logs, subsequent ones within the
// window are suppressed until Clear is called or the window elapses.
type Flood struct {
	log    Logger
	window time.Duration

	mu       sync.Mutex
	lastLogged map[string]time.Time
}

// NewFlood builds a flood guard around log, suppressing repeats of the
// same key within window.
func NewFlood(log Logger, window time.Duration) *Flood {
	return &Flood{log: log, window: window, lastLogged: make(map[string]time.Time)}
}

// Warnf logs at most once per window for a given key.
func (f *Flood) Warnf(key, format string, args ...interface{}) {
	if !f.allow(key) {
		return
	}
	f.log.Warnf(format, args...)
}

// Errorf logs at most once per window for a given key.
func (f *Flood) Errorf(key, format string, args ...interface{}) {
	if !f.allow(key) {
		return
	}
	f.log.Errorf(format, args...)
}

// Clear drops the suppression state for key, so the next occurrence
// logs immediately. Callers invoke this once the underlying condition
// is confirmed resolved (e.g. SRTP unprotect succeeds again).
func (f *Flood) Clear(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lastLogged, key)
}

func (f *Flood) allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if last, ok := f.lastLogged[key]; ok && now.Sub(last) < f.window {
		return false
	}
	f.lastLogged[key] = now
	return true
}
