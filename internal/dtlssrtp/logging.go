package dtlssrtp

import "github.com/pion/logging"

// loggerFactory adapts a single already-scoped LeveledLogger into the
// LoggerFactory interface pion/dtls and pion/srtp expect, since this
// transport is already scoped to one component and has no use for
// per-subsystem sub-loggers.
type loggerFactory struct {
	log logging.LeveledLogger
}

func (f loggerFactory) NewLogger(string) logging.LeveledLogger { return f.log }
