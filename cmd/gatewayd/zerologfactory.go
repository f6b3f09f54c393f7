package main

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// zerologFactory adapts a zerolog.Logger to pion/logging.LoggerFactory
// so the rest of the module only ever depends on the gatewaylog/
// pion-logging seam, never on zerolog directly; it lives here since
// process wiring is the one place this module picks an actual sink.
type zerologFactory struct {
	base zerolog.Logger
}

func newZerologFactory(base zerolog.Logger) logging.LoggerFactory {
	return zerologFactory{base: base}
}

func (f zerologFactory) NewLogger(scope string) logging.LeveledLogger {
	return zerologLogger{log: f.base.With().Str("scope", scope).Logger()}
}

type zerologLogger struct {
	log zerolog.Logger
}

func (l zerologLogger) Trace(msg string)                  { l.log.Trace().Msg(msg) }
func (l zerologLogger) Tracef(format string, args ...interface{}) { l.log.Trace().Msgf(format, args...) }
func (l zerologLogger) Debug(msg string)                  { l.log.Debug().Msg(msg) }
func (l zerologLogger) Debugf(format string, args ...interface{}) { l.log.Debug().Msgf(format, args...) }
func (l zerologLogger) Info(msg string)                   { l.log.Info().Msg(msg) }
func (l zerologLogger) Infof(format string, args ...interface{})  { l.log.Info().Msgf(format, args...) }
func (l zerologLogger) Warn(msg string)                   { l.log.Warn().Msg(msg) }
func (l zerologLogger) Warnf(format string, args ...interface{})  { l.log.Warn().Msgf(format, args...) }
func (l zerologLogger) Error(msg string)                  { l.log.Error().Msg(msg) }
func (l zerologLogger) Errorf(format string, args ...interface{}) { l.log.Error().Msgf(format, args...) }
