package main

import (
	"encoding/json"

	"github.com/pion/logging"
)

// logSink is a placeholder appmodule.EventSink that logs pushed
// events and notifications instead of delivering them over a real
// signaling transport (a websocket or long-poll channel, which is
// outside this module's scope); it exists so the daemon can exercise
// the full appmodule.Gateway wiring end to end.
type logSink struct {
	log      logging.LeveledLogger
	handlers bool
}

func (s *logSink) Push(id uint64, transaction string, message, jsep json.RawMessage) error {
	s.log.Infof("push_event handle=%d txn=%s message=%s jsep=%s", id, transaction, message, jsep)
	return nil
}

func (s *logSink) Notify(id uint64, event json.RawMessage) {
	s.log.Infof("notify_event handle=%d event=%s", id, event)
}

func (s *logSink) HandlersAttached() bool { return s.handlers }
