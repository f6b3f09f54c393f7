package appmodule

import "github.com/webrtcgw/gwcore/internal/session"

// ModuleSink adapts a (Module, SessionHandle) pair to session.ModuleSink,
// the narrow surface a Handle drives directly on CreateSession/
// DestroySession/IncomingRTP/IncomingRTCP/SlowLink without needing to
// import this package (which itself imports session for Gateway).
type ModuleSink struct {
	Module  Module
	Session SessionHandle
}

// NewModuleSink builds the adapter a Handle.Attach call binds for one
// attached module instance.
func NewModuleSink(m Module, h SessionHandle) *ModuleSink {
	return &ModuleSink{Module: m, Session: h}
}

func (s *ModuleSink) CreateSession() error  { return s.Module.CreateSession(s.Session) }
func (s *ModuleSink) DestroySession() error { return s.Module.DestroySession(s.Session) }
func (s *ModuleSink) SetupMedia()           { s.Module.SetupMedia(s.Session) }
func (s *ModuleSink) HangupMedia()          { s.Module.HangupMedia(s.Session) }

func (s *ModuleSink) IncomingRTP(mid string, video bool, buf []byte) {
	_ = mid
	s.Module.IncomingRTP(s.Session, video, buf)
}

func (s *ModuleSink) IncomingRTCP(mid string, video bool, buf []byte) {
	_ = mid
	s.Module.IncomingRTCP(s.Session, video, buf)
}

func (s *ModuleSink) SlowLink(uplink, video bool) {
	s.Module.SlowLink(s.Session, uplink, video)
}

var _ session.ModuleSink = (*ModuleSink)(nil)
