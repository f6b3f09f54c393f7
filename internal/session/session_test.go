package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSink struct {
	created      bool
	destroyed    bool
	createErr    error
	mediaSetup   bool
	mediaHangup  bool
}

func (s *stubSink) CreateSession() error  { s.created = true; return s.createErr }
func (s *stubSink) DestroySession() error { s.destroyed = true; return nil }
func (s *stubSink) SetupMedia()           { s.mediaSetup = true }
func (s *stubSink) HangupMedia()          { s.mediaHangup = true }
func (s *stubSink) IncomingRTP(string, bool, []byte)  {}
func (s *stubSink) IncomingRTCP(string, bool, []byte) {}
func (s *stubSink) SlowLink(bool, bool)                {}

func TestHandleLifecycle(t *testing.T) {
	h := NewHandle(1, "")
	require.NotEmpty(t, h.OpaqueID())
	require.Len(t, h.CNAME(), cnameLength)
	require.False(t, h.HasFlag(FlagReady))

	h.SetFlag(FlagReady)
	require.True(t, h.HasFlag(FlagReady))
	h.ClearFlag(FlagReady)
	require.False(t, h.HasFlag(FlagReady))

	sink := &stubSink{}
	require.NoError(t, h.Attach("videoroom", sink))
	require.True(t, sink.created)
	require.ErrorIs(t, h.Attach("videoroom", sink), ErrAlreadyAttached)
	require.NotNil(t, h.Module())

	h.AddTrickle(TrickleCandidate{Mid: "0", Candidate: "candidate:1 1 udp 1 1.2.3.4 9 typ host"})
	pending := h.DrainTrickles()
	require.Len(t, pending, 1)
	require.Empty(t, h.DrainTrickles())

	require.True(t, h.Enqueue(OutboundPacket{ComponentID: 1, Data: []byte("x")}))

	h.Hangup("peer closed")
	require.Equal(t, "peer closed", h.HangupReason())
	require.True(t, h.HasFlag(FlagStop))
	require.True(t, h.HasFlag(FlagAlert))

	// A second hangup must not overwrite the original reason.
	h.Hangup("late reason")
	require.Equal(t, "peer closed", h.HangupReason())

	h.Free()
	require.True(t, h.Closed())
	require.True(t, sink.destroyed)
	h.Free() // idempotent
}

func TestAttachRejectedByModule(t *testing.T) {
	h := NewHandle(4, "")
	sink := &stubSink{createErr: errBoom}
	require.Error(t, h.Attach("videoroom", sink))
	require.Nil(t, h.Module())
}

var errBoom = errors.New("session_test: module refused session")

func TestHandleStreams(t *testing.T) {
	h := NewHandle(2, "")
	s := h.Stream("0")
	require.Equal(t, s, h.Stream("0"))
	require.Len(t, h.Streams(), 1)
}

func TestComponentSimulcastIsolation(t *testing.T) {
	h := NewHandle(3, "")
	s := h.Stream("1")
	c := s.Component()
	require.Same(t, c, s.Component())

	now := time.Now()
	c.VideoWindow(0).Add(100, now)
	require.True(t, c.VideoWindow(0).Contains(100))
	require.False(t, c.VideoWindow(1).Contains(100))

	require.Equal(t, uint16(0), c.NextRTXSeq())
	require.Equal(t, uint16(1), c.NextRTXSeq())
}
