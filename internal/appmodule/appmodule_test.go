package appmodule

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/webrtcgw/gwcore/internal/auth"
	"github.com/webrtcgw/gwcore/internal/sdpsubset"
	"github.com/webrtcgw/gwcore/internal/session"
)

type fakeSink struct {
	mu       sync.Mutex
	pushed   []json.RawMessage
	notified []json.RawMessage
	enabled  bool
}

func (f *fakeSink) Push(id uint64, transaction string, message, jsep json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, message)
	return nil
}

func (f *fakeSink) Notify(id uint64, event json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, event)
}

func (f *fakeSink) HandlersAttached() bool { return f.enabled }

func TestGatewayRelayAndPush(t *testing.T) {
	h := session.NewHandle(42, "")
	audio := h.Stream("0")
	require.NoError(t, audio.ApplyMediaSection(sdpsubset.MediaSection{
		Mid:  "0",
		Kind: "audio",
		SSRCs: []uint32{111},
	}))

	lookup := func(id uint64) (*session.Handle, bool) {
		if id == h.ID() {
			return h, true
		}
		return nil, false
	}
	sink := &fakeSink{enabled: true}
	gw := NewGateway(lookup, sink, auth.AlwaysValid{})

	require.NoError(t, gw.PushEvent(h.ID(), "txn-1", json.RawMessage(`{"ok":true}`), nil))
	require.Len(t, sink.pushed, 1)

	pkt := &rtp.Packet{
		Header:  rtp.Header{SequenceNumber: 1, Timestamp: 1000, SSRC: 222},
		Payload: []byte("audio-payload"),
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	require.NoError(t, gw.RelayRTP(h.ID(), false, raw))
	select {
	case queued := <-h.Outbound():
		var got rtp.Packet
		require.NoError(t, got.Unmarshal(queued.Data))
		require.Equal(t, uint32(111), got.SSRC) // rewritten to the negotiated audio SSRC
		require.Equal(t, []byte("audio-payload"), got.Payload)
	default:
		t.Fatal("expected queued RTP packet")
	}

	require.True(t, gw.EventsIsEnabled())
	gw.NotifyEvent(h.ID(), json.RawMessage(`{"type":"joined"}`))
	require.Len(t, sink.notified, 1)

	require.True(t, gw.AuthIsSignatureValid("any-token", "default"))

	gw.EndSession(h.ID())
	require.True(t, h.Closed())
}

func TestGatewayInvalidHandle(t *testing.T) {
	lookup := func(uint64) (*session.Handle, bool) { return nil, false }
	gw := NewGateway(lookup, &fakeSink{}, auth.AlwaysValid{})
	require.Error(t, gw.RelayRTP("not-a-handle-id", false, nil))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	m := &stubModule{name: "echo"}
	require.NoError(t, r.Register(m))
	require.Error(t, r.Register(m))

	got, ok := r.Lookup("echo")
	require.True(t, ok)
	require.Equal(t, m, got)
	require.Contains(t, r.Names(), "echo")
}

type stubModule struct{ name string }

func (s *stubModule) Name() string          { return s.name }
func (s *stubModule) APICompatibility() int { return 1 }
func (s *stubModule) CreateSession(SessionHandle) error { return nil }
func (s *stubModule) HandleMessage(SessionHandle, string, json.RawMessage, json.RawMessage) Result {
	return OK(nil)
}
func (s *stubModule) SetupMedia(SessionHandle)                 {}
func (s *stubModule) IncomingRTP(SessionHandle, bool, []byte)  {}
func (s *stubModule) IncomingRTCP(SessionHandle, bool, []byte) {}
func (s *stubModule) IncomingData(SessionHandle, []byte)       {}
func (s *stubModule) SlowLink(SessionHandle, bool, bool)       {}
func (s *stubModule) HangupMedia(SessionHandle)                {}
func (s *stubModule) DestroySession(SessionHandle) error       { return nil }
func (s *stubModule) QuerySession(SessionHandle) json.RawMessage { return nil }
