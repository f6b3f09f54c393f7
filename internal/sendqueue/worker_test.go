package sendqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webrtcgw/gwcore/internal/session"
)

type fakeWriter struct {
	mu       sync.Mutex
	rtp      [][]byte
	rtcp     [][]byte
	failRTP  bool
}

func (f *fakeWriter) WriteRTP(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRTP {
		return errors.New("boom")
	}
	f.rtp = append(f.rtp, payload)
	return nil
}

func (f *fakeWriter) WriteRTCP(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rtcp = append(f.rtcp, payload)
	return nil
}

func (f *fakeWriter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rtp), len(f.rtcp)
}

func TestWorkerDeliversAndStopsOnClose(t *testing.T) {
	h := session.NewHandle(1, "")
	fw := &fakeWriter{}
	w := NewWorker(h, fw, nil)

	require.True(t, h.Enqueue(session.OutboundPacket{Data: []byte("rtp-1")}))
	require.True(t, h.Enqueue(session.OutboundPacket{Data: []byte("rtcp-1"), IsRTCP: true}))

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		rtp, rtcp := fw.counts()
		return rtp == 1 && rtcp == 1
	}, time.Second, time.Millisecond)

	h.Free()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after handle close")
	}
}

func TestWorkerReportsErrors(t *testing.T) {
	h := session.NewHandle(2, "")
	fw := &fakeWriter{failRTP: true}
	w := NewWorker(h, fw, nil)

	var gotErr error
	var mu sync.Mutex
	w.OnError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		gotErr = err
	})

	go func() { _ = w.Run(context.Background()) }()
	require.True(t, h.Enqueue(session.OutboundPacket{Data: []byte("x")}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotErr != nil
	}, time.Second, time.Millisecond)

	h.Free()
}

func TestWorkerNoWriter(t *testing.T) {
	h := session.NewHandle(3, "")
	w := NewWorker(h, nil, nil)
	require.ErrorIs(t, w.Run(context.Background()), ErrNoWriter)
}
