package negotiate

import (
	"context"
	"time"

	"github.com/webrtcgw/gwcore/internal/nack"
	"github.com/webrtcgw/gwcore/internal/session"
)

// nackLoop periodically scans each of the stream's NACK windows for
// entries that have aged past cfg.NACKHoldTime without arriving,
// builds a compound RTCP NACK for them, and queues it for delivery,
// mirroring Janus's periodic janus_ice_check_event NACK sweep rather
// than NACKing on every single gap (which would thrash on ordinary
// jitter-buffer reordering).
func nackLoop(ctx context.Context, h *session.Handle, s *session.Stream, cfg Config) {
	ticker := time.NewTicker(cfg.NACKLoopInterval)
	defer ticker.Stop()

	comp := s.Component()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			switch s.Kind {
			case "audio":
				if s.AudioSSRC != 0 {
					generateNACK(h, comp, comp.AudioWindow(), s.AudioSSRC, false, now, cfg)
				}
			case "video":
				for i := range s.VideoSSRC {
					if s.VideoSSRC[i] != 0 {
						generateNACK(h, comp, comp.VideoWindow(i), s.VideoSSRC[i], true, now, cfg)
					}
				}
			}
		}
	}
}

// generateNACK builds and queues one compound NACK for the sequence
// numbers window reports as still missing, and trips
// SlowLink(uplink=false) once RecordNACKSent's threshold fires,
// reporting that the inbound stream from the peer is lossy enough to
// matter to the attached module.
func generateNACK(h *session.Handle, comp *session.Component, window *nack.Window, mediaSSRC uint32, video bool, now time.Time, cfg Config) {
	missing := window.PendingNACKs(now, cfg.NACKHoldTime, cfg.NACKGiveupAge)
	if len(missing) == 0 {
		return
	}

	pkt := nack.BuildNACK(mediaSSRC, mediaSSRC, missing)
	if pkt == nil {
		return
	}
	raw, err := pkt.Marshal()
	if err != nil {
		return
	}

	h.Enqueue(session.OutboundPacket{ComponentID: int(comp.ID()), Data: raw, IsRTCP: true})
	comp.RecordNACKSent(now, time.Second)

	if comp.InStats.RecordNACKSent(now) {
		if module := h.Module(); module != nil {
			module.Sink.SlowLink(false, video)
		}
	}
}
