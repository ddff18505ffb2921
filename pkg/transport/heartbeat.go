package transport

import (
	"github.com/google/uuid"

	"stellarcore/pkg/codec"
)

// Timeout reports a peer that missed its heartbeat, exhausted reliable
// resends, or reached maxErrorsBeforeDisconnect undecodable frames.
type Timeout struct {
	PeerID uuid.UUID
	Reason string
}

// TickMaintenance runs the per-tick transport housekeeping: reliable
// resend scheduling, heartbeat issuance, and draining completion. It
// never blocks on socket I/O.
func (h *Hub) TickMaintenance(nowMs uint64, heartbeatIntervalMs, reliableResendIntervalMs uint64, maxReliableResends int) []Timeout {
	var timeouts []Timeout
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.byID))
	for _, p := range h.byID {
		if p.State != Closed && p.errorCount >= maxErrorsBeforeDisconnect {
			timeouts = append(timeouts, Timeout{PeerID: p.ID, Reason: "MalformedFrame"})
			continue
		}
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if p.State == Closed {
			continue
		}

		resend, dead := p.dueResends(nowMs, reliableResendIntervalMs, maxReliableResends)
		for _, frame := range resend {
			_ = h.write(p.Address, frame)
		}
		if dead {
			timeouts = append(timeouts, Timeout{PeerID: p.ID, Reason: "reliable resend exhausted"})
			continue
		}

		if nowMs-p.LastHeartbeatMs < heartbeatIntervalMs {
			continue
		}

		if p.pingAwaitingPong {
			p.missedPings++
			if p.missedPings >= 2 {
				timeouts = append(timeouts, Timeout{PeerID: p.ID, Reason: "heartbeat timeout"})
				continue
			}
		}

		p.lastPingID++
		p.pingAwaitingPong = true
		p.LastHeartbeatMs = nowMs
		seq := p.nextTxSeq()
		data, err := codec.Encode(
			codec.Header{Type: codec.MsgPing, Sequence: seq, TimestampMs: nowMs, PeerID: p.ID},
			&codec.Ping{PingID: p.lastPingID},
		)
		if err == nil {
			_ = h.write(p.Address, data)
		}
	}

	h.CompleteDraining(nowMs)
	return timeouts
}

// ObservePong records an RTT sample from a Pong already matched to its
// Ping by the caller (handleDatagram matches PingID before calling this).
func (p *Peer) ObservePong(sentAtMs, nowMs uint64) {
	p.updateRTT(float64(nowMs - sentAtMs))
}
