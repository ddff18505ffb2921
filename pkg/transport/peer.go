// Package transport is the UDP datagram layer: a single
// socket shared by all peers, per-peer sequencing and dedup, selective
// reliability with bounded retransmit, and heartbeat-driven liveness.
package transport

import (
	"net"

	"github.com/google/uuid"
)

type State byte

const (
	Handshaking State = iota
	Live
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Live:
		return "live"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// outboxEntry is one reliable frame awaiting acknowledgment.
type outboxEntry struct {
	seq         uint32
	data        []byte
	sentAtMs    uint64
	resendCount int
}

// Peer is the per-connected-client transport record. The
// scheduler and codec never touch these fields directly; all mutation
// goes through Hub methods so sequencing/dedup invariants hold.
type Peer struct {
	ID      uuid.UUID
	Address *net.UDPAddr
	State   State

	rxLastSeq    uint32
	rxHasSeq     bool
	rxAckBitmap  uint32
	txNextSeq    uint32
	reliableBox  []outboxEntry
	unreliableQ  [][]byte

	RTTEstimateMs   float64
	LastHeartbeatMs uint64
	lastPingID      uint32
	pingAwaitingPong bool
	missedPings     int

	drainEnteredAtMs uint64
	errorCount       int
}

const (
	// maxUnreliableQueue bounds per-peer outbound unreliable frames; the
	// oldest is dropped on overflow rather than blocking the tick loop.
	maxUnreliableQueue = 64
	// maxErrorsBeforeDisconnect closes a peer whose inbound frames keep
	// failing to decode.
	maxErrorsBeforeDisconnect = 20
)

func newPeer(id uuid.UUID, addr *net.UDPAddr) *Peer {
	return &Peer{ID: id, Address: addr, State: Handshaking}
}

// acceptRx applies the sequencing/dedup rule: duplicates
// (bit already set in the trailing-32 bitmap) are dropped; out-of-order
// frames still update the bitmap and are delivered. Returns false for a
// dropped duplicate.
func (p *Peer) acceptRx(seq uint32) bool {
	if !p.rxHasSeq {
		p.rxHasSeq = true
		p.rxLastSeq = seq
		p.rxAckBitmap = 0
		return true
	}

	diff := int64(seq) - int64(p.rxLastSeq)
	switch {
	case diff == 0:
		return false // exact duplicate of the last seen sequence
	case diff > 0:
		shift := uint(diff)
		if shift >= 32 {
			p.rxAckBitmap = 0
		} else {
			p.rxAckBitmap = (p.rxAckBitmap << shift) | (1 << (shift - 1))
		}
		p.rxLastSeq = seq
		return true
	default:
		back := uint(-diff)
		if back > 32 {
			return true // too old to track; treat as not-a-duplicate, just deliver
		}
		bit := uint32(1) << (back - 1)
		if p.rxAckBitmap&bit != 0 {
			return false
		}
		p.rxAckBitmap |= bit
		return true
	}
}

func (p *Peer) nextTxSeq() uint32 {
	p.txNextSeq++
	return p.txNextSeq
}

func (p *Peer) enqueueUnreliable(frame []byte) {
	if len(p.unreliableQ) >= maxUnreliableQueue {
		p.unreliableQ = p.unreliableQ[1:]
	}
	p.unreliableQ = append(p.unreliableQ, frame)
}

func (p *Peer) drainUnreliable() [][]byte {
	out := p.unreliableQ
	p.unreliableQ = nil
	return out
}

func (p *Peer) enqueueReliable(seq uint32, data []byte, nowMs uint64) {
	p.reliableBox = append(p.reliableBox, outboxEntry{seq: seq, data: data, sentAtMs: nowMs})
}

func (p *Peer) ackReliable(seq uint32) {
	for i, e := range p.reliableBox {
		if e.seq == seq {
			p.reliableBox = append(p.reliableBox[:i], p.reliableBox[i+1:]...)
			return
		}
	}
}

// dueResends returns the reliable frames overdue for retransmission,
// bumping their resend counters, and reports any that have exceeded
// maxResends.
func (p *Peer) dueResends(nowMs uint64, intervalMs uint64, maxResends int) (resend [][]byte, dead bool) {
	for i := range p.reliableBox {
		e := &p.reliableBox[i]
		if nowMs-e.sentAtMs < intervalMs {
			continue
		}
		if e.resendCount >= maxResends {
			dead = true
			continue
		}
		e.resendCount++
		e.sentAtMs = nowMs
		resend = append(resend, e.data)
	}
	return resend, dead
}

func (p *Peer) updateRTT(sampleMs float64) {
	const alpha = 1.0 / 8.0
	if p.RTTEstimateMs == 0 {
		p.RTTEstimateMs = sampleMs
		return
	}
	p.RTTEstimateMs = (1-alpha)*p.RTTEstimateMs + alpha*sampleMs
}

