package transport

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"stellarcore/pkg/codec"
)

var (
	ErrCapacityExceeded = errors.New("transport: server at max_players")
	ErrVersionMismatch  = errors.New("transport: client version mismatch")
	ErrUnknownPeer      = errors.New("transport: unknown peer id")
)

// Inbound is one decoded frame delivered to the simulation worker,
// tagged with the peer it arrived from (or the raw address pre-handshake).
type Inbound struct {
	PeerID  uuid.UUID
	Addr    *net.UDPAddr
	Header  codec.Header
	Payload codec.Message
}

// datagramPool recycles read buffers across the I/O goroutine.
var datagramPool = sync.Pool{New: func() any { return make([]byte, 2048) }}

// Hub owns the UDP socket and all peer state. The I/O goroutine (Serve)
// is the only writer of inbound; the simulation worker drains it once
// per tick via Drain.
type Hub struct {
	conn *net.UDPConn

	mu           sync.Mutex
	byID         map[uuid.UUID]*Peer
	byAddr       map[string]*Peer
	playerCount  int
	maxPlayers   int
	protoVersion string

	inboundMu sync.Mutex
	inbound   []Inbound

	sendMu sync.Mutex
}

func NewHub(conn *net.UDPConn, maxPlayers int, protoVersion string) *Hub {
	return &Hub{
		conn:         conn,
		byID:         make(map[uuid.UUID]*Peer),
		byAddr:       make(map[string]*Peer),
		maxPlayers:   maxPlayers,
		protoVersion: protoVersion,
	}
}

// Serve runs the read loop until the socket is closed. Each datagram is
// decoded and routed; decode/dispatch never blocks on the simulation
// worker.
func (h *Hub) Serve() error {
	for {
		buf := datagramPool.Get().([]byte)
		n, addr, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			datagramPool.Put(buf)
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		datagramPool.Put(buf)

		h.handleDatagram(data, addr)
	}
}

func (h *Hub) handleDatagram(data []byte, addr *net.UDPAddr) {
	frame, err := codec.Decode(data)
	if err != nil {
		h.mu.Lock()
		if p, ok := h.byAddr[addr.String()]; ok {
			p.errorCount++
		}
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	peer, known := h.byID[frame.Header.PeerID]
	if !known {
		peer = h.byAddr[addr.String()]
	}
	h.mu.Unlock()

	if peer == nil {
		if frame.Header.Type != codec.MsgConnect {
			return // ProtocolViolation: non-Connect from unknown address is silently dropped pre-handshake
		}
		h.handleConnect(frame, addr)
		return
	}

	if !peer.acceptRx(frame.Header.Sequence) {
		return // duplicate: never surfaces past the transport
	}

	if frame.Header.Type == codec.MsgClientReliableAck {
		if ack, ok := frame.Payload.(*codec.ClientReliableAck); ok {
			peer.ackReliable(ack.AckedSeq)
		}
		return
	}
	if frame.Header.Type == codec.MsgPong {
		if pong, ok := frame.Payload.(*codec.Pong); ok && peer.pingAwaitingPong && pong.PingID == peer.lastPingID {
			peer.pingAwaitingPong = false
			peer.missedPings = 0
			peer.ObservePong(peer.LastHeartbeatMs, uint64(time.Now().UnixMilli()))
		}
		return
	}

	h.pushInbound(Inbound{PeerID: peer.ID, Addr: addr, Header: frame.Header, Payload: frame.Payload})
}

func (h *Hub) handleConnect(frame codec.Frame, addr *net.UDPAddr) {
	c, ok := frame.Payload.(*codec.Connect)
	if !ok {
		return
	}

	if c.Version != h.protoVersion {
		h.sendRejectDirect(addr, "version mismatch")
		return
	}

	h.mu.Lock()
	if h.playerCount >= h.maxPlayers {
		h.mu.Unlock()
		h.sendRejectDirect(addr, "capacity exceeded")
		return
	}
	id := uuid.New()
	p := newPeer(id, addr)
	p.State = Live
	h.byID[id] = p
	h.byAddr[addr.String()] = p
	h.playerCount++
	h.mu.Unlock()

	h.pushInbound(Inbound{PeerID: id, Addr: addr, Header: frame.Header, Payload: c})
}

func (h *Hub) sendRejectDirect(addr *net.UDPAddr, reason string) {
	data, err := codec.Encode(codec.Header{Type: codec.MsgReject}, &codec.Reject{Reason: reason})
	if err != nil {
		return
	}
	h.sendMu.Lock()
	_, _ = h.conn.WriteToUDP(data, addr)
	h.sendMu.Unlock()
}

func (h *Hub) pushInbound(in Inbound) {
	h.inboundMu.Lock()
	h.inbound = append(h.inbound, in)
	h.inboundMu.Unlock()
}

// Drain returns up to maxFrames queued inbound frames, clearing them
// from the hub. Called once per tick by the scheduler's first step,
// bounded to prevent one noisy peer from starving others.
func (h *Hub) Drain(maxFrames int) []Inbound {
	h.inboundMu.Lock()
	defer h.inboundMu.Unlock()

	if len(h.inbound) <= maxFrames {
		out := h.inbound
		h.inbound = nil
		return out
	}
	out := h.inbound[:maxFrames]
	h.inbound = h.inbound[maxFrames:]
	return out
}

func (h *Hub) Peer(id uuid.UUID) (*Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.byID[id]
	return p, ok
}

func (h *Hub) PeerIDs() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uuid.UUID, 0, len(h.byID))
	for id := range h.byID {
		out = append(out, id)
	}
	return out
}

// SendReliable encodes, sends immediately, and enqueues for resend until
// acked.
func (h *Hub) SendReliable(peerID uuid.UUID, msgType codec.MsgType, m codec.Message, nowMs uint64) error {
	h.mu.Lock()
	p, ok := h.byID[peerID]
	h.mu.Unlock()
	if !ok {
		return ErrUnknownPeer
	}

	seq := p.nextTxSeq()
	data, err := codec.Encode(codec.Header{Type: msgType, Sequence: seq, TimestampMs: nowMs, PeerID: peerID}, m)
	if err != nil {
		return err
	}
	p.enqueueReliable(seq, data, nowMs)
	return h.write(p.Address, data)
}

// SendUnreliable encodes and queues a best-effort frame.
func (h *Hub) SendUnreliable(peerID uuid.UUID, msgType codec.MsgType, m codec.Message, nowMs uint64) error {
	h.mu.Lock()
	p, ok := h.byID[peerID]
	h.mu.Unlock()
	if !ok {
		return ErrUnknownPeer
	}

	seq := p.nextTxSeq()
	data, err := codec.Encode(codec.Header{Type: msgType, Sequence: seq, TimestampMs: nowMs, PeerID: peerID}, m)
	if err != nil {
		return err
	}
	p.enqueueUnreliable(data)
	return nil
}

// FlushOutbound transmits every peer's queued unreliable frames. Called
// once per tick after snapshots are built.
func (h *Hub) FlushOutbound() {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.byID))
	for _, p := range h.byID {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		for _, frame := range p.drainUnreliable() {
			_ = h.write(p.Address, frame)
		}
	}
}

func (h *Hub) write(addr *net.UDPAddr, data []byte) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	_, err := h.conn.WriteToUDP(data, addr)
	return err
}

// Disconnect marks a peer draining (orderly close) or closed (hard
// failure) and, once closed, removes it from lookup tables.
func (h *Hub) Disconnect(peerID uuid.UUID, reason string, immediate bool) {
	h.mu.Lock()
	p, ok := h.byID[peerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if immediate {
		p.State = Closed
		delete(h.byID, peerID)
		delete(h.byAddr, p.Address.String())
		h.playerCount--
	} else {
		p.State = Draining
	}
	h.mu.Unlock()

	data, err := codec.Encode(codec.Header{Type: codec.MsgDisconnect, PeerID: peerID}, &codec.Disconnect{Reason: reason})
	if err == nil {
		_ = h.write(p.Address, data)
	}
}

// CompleteDraining finalizes peers that entered Draining at least one
// RTT ago.
func (h *Hub) CompleteDraining(nowMs uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, p := range h.byID {
		if p.State != Draining {
			continue
		}
		if p.drainEnteredAtMs == 0 {
			p.drainEnteredAtMs = nowMs
			continue
		}
		elapsed := float64(nowMs - p.drainEnteredAtMs)
		if elapsed >= p.RTTEstimateMs {
			p.State = Closed
			delete(h.byID, id)
			delete(h.byAddr, p.Address.String())
			h.playerCount--
		}
	}
}
