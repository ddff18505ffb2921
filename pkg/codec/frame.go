// Package codec implements the framed binary wire format shared by every
// message that crosses the datagram transport. It is
// total and allocation-bounded: Decode never panics on short or malformed
// input, and Encode fails closed on oversize frames.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ErrMalformedFrame is returned when a frame cannot be decoded: short
// input, an unknown message type, or a length overrun.
var ErrMalformedFrame = errors.New("codec: malformed frame")

// ErrOversizeFrame is returned by Encode when the encoded frame (header
// plus payload) would exceed MaxFrameBytes, the UDP-safe ceiling.
var ErrOversizeFrame = errors.New("codec: frame exceeds 1400 bytes")

// MaxFrameBytes is the largest frame Encode will produce, chosen to stay
// under common path MTUs without fragmentation.
const MaxFrameBytes = 1400

// headerSize is type(2) + sequence(4) + timestamp_ms(8) + peer_id(16).
const headerSize = 2 + 4 + 8 + 16

// Header is the fixed prefix shared by every wire message.
type Header struct {
	Type        MsgType
	Sequence    uint32
	TimestampMs uint64
	PeerID      uuid.UUID
}

// MsgType is the u16 discriminator at the front of every frame.
type MsgType uint16

const (
	MsgConnect            MsgType = 0
	MsgDisconnect         MsgType = 1
	MsgPing               MsgType = 2
	MsgPong               MsgType = 3
	MsgClientStateUpdate  MsgType = 4
	MsgAccept             MsgType = 5
	MsgReject             MsgType = 6
	MsgServerStateUpdate  MsgType = 7
	MsgPhysicsUpdate      MsgType = 8
	MsgNPCUpdate          MsgType = 9
	MsgAOIUpdate          MsgType = 10
	MsgCelestialUpdate    MsgType = 11
	MsgSanityCheck        MsgType = 12
	MsgServerReliableAck  MsgType = 13
	MsgClientReliableAck  MsgType = 14
	MsgCheckResponse      MsgType = 15
)

func (t MsgType) String() string {
	switch t {
	case MsgConnect:
		return "Connect"
	case MsgDisconnect:
		return "Disconnect"
	case MsgPing:
		return "Ping"
	case MsgPong:
		return "Pong"
	case MsgClientStateUpdate:
		return "ClientStateUpdate"
	case MsgAccept:
		return "Accept"
	case MsgReject:
		return "Reject"
	case MsgServerStateUpdate:
		return "ServerStateUpdate"
	case MsgPhysicsUpdate:
		return "PhysicsUpdate"
	case MsgNPCUpdate:
		return "NPCUpdate"
	case MsgAOIUpdate:
		return "AOIUpdate"
	case MsgCelestialUpdate:
		return "CelestialUpdate"
	case MsgSanityCheck:
		return "SanityCheck"
	case MsgServerReliableAck:
		return "ServerReliableAck"
	case MsgClientReliableAck:
		return "ClientReliableAck"
	case MsgCheckResponse:
		return "CheckResponse"
	default:
		return fmt.Sprintf("MsgType(%d)", uint16(t))
	}
}

// Reliable reports whether frames of this type participate in the
// retransmit-until-acked reliability layer.
func (t MsgType) Reliable() bool {
	switch t {
	case MsgConnect, MsgAccept, MsgReject, MsgSanityCheck, MsgCheckResponse,
		MsgServerReliableAck, MsgClientReliableAck, MsgDisconnect:
		return true
	default:
		return false
	}
}

// Message is implemented by every typed payload. Encode/Decode handle only
// the payload; the header is written/read separately by Encode/Decode at
// the package level.
type Message interface {
	MsgType() MsgType
	encodePayload(buf *bytes.Buffer)
	decodePayload(r *bytes.Reader) error
}

// Frame is a fully decoded wire message: header plus typed payload.
type Frame struct {
	Header  Header
	Payload Message
}

var bufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// Encode serializes a frame to wire bytes. It fails only on oversize
// output, checked on the uncompressed encoding; the compression hooks in
// hooks.go are not applied here.
func Encode(h Header, m Message) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	writeHeader(buf, h, m.MsgType())
	m.encodePayload(buf)

	if buf.Len() > MaxFrameBytes {
		return nil, ErrOversizeFrame
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func writeHeader(buf *bytes.Buffer, h Header, t MsgType) {
	var tmp [headerSize]byte
	binary.LittleEndian.PutUint16(tmp[0:2], uint16(t))
	binary.LittleEndian.PutUint32(tmp[2:6], h.Sequence)
	binary.LittleEndian.PutUint64(tmp[6:14], h.TimestampMs)
	copy(tmp[14:30], h.PeerID[:])
	buf.Write(tmp[:])
}

// Decode parses wire bytes into a frame. Any structural problem while
// reading (short input, unknown type, a length overrun in a
// variable-length field) returns ErrMalformedFrame with nothing else
// observable.
func Decode(data []byte) (Frame, error) {
	if len(data) < headerSize {
		return Frame{}, ErrMalformedFrame
	}
	t := MsgType(binary.LittleEndian.Uint16(data[0:2]))
	h := Header{
		Type:        t,
		Sequence:    binary.LittleEndian.Uint32(data[2:6]),
		TimestampMs: binary.LittleEndian.Uint64(data[6:14]),
	}
	copy(h.PeerID[:], data[14:30])

	factory, ok := registry[t]
	if !ok {
		return Frame{}, ErrMalformedFrame
	}
	msg := factory()
	r := bytes.NewReader(data[headerSize:])
	if err := msg.decodePayload(r); err != nil {
		return Frame{}, ErrMalformedFrame
	}
	return Frame{Header: h, Payload: msg}, nil
}

var registry = map[MsgType]func() Message{}

func register(t MsgType, factory func() Message) {
	registry[t] = factory
}

// --- shared field helpers ---

func writeVec3(buf *bytes.Buffer, x, y, z float64) {
	var tmp [12]byte
	binary.LittleEndian.PutUint32(tmp[0:4], f32bits(x))
	binary.LittleEndian.PutUint32(tmp[4:8], f32bits(y))
	binary.LittleEndian.PutUint32(tmp[8:12], f32bits(z))
	buf.Write(tmp[:])
}

func readVec3(r *bytes.Reader) (x, y, z float64, err error) {
	var tmp [12]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, 0, 0, ErrMalformedFrame
	}
	x = f32float(binary.LittleEndian.Uint32(tmp[0:4]))
	y = f32float(binary.LittleEndian.Uint32(tmp[4:8]))
	z = f32float(binary.LittleEndian.Uint32(tmp[8:12]))
	return x, y, z, nil
}

func writeQuat(buf *bytes.Buffer, x, y, z, w float64) {
	var tmp [16]byte
	binary.LittleEndian.PutUint32(tmp[0:4], f32bits(x))
	binary.LittleEndian.PutUint32(tmp[4:8], f32bits(y))
	binary.LittleEndian.PutUint32(tmp[8:12], f32bits(z))
	binary.LittleEndian.PutUint32(tmp[12:16], f32bits(w))
	buf.Write(tmp[:])
}

func readQuat(r *bytes.Reader) (x, y, z, w float64, err error) {
	var tmp [16]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, 0, 0, 0, ErrMalformedFrame
	}
	x = f32float(binary.LittleEndian.Uint32(tmp[0:4]))
	y = f32float(binary.LittleEndian.Uint32(tmp[4:8]))
	z = f32float(binary.LittleEndian.Uint32(tmp[8:12]))
	w = f32float(binary.LittleEndian.Uint32(tmp[12:16]))
	return x, y, z, w, nil
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", ErrMalformedFrame
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	if r.Len() < int(n) {
		return "", ErrMalformedFrame
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", ErrMalformedFrame
	}
	return string(out), nil
}

func writeUUID(buf *bytes.Buffer, id uuid.UUID) { buf.Write(id[:]) }

func readUUID(r *bytes.Reader) (uuid.UUID, error) {
	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return uuid.Nil, ErrMalformedFrame
	}
	return id, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, ErrMalformedFrame
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, ErrMalformedFrame
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func writeFloat32(buf *bytes.Buffer, v float64) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], f32bits(v))
	buf.Write(tmp[:])
}

func readFloat32(r *bytes.Reader) (float64, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, ErrMalformedFrame
	}
	return f32float(binary.LittleEndian.Uint32(tmp[:])), nil
}

func writeByte(buf *bytes.Buffer, b byte) { buf.WriteByte(b) }

func readByte(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, ErrMalformedFrame
	}
	return b, nil
}
