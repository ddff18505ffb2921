package codec

import (
	"bytes"

	"github.com/google/uuid"
)

func init() {
	register(MsgConnect, func() Message { return &Connect{} })
	register(MsgDisconnect, func() Message { return &Disconnect{} })
	register(MsgPing, func() Message { return &Ping{} })
	register(MsgPong, func() Message { return &Pong{} })
	register(MsgClientStateUpdate, func() Message { return &ClientStateUpdate{} })
	register(MsgAccept, func() Message { return &Accept{} })
	register(MsgReject, func() Message { return &Reject{} })
	register(MsgServerStateUpdate, func() Message { return &ServerStateUpdate{} })
	register(MsgPhysicsUpdate, func() Message { return &PhysicsUpdate{} })
	register(MsgNPCUpdate, func() Message { return &NPCUpdate{} })
	register(MsgAOIUpdate, func() Message { return &AOIUpdate{} })
	register(MsgCelestialUpdate, func() Message { return &CelestialUpdate{} })
	register(MsgSanityCheck, func() Message { return &SanityCheck{} })
	register(MsgServerReliableAck, func() Message { return &ServerReliableAck{} })
	register(MsgClientReliableAck, func() Message { return &ClientReliableAck{} })
	register(MsgCheckResponse, func() Message { return &CheckResponse{} })
}

// Connect: C->S, code 0.
type Connect struct {
	Username string
	Version  string
	Token    []byte // pre-issued client auth token, opaque to the core
}

func (*Connect) MsgType() MsgType { return MsgConnect }
func (m *Connect) encodePayload(buf *bytes.Buffer) {
	writeString(buf, m.Username)
	writeString(buf, m.Version)
	writeU32(buf, uint32(len(m.Token)))
	buf.Write(m.Token)
}
func (m *Connect) decodePayload(r *bytes.Reader) error {
	var err error
	if m.Username, err = readString(r); err != nil {
		return err
	}
	if m.Version, err = readString(r); err != nil {
		return err
	}
	n, err := readU32(r)
	if err != nil {
		return err
	}
	if r.Len() < int(n) {
		return ErrMalformedFrame
	}
	m.Token = make([]byte, n)
	if n > 0 {
		if _, err := r.Read(m.Token); err != nil {
			return ErrMalformedFrame
		}
	}
	return nil
}

// Disconnect: either direction, code 1.
type Disconnect struct {
	Reason string
}

func (*Disconnect) MsgType() MsgType { return MsgDisconnect }
func (m *Disconnect) encodePayload(buf *bytes.Buffer) { writeString(buf, m.Reason) }
func (m *Disconnect) decodePayload(r *bytes.Reader) (err error) {
	m.Reason, err = readString(r)
	return err
}

// Ping: either direction, code 2.
type Ping struct{ PingID uint32 }

func (*Ping) MsgType() MsgType                  { return MsgPing }
func (m *Ping) encodePayload(buf *bytes.Buffer) { writeU32(buf, m.PingID) }
func (m *Ping) decodePayload(r *bytes.Reader) (err error) {
	m.PingID, err = readU32(r)
	return err
}

// Pong: either direction, code 3.
type Pong struct{ PingID uint32 }

func (*Pong) MsgType() MsgType                  { return MsgPong }
func (m *Pong) encodePayload(buf *bytes.Buffer) { writeU32(buf, m.PingID) }
func (m *Pong) decodePayload(r *bytes.Reader) (err error) {
	m.PingID, err = readU32(r)
	return err
}

// ClientStateUpdate: C->S, code 4.
type ClientStateUpdate struct {
	PosX, PosY, PosZ    float64
	VelX, VelY, VelZ    float64
	RotX, RotY, RotZ, RotW float64
	InputSequence       uint32
}

func (*ClientStateUpdate) MsgType() MsgType { return MsgClientStateUpdate }
func (m *ClientStateUpdate) encodePayload(buf *bytes.Buffer) {
	writeVec3(buf, m.PosX, m.PosY, m.PosZ)
	writeVec3(buf, m.VelX, m.VelY, m.VelZ)
	writeQuat(buf, m.RotX, m.RotY, m.RotZ, m.RotW)
	writeU32(buf, m.InputSequence)
}
func (m *ClientStateUpdate) decodePayload(r *bytes.Reader) error {
	var err error
	if m.PosX, m.PosY, m.PosZ, err = readVec3(r); err != nil {
		return err
	}
	if m.VelX, m.VelY, m.VelZ, err = readVec3(r); err != nil {
		return err
	}
	if m.RotX, m.RotY, m.RotZ, m.RotW, err = readQuat(r); err != nil {
		return err
	}
	if m.InputSequence, err = readU32(r); err != nil {
		return err
	}
	return nil
}

// Accept: S->C, code 5.
type Accept struct {
	PeerID     uuid.UUID
	ServerTime uint64
	PosX, PosY, PosZ float64
}

func (*Accept) MsgType() MsgType { return MsgAccept }
func (m *Accept) encodePayload(buf *bytes.Buffer) {
	writeUUID(buf, m.PeerID)
	writeU64(buf, m.ServerTime)
	writeVec3(buf, m.PosX, m.PosY, m.PosZ)
}
func (m *Accept) decodePayload(r *bytes.Reader) error {
	var err error
	if m.PeerID, err = readUUID(r); err != nil {
		return err
	}
	if m.ServerTime, err = readU64(r); err != nil {
		return err
	}
	m.PosX, m.PosY, m.PosZ, err = readVec3(r)
	return err
}

// Reject: S->C, code 6.
type Reject struct{ Reason string }

func (*Reject) MsgType() MsgType                  { return MsgReject }
func (m *Reject) encodePayload(buf *bytes.Buffer) { writeString(buf, m.Reason) }
func (m *Reject) decodePayload(r *bytes.Reader) (err error) {
	m.Reason, err = readString(r)
	return err
}

// EntityStateWire is one entity row inside a ServerStateUpdate/NPCUpdate.
type EntityStateWire struct {
	EntityID               uuid.UUID
	Kind                   byte // 0=player 1=npc
	PosX, PosY, PosZ       float64
	VelX, VelY, VelZ       float64
	RotX, RotY, RotZ, RotW float64
}

func writeEntity(buf *bytes.Buffer, e EntityStateWire) {
	writeUUID(buf, e.EntityID)
	writeByte(buf, e.Kind)
	writeVec3(buf, e.PosX, e.PosY, e.PosZ)
	writeVec3(buf, e.VelX, e.VelY, e.VelZ)
	writeQuat(buf, e.RotX, e.RotY, e.RotZ, e.RotW)
}

func readEntity(r *bytes.Reader) (EntityStateWire, error) {
	var e EntityStateWire
	var err error
	if e.EntityID, err = readUUID(r); err != nil {
		return e, err
	}
	if e.Kind, err = readByte(r); err != nil {
		return e, err
	}
	if e.PosX, e.PosY, e.PosZ, err = readVec3(r); err != nil {
		return e, err
	}
	if e.VelX, e.VelY, e.VelZ, err = readVec3(r); err != nil {
		return e, err
	}
	if e.RotX, e.RotY, e.RotZ, e.RotW, err = readQuat(r); err != nil {
		return e, err
	}
	return e, nil
}

// ServerStateUpdate: S->C, code 7.
type ServerStateUpdate struct {
	AOIID      uint32
	ServerTime uint64
	Entities   []EntityStateWire
}

func (*ServerStateUpdate) MsgType() MsgType { return MsgServerStateUpdate }
func (m *ServerStateUpdate) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, m.AOIID)
	writeU64(buf, m.ServerTime)
	writeU32(buf, uint32(len(m.Entities)))
	for _, e := range m.Entities {
		writeEntity(buf, e)
	}
}
func (m *ServerStateUpdate) decodePayload(r *bytes.Reader) error {
	var err error
	if m.AOIID, err = readU32(r); err != nil {
		return err
	}
	if m.ServerTime, err = readU64(r); err != nil {
		return err
	}
	n, err := readU32(r)
	if err != nil {
		return err
	}
	if n > 100000 { // overrun guard, there is no legitimate snapshot this large
		return ErrMalformedFrame
	}
	m.Entities = make([]EntityStateWire, 0, n)
	for i := uint32(0); i < n; i++ {
		e, err := readEntity(r)
		if err != nil {
			return err
		}
		m.Entities = append(m.Entities, e)
	}
	return nil
}

// PhysicsUpdate: S->C, code 8.
type PhysicsUpdate struct {
	Gravity        float64
	TimeScale      float64
	NearestBodyID  uint32
	Distance       float64
}

func (*PhysicsUpdate) MsgType() MsgType { return MsgPhysicsUpdate }
func (m *PhysicsUpdate) encodePayload(buf *bytes.Buffer) {
	writeFloat32(buf, m.Gravity)
	writeFloat32(buf, m.TimeScale)
	writeU32(buf, m.NearestBodyID)
	writeFloat32(buf, m.Distance)
}
func (m *PhysicsUpdate) decodePayload(r *bytes.Reader) error {
	var err error
	if m.Gravity, err = readFloat32(r); err != nil {
		return err
	}
	if m.TimeScale, err = readFloat32(r); err != nil {
		return err
	}
	if m.NearestBodyID, err = readU32(r); err != nil {
		return err
	}
	m.Distance, err = readFloat32(r)
	return err
}

// NPCUpdate: S->C, code 9.
type NPCUpdate struct {
	NPCs []EntityStateWire
}

func (*NPCUpdate) MsgType() MsgType { return MsgNPCUpdate }
func (m *NPCUpdate) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, uint32(len(m.NPCs)))
	for _, e := range m.NPCs {
		writeEntity(buf, e)
	}
}
func (m *NPCUpdate) decodePayload(r *bytes.Reader) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	if n > 100000 {
		return ErrMalformedFrame
	}
	m.NPCs = make([]EntityStateWire, 0, n)
	for i := uint32(0); i < n; i++ {
		e, err := readEntity(r)
		if err != nil {
			return err
		}
		m.NPCs = append(m.NPCs, e)
	}
	return nil
}

// AOISummaryWire is one row of the AOIUpdate summary list.
type AOISummaryWire struct {
	AOIID                  uint32
	PlayerCount, NPCCount  uint32
	Load                   float64
	UpdateHz               float64
}

// AOIUpdate: S->C, code 10.
type AOIUpdate struct {
	Summaries    []AOISummaryWire
	CurrentAOIID uint32
}

func (*AOIUpdate) MsgType() MsgType { return MsgAOIUpdate }
func (m *AOIUpdate) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, uint32(len(m.Summaries)))
	for _, s := range m.Summaries {
		writeU32(buf, s.AOIID)
		writeU32(buf, s.PlayerCount)
		writeU32(buf, s.NPCCount)
		writeFloat32(buf, s.Load)
		writeFloat32(buf, s.UpdateHz)
	}
	writeU32(buf, m.CurrentAOIID)
}
func (m *AOIUpdate) decodePayload(r *bytes.Reader) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	if n > 100000 {
		return ErrMalformedFrame
	}
	m.Summaries = make([]AOISummaryWire, 0, n)
	for i := uint32(0); i < n; i++ {
		var s AOISummaryWire
		if s.AOIID, err = readU32(r); err != nil {
			return err
		}
		if s.PlayerCount, err = readU32(r); err != nil {
			return err
		}
		if s.NPCCount, err = readU32(r); err != nil {
			return err
		}
		if s.Load, err = readFloat32(r); err != nil {
			return err
		}
		if s.UpdateHz, err = readFloat32(r); err != nil {
			return err
		}
		m.Summaries = append(m.Summaries, s)
	}
	m.CurrentAOIID, err = readU32(r)
	return err
}

// CelestialBodyStateWire is one row of a CelestialUpdate.
type CelestialBodyStateWire struct {
	BodyID        uint32
	PosX, PosY, PosZ float64
	VelX, VelY, VelZ float64
	OrbitProgress float64
}

// CelestialUpdate: S->C, code 11.
type CelestialUpdate struct {
	Bodies  []CelestialBodyStateWire
	SimTime float64
}

func (*CelestialUpdate) MsgType() MsgType { return MsgCelestialUpdate }
func (m *CelestialUpdate) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, uint32(len(m.Bodies)))
	for _, b := range m.Bodies {
		writeU32(buf, b.BodyID)
		writeVec3(buf, b.PosX, b.PosY, b.PosZ)
		writeVec3(buf, b.VelX, b.VelY, b.VelZ)
		writeFloat32(buf, b.OrbitProgress)
	}
	writeFloat32(buf, m.SimTime)
}
func (m *CelestialUpdate) decodePayload(r *bytes.Reader) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	if n > 100000 {
		return ErrMalformedFrame
	}
	m.Bodies = make([]CelestialBodyStateWire, 0, n)
	for i := uint32(0); i < n; i++ {
		var b CelestialBodyStateWire
		if b.BodyID, err = readU32(r); err != nil {
			return err
		}
		if b.PosX, b.PosY, b.PosZ, err = readVec3(r); err != nil {
			return err
		}
		if b.VelX, b.VelY, b.VelZ, err = readVec3(r); err != nil {
			return err
		}
		if b.OrbitProgress, err = readFloat32(r); err != nil {
			return err
		}
		m.Bodies = append(m.Bodies, b)
	}
	m.SimTime, err = readFloat32(r)
	return err
}

// SanityCheck: S->C, code 12.
type SanityCheck struct {
	CheckID   uint32
	Kind      byte // 0=position 1=velocity 2=acceleration 3=collision
	ExpectedX, ExpectedY, ExpectedZ float64
	Tolerance float64
}

func (*SanityCheck) MsgType() MsgType { return MsgSanityCheck }
func (m *SanityCheck) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, m.CheckID)
	writeByte(buf, m.Kind)
	writeVec3(buf, m.ExpectedX, m.ExpectedY, m.ExpectedZ)
	writeFloat32(buf, m.Tolerance)
}
func (m *SanityCheck) decodePayload(r *bytes.Reader) error {
	var err error
	if m.CheckID, err = readU32(r); err != nil {
		return err
	}
	if m.Kind, err = readByte(r); err != nil {
		return err
	}
	if m.ExpectedX, m.ExpectedY, m.ExpectedZ, err = readVec3(r); err != nil {
		return err
	}
	m.Tolerance, err = readFloat32(r)
	return err
}

// ServerReliableAck: S->C, code 13.
type ServerReliableAck struct{ AckedSeq uint32 }

func (*ServerReliableAck) MsgType() MsgType                  { return MsgServerReliableAck }
func (m *ServerReliableAck) encodePayload(buf *bytes.Buffer) { writeU32(buf, m.AckedSeq) }
func (m *ServerReliableAck) decodePayload(r *bytes.Reader) (err error) {
	m.AckedSeq, err = readU32(r)
	return err
}

// ClientReliableAck: C->S, code 14.
type ClientReliableAck struct{ AckedSeq uint32 }

func (*ClientReliableAck) MsgType() MsgType                  { return MsgClientReliableAck }
func (m *ClientReliableAck) encodePayload(buf *bytes.Buffer) { writeU32(buf, m.AckedSeq) }
func (m *ClientReliableAck) decodePayload(r *bytes.Reader) (err error) {
	m.AckedSeq, err = readU32(r)
	return err
}

// CheckResponse: C->S, code 15. A client's answer to a SanityCheck
// challenge, carrying the value it computed for the challenged kind.
type CheckResponse struct {
	CheckID                 uint32
	ReportedX, ReportedY, ReportedZ float64
}

func (*CheckResponse) MsgType() MsgType { return MsgCheckResponse }
func (m *CheckResponse) encodePayload(buf *bytes.Buffer) {
	writeU32(buf, m.CheckID)
	writeVec3(buf, m.ReportedX, m.ReportedY, m.ReportedZ)
}
func (m *CheckResponse) decodePayload(r *bytes.Reader) error {
	var err error
	if m.CheckID, err = readU32(r); err != nil {
		return err
	}
	m.ReportedX, m.ReportedY, m.ReportedZ, err = readVec3(r)
	return err
}
