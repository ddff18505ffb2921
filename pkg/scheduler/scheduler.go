// Package scheduler drives the fixed-rate tick loop that
// composes transport, entity, celestial, aoi, and sanity into one
// deterministic step order.
package scheduler

import (
	"math/rand"

	"github.com/google/uuid"

	"stellarcore/pkg/aoi"
	"stellarcore/pkg/celestial"
	"stellarcore/pkg/codec"
	"stellarcore/pkg/config"
	"stellarcore/pkg/entity"
	"stellarcore/pkg/sanity"
	"stellarcore/pkg/transport"
)

// maxFramesPerTick bounds the first step's inbound drain, preventing
// one noisy peer from starving the rest of the tick's processing budget.
const maxFramesPerTick = 4096

// Counters are the per-tick statistics exposed to the admin surface.
type Counters struct {
	Tick              uint64
	FramesProcessed   int
	MutationsApplied  int
	SnapshotsSent     int
	SanityAuditsSent  int
	PeersTimedOut     int
	LastDtSeconds     float64
	OverranBudget     bool
}

// Scheduler owns no business logic itself: it sequences calls into the
// other components in the canonical order and nothing else.
type Scheduler struct {
	Hub        *transport.Hub
	Entities   *entity.Store
	Bodies     *celestial.Forest
	Zones      *aoi.Partitioner
	Auditor    *sanity.Auditor
	Settings   *config.Store
	Mutations  *config.Queue

	tick          uint64
	nowMs         uint64
	rng           *rand.Rand
	lastCounters  Counters
	lastAOIEvents []aoi.Event
}

// LastAOIEvents returns the enter/leave transitions produced by the most
// recent AOI rebuild. sendDueSnapshots does not read them: snapshots
// carry each zone's current members, with no explicit enter/leave
// entries.
func (s *Scheduler) LastAOIEvents() []aoi.Event { return s.lastAOIEvents }

func New(hub *transport.Hub, entities *entity.Store, bodies *celestial.Forest, zones *aoi.Partitioner, auditor *sanity.Auditor, settings *config.Store, mutations *config.Queue) *Scheduler {
	return &Scheduler{
		Hub:       hub,
		Entities:  entities,
		Bodies:    bodies,
		Zones:     zones,
		Auditor:   auditor,
		Settings:  settings,
		Mutations: mutations,
		rng:       rand.New(rand.NewSource(1)),
	}
}

// Step advances the simulation by one tick at time nowMs (epoch
// milliseconds), running the eight canonical stages in order. dtSeconds
// has already been capped by the caller's fixed-rate driver on overrun.
func (s *Scheduler) Step(nowMs uint64, dtSeconds float64, overran bool) Counters {
	s.tick++
	s.nowMs = nowMs
	settings := s.Settings.Snapshot()

	c := Counters{Tick: s.tick, LastDtSeconds: dtSeconds, OverranBudget: overran}

	// 1. Drain transport inbound, dispatch to entity/sanity/control handlers.
	frames := s.Hub.Drain(maxFramesPerTick)
	c.FramesProcessed = len(frames)
	for _, f := range frames {
		s.dispatch(f, settings)
	}

	// 2. Apply admin mutation queue.
	c.MutationsApplied = s.Mutations.Drain()

	// 3. Advance celestial simulator.
	s.Bodies.Advance(dtSeconds, settings.SimSpeed)

	// 4. Rebuild AOI assignments and update rates.
	s.rebuildAOI()

	// 5. Build and enqueue snapshots for AOIs due this tick.
	c.SnapshotsSent = s.sendDueSnapshots(settings)

	// 6. Issue sanity audits.
	c.SanityAuditsSent = s.issueSanityAudits(settings)

	// 7. Purge timed-out peers; send heartbeats where due.
	timeouts := s.Hub.TickMaintenance(nowMs,
		uint64(settings.HeartbeatIntervalMs),
		uint64(settings.ReliableResendIntervalMs),
		settings.MaxReliableResends,
	)
	for _, to := range timeouts {
		s.Entities.Despawn(to.PeerID)
		s.Auditor.ClearPeer(to.PeerID)
		s.Hub.Disconnect(to.PeerID, to.Reason, true)
	}
	c.PeersTimedOut = len(timeouts)

	// 8. Flush outbound and expose counters.
	s.Hub.FlushOutbound()
	s.lastCounters = c
	return c
}

func (s *Scheduler) LastCounters() Counters { return s.lastCounters }

func (s *Scheduler) rebuildAOI() {
	bodies := s.Bodies.All()
	bodyRefs := make([]entity.BodyRef, 0, len(bodies))
	for _, b := range bodies {
		bodyRefs = append(bodyRefs, entity.BodyRef{ID: b.ID, Position: b.Position, Type: entity.BodyType(b.Type)})
	}

	all := s.Entities.All()
	positions := make([]aoi.EntityPos, 0, len(all))
	for _, e := range all {
		s.Entities.RecomputeNearestBody(e.ID, bodyRefs)
		positions = append(positions, aoi.EntityPos{ID: e.ID, Position: e.Position, IsPlayer: e.Kind == entity.KindPlayer})
	}

	events := s.Zones.Assign(positions)
	for _, pos := range positions {
		s.Entities.SetAOI(pos.ID, s.Zones.ZoneOf(pos.ID))
	}
	s.lastAOIEvents = events
}

// dueZone reports whether zoneID's update_hz schedule fires this tick,
// phase-staggered by zone id so not all AOIs snapshot on the same tick.
func dueZone(zoneID uint32, updateHz, tickHz float64, tick uint64) bool {
	if updateHz <= 0 || tickHz <= 0 {
		return false
	}
	period := uint64(tickHz / updateHz)
	if period == 0 {
		period = 1
	}
	phase := uint64(zoneID) % period
	return (tick+phase)%period == 0
}

func (s *Scheduler) sendDueSnapshots(settings config.Settings) int {
	sent := 0
	zones := s.Zones.Zones()
	bodies := s.Bodies.All()

	bodyWire := make([]codec.CelestialBodyStateWire, 0, len(bodies))
	for _, b := range bodies {
		bodyWire = append(bodyWire, codec.CelestialBodyStateWire{
			BodyID: b.ID, PosX: b.Position.X, PosY: b.Position.Y, PosZ: b.Position.Z,
			VelX: b.Velocity.X, VelY: b.Velocity.Y, VelZ: b.Velocity.Z,
			OrbitProgress: b.OrbitProgress,
		})
	}
	summaries := make([]codec.AOISummaryWire, 0, len(zones))
	for _, z := range zones {
		summaries = append(summaries, codec.AOISummaryWire{
			AOIID: z.ID, PlayerCount: uint32(z.PlayerCount), NPCCount: uint32(z.NPCCount),
			Load: z.Load, UpdateHz: z.UpdateHz,
		})
	}

	for _, z := range zones {
		if !dueZone(z.ID, z.UpdateHz, settings.TickHz, s.tick) {
			continue
		}
		ids := s.Zones.ViewSet(z.ID)
		snap := s.Entities.Snapshot(ids)

		entities := make([]codec.EntityStateWire, 0, len(snap))
		for _, e := range snap {
			kind := byte(0)
			if e.Kind == entity.KindNPC {
				kind = 1
			}
			entities = append(entities, codec.EntityStateWire{
				EntityID: e.ID, Kind: kind,
				PosX: e.Position.X, PosY: e.Position.Y, PosZ: e.Position.Z,
				VelX: e.Velocity.X, VelY: e.Velocity.Y, VelZ: e.Velocity.Z,
				RotX: e.Rotation.X, RotY: e.Rotation.Y, RotZ: e.Rotation.Z, RotW: e.Rotation.W,
			})
		}

		for _, id := range ids {
			e, ok := s.Entities.Get(id)
			if !ok || e.Kind != entity.KindPlayer {
				continue
			}
			_ = s.Hub.SendUnreliable(id, codec.MsgServerStateUpdate, &codec.ServerStateUpdate{
				AOIID: z.ID, ServerTime: s.nowMs, Entities: entities,
			}, s.nowMs)
			_ = s.Hub.SendUnreliable(id, codec.MsgCelestialUpdate, &codec.CelestialUpdate{
				Bodies: bodyWire, SimTime: s.Bodies.SimTime(),
			}, s.nowMs)
			_ = s.Hub.SendUnreliable(id, codec.MsgAOIUpdate, &codec.AOIUpdate{
				Summaries: summaries, CurrentAOIID: z.ID,
			}, s.nowMs)
			sent++
		}
	}
	return sent
}

func (s *Scheduler) issueSanityAudits(settings config.Settings) int {
	var players []uuid.UUID
	for _, e := range s.Entities.All() {
		if e.Kind == entity.KindPlayer {
			players = append(players, e.ID)
		}
	}
	sampled := s.Auditor.SampleForAudit(players)

	sent := 0
	for _, id := range sampled {
		e, ok := s.Entities.Get(id)
		if !ok {
			continue
		}
		kind := sanity.CheckKind(s.rng.Intn(4))
		var expected = e.Position
		if kind == sanity.CheckVelocity {
			expected = e.Velocity
		}
		ch := s.Auditor.Issue(id, kind, expected, 1.0, s.nowMs)
		err := s.Hub.SendReliable(id, codec.MsgSanityCheck, &codec.SanityCheck{
			CheckID: ch.CheckID, Kind: byte(ch.Kind),
			ExpectedX: expected.X, ExpectedY: expected.Y, ExpectedZ: expected.Z,
			Tolerance: ch.Tolerance,
		}, s.nowMs)
		if err == nil {
			sent++
		}
	}
	s.Auditor.ExpireTimeouts(s.nowMs) // records a failure per expired challenge
	for _, id := range players {
		if s.Auditor.ShouldDisconnect(id) {
			s.Hub.Disconnect(id, "SanityViolation", true)
			s.Entities.Despawn(id)
			s.Auditor.ClearPeer(id)
		}
	}
	return sent
}

func (s *Scheduler) dispatch(f transport.Inbound, settings config.Settings) {
	switch msg := f.Payload.(type) {
	case *codec.Connect:
		s.handleConnect(f.PeerID, msg, settings)
	case *codec.ClientStateUpdate:
		s.handleClientStateUpdate(f.PeerID, msg, settings)
	case *codec.SanityCheck:
		// Server never receives SanityCheck; ignore (ProtocolViolation is
		// handled by the codec/peer state layer, not the dispatch table).
	case *codec.CheckResponse:
		s.handleCheckResponse(msg)
	}
}

// handleCheckResponse resolves an outstanding sanity challenge against
// the value the client reported, recording a failure on a bad answer (or
// a late one) so repeated failures still reach ShouldDisconnect.
func (s *Scheduler) handleCheckResponse(msg *codec.CheckResponse) {
	s.Auditor.Resolve(msg.CheckID, vec3(msg.ReportedX, msg.ReportedY, msg.ReportedZ), s.nowMs)
}

func (s *Scheduler) handleConnect(peerID uuid.UUID, msg *codec.Connect, settings config.Settings) {
	if _, exists := s.Entities.Get(peerID); exists {
		return
	}
	e := entity.Entity{
		ID:        peerID,
		Kind:      entity.KindPlayer,
		Rotation:  quatIdentity(),
		Connected: true,
	}
	if err := s.Entities.Insert(e); err != nil {
		return
	}
	_ = s.Hub.SendReliable(peerID, codec.MsgAccept, &codec.Accept{
		PeerID: peerID, ServerTime: s.nowMs,
	}, s.nowMs)
}

func (s *Scheduler) handleClientStateUpdate(peerID uuid.UUID, msg *codec.ClientStateUpdate, settings config.Settings) {
	update := entity.ClientUpdate{
		Position:      vec3(msg.PosX, msg.PosY, msg.PosZ),
		Velocity:      vec3(msg.VelX, msg.VelY, msg.VelZ),
		Rotation:      quat(msg.RotX, msg.RotY, msg.RotZ, msg.RotW),
		InputSequence: msg.InputSequence,
		NowMs:         s.nowMs,
	}
	outcome, err := s.Entities.ApplyClientUpdate(peerID, update, settings.VMax)
	if err == nil || outcome == entity.RejectedStaleSequence {
		return
	}

	// RejectedVelocity/RejectedPositionJump: a synchronous kinematic
	// bound was breached. The update itself is simply not applied; the
	// auditor tracks the failure so repeat offenders still get cut off.
	s.Auditor.RecordSyncFailure(peerID, s.nowMs)
	if s.Auditor.ShouldDisconnect(peerID) {
		s.Hub.Disconnect(peerID, "SanityViolation", true)
		s.Entities.Despawn(peerID)
		s.Auditor.ClearPeer(peerID)
	}
}
