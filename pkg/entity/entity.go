// Package entity is the server-authoritative entity store:
// a compact table keyed by id, indexed by aoi and nearest celestial body,
// written exclusively by the tick scheduler.
package entity

import (
	"errors"

	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

type Kind byte

const (
	KindPlayer Kind = iota
	KindNPC
)

// Entity is the full per-connected-object record. Player-only fields are
// zero for NPCs rather than split into a separate type, favoring one
// flat struct over a read/write or player/NPC type split.
type Entity struct {
	ID                uuid.UUID
	Kind              Kind
	Position          mathx.Vec3
	Velocity          mathx.Vec3
	Rotation          mathx.Quat
	NearestBodyID     uint32
	AOIID             uint32 // 0 means unassigned
	LastUpdateTimeMs  uint64
	LastInputSequence uint32

	PeerAddress          string
	Connected            bool
	AuthTokenFingerprint [32]byte
}

var (
	ErrVelocityBound   = errors.New("entity: velocity exceeds v_max")
	ErrPositionJump    = errors.New("entity: position delta exceeds bound")
	ErrStaleSequence   = errors.New("entity: input_sequence not strictly increasing")
	ErrUnknownEntity   = errors.New("entity: unknown id")
	ErrDuplicateEntity = errors.New("entity: id already exists")
)

// BodyRef is the minimal view of a celestial body the store needs to
// recompute nearest_body_id, supplied fresh each tick by the celestial
// simulator.
type BodyRef struct {
	ID       uint32
	Position mathx.Vec3
	Type     BodyType
}

// BodyType mirrors the celestial body kinds, used to weight
// nearest-body selection (planets > moons > stations > asteroids).
type BodyType byte

const (
	BodyStar BodyType = iota
	BodyPlanet
	BodyMoon
	BodyAsteroid
	BodyComet
	BodyStation
)

// bodyTypeWeight lowers the effective distance for higher-priority body
// types so a nearby moon doesn't edge out an obviously-relevant planet.
func bodyTypeWeight(t BodyType) float64 {
	switch t {
	case BodyPlanet:
		return 1.0
	case BodyMoon:
		return 1.15
	case BodyStation:
		return 1.3
	case BodyAsteroid, BodyComet:
		return 1.5
	default: // star
		return 1.0
	}
}

// Store is the authoritative entity table. Not safe for concurrent
// mutation; the tick scheduler is its sole writer.
type Store struct {
	byID         map[uuid.UUID]*Entity
	byAOI        map[uint32]map[uuid.UUID]struct{}
	byNearestBdy map[uint32]map[uuid.UUID]struct{}
}

func NewStore() *Store {
	return &Store{
		byID:         make(map[uuid.UUID]*Entity),
		byAOI:        make(map[uint32]map[uuid.UUID]struct{}),
		byNearestBdy: make(map[uint32]map[uuid.UUID]struct{}),
	}
}

func (s *Store) Get(id uuid.UUID) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *Store) Count() int { return len(s.byID) }

// Insert adds a brand-new entity (handshake Accept, spawn_npc).
func (s *Store) Insert(e Entity) error {
	if _, exists := s.byID[e.ID]; exists {
		return ErrDuplicateEntity
	}
	cp := e
	s.byID[e.ID] = &cp
	s.indexAOI(cp.ID, 0, cp.AOIID)
	s.indexNearestBody(cp.ID, 0, cp.NearestBodyID)
	return nil
}

// Remove deletes an entity (despawn, disconnect) and clears its indices.
func (s *Store) Remove(id uuid.UUID) {
	e, ok := s.byID[id]
	if !ok {
		return
	}
	s.indexAOI(id, e.AOIID, 0)
	s.indexNearestBody(id, e.NearestBodyID, 0)
	delete(s.byID, id)
}

func (s *Store) indexAOI(id uuid.UUID, oldAOI, newAOI uint32) {
	if oldAOI != 0 {
		if set, ok := s.byAOI[oldAOI]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byAOI, oldAOI)
			}
		}
	}
	if newAOI != 0 {
		set, ok := s.byAOI[newAOI]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			s.byAOI[newAOI] = set
		}
		set[id] = struct{}{}
	}
}

func (s *Store) indexNearestBody(id uuid.UUID, oldBody, newBody uint32) {
	if oldBody != 0 {
		if set, ok := s.byNearestBdy[oldBody]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byNearestBdy, oldBody)
			}
		}
	}
	if newBody != 0 {
		set, ok := s.byNearestBdy[newBody]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			s.byNearestBdy[newBody] = set
		}
		set[id] = struct{}{}
	}
}

// IDsInAOI returns the entity ids currently bound to aoiID.
func (s *Store) IDsInAOI(aoiID uint32) []uuid.UUID {
	set := s.byAOI[aoiID]
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SetAOI rebinds an entity's aoi_id, maintaining the index. Called by
// the AOI partitioner at tick boundary during assignment rebuild.
func (s *Store) SetAOI(id uuid.UUID, aoiID uint32) {
	e, ok := s.byID[id]
	if !ok {
		return
	}
	old := e.AOIID
	e.AOIID = aoiID
	s.indexAOI(id, old, aoiID)
}

// RecomputeNearestBody scans bodies for the minimizing-weighted-distance
// body and updates the index.
func (s *Store) RecomputeNearestBody(id uuid.UUID, bodies []BodyRef) {
	e, ok := s.byID[id]
	if !ok || len(bodies) == 0 {
		return
	}
	best := bodies[0].ID
	bestScore := e.Position.Distance(bodies[0].Position) * bodyTypeWeight(bodies[0].Type)
	for _, b := range bodies[1:] {
		score := e.Position.Distance(b.Position) * bodyTypeWeight(b.Type)
		if score < bestScore {
			bestScore = score
			best = b.ID
		}
	}
	old := e.NearestBodyID
	e.NearestBodyID = best
	s.indexNearestBody(id, old, best)
}

// Snapshot returns a read-only copy of the named entities, for
// replication. It never mutates the store.
func (s *Store) Snapshot(ids []uuid.UUID) []Entity {
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.byID[id]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// All returns every live entity, for admin listing (list_entities).
func (s *Store) All() []Entity {
	out := make([]Entity, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, *e)
	}
	return out
}
