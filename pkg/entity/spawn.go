package entity

import (
	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

// Template describes an NPC to spawn, admin-initiated via the mutation
// queue.
type Template struct {
	Position mathx.Vec3
	Velocity mathx.Vec3
	Rotation mathx.Quat
}

// SpawnNPC creates a new NPC entity at the given pose, subject to the
// same kinematic validation as a client update.
func (s *Store) SpawnNPC(t Template, vMax float64) (uuid.UUID, error) {
	if t.Velocity.Len() > vMax {
		return uuid.Nil, ErrVelocityBound
	}
	id := uuid.New()
	e := Entity{
		ID:       id,
		Kind:     KindNPC,
		Position: t.Position,
		Velocity: t.Velocity,
		Rotation: t.Rotation,
	}
	if e.Rotation == (mathx.Quat{}) {
		e.Rotation = mathx.Quat{W: 1}
	}
	if err := s.Insert(e); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Despawn removes an NPC or disconnects a player entity from the store.
func (s *Store) Despawn(id uuid.UUID) {
	s.Remove(id)
}
