package entity

import (
	"testing"

	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

func newPlayer(s *Store, pos mathx.Vec3) uuid.UUID {
	id := uuid.New()
	_ = s.Insert(Entity{ID: id, Kind: KindPlayer, Position: pos, Rotation: mathx.Quat{W: 1}})
	return id
}

func TestApplyClientUpdateAcceptsWithinBounds(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})

	outcome, err := s.ApplyClientUpdate(id, ClientUpdate{
		Position:      mathx.Vec3{X: 1},
		Velocity:      mathx.Vec3{X: 1},
		InputSequence: 1,
		NowMs:         1000,
	}, 100)
	if err != nil || outcome != Applied {
		t.Fatalf("expected Applied, got %v / %v", outcome, err)
	}

	e, _ := s.Get(id)
	if e.LastInputSequence != 1 {
		t.Errorf("sequence not recorded: %+v", e)
	}
}

func TestApplyClientUpdateRejectsStaleSequence(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})
	_, _ = s.ApplyClientUpdate(id, ClientUpdate{InputSequence: 5, NowMs: 100}, 100)

	outcome, err := s.ApplyClientUpdate(id, ClientUpdate{InputSequence: 5, NowMs: 200}, 100)
	if err != ErrStaleSequence || outcome != RejectedStaleSequence {
		t.Fatalf("expected stale sequence rejection, got %v / %v", outcome, err)
	}
}

func TestApplyClientUpdateRejectsVelocityOverBound(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})

	outcome, err := s.ApplyClientUpdate(id, ClientUpdate{
		Velocity:      mathx.Vec3{X: 1000},
		InputSequence: 1,
		NowMs:         100,
	}, 10)
	if err != ErrVelocityBound || outcome != RejectedVelocity {
		t.Fatalf("expected velocity rejection, got %v / %v", outcome, err)
	}
}

func TestApplyClientUpdateRejectsPositionJump(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})
	_, _ = s.ApplyClientUpdate(id, ClientUpdate{Position: mathx.Vec3{}, InputSequence: 1, NowMs: 1000}, 10)

	outcome, err := s.ApplyClientUpdate(id, ClientUpdate{
		Position:      mathx.Vec3{X: 100000},
		InputSequence: 2,
		NowMs:         1100,
	}, 10)
	if err != ErrPositionJump || outcome != RejectedPositionJump {
		t.Fatalf("expected position jump rejection, got %v / %v", outcome, err)
	}
}

func TestRecomputeNearestBodyPrefersWeightedDistance(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{X: 10})

	bodies := []BodyRef{
		{ID: 1, Position: mathx.Vec3{X: 9}, Type: BodyAsteroid}, // closer but heavily weighted down
		{ID: 2, Position: mathx.Vec3{X: 5}, Type: BodyPlanet},
	}
	s.RecomputeNearestBody(id, bodies)
	e, _ := s.Get(id)
	if e.NearestBodyID != 1 {
		t.Errorf("expected body 1 (distance 1 * 1.5 = 1.5 beats body 2's distance 5), got %d", e.NearestBodyID)
	}
}

func TestAOIIndexTracksRebinding(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})
	s.SetAOI(id, 7)
	if ids := s.IDsInAOI(7); len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected entity bound to AOI 7, got %v", ids)
	}
	s.SetAOI(id, 8)
	if ids := s.IDsInAOI(7); len(ids) != 0 {
		t.Errorf("expected AOI 7 empty after rebind, got %v", ids)
	}
	if ids := s.IDsInAOI(8); len(ids) != 1 {
		t.Errorf("expected AOI 8 to hold entity, got %v", ids)
	}
}

func TestDespawnClearsIndices(t *testing.T) {
	s := NewStore()
	id := newPlayer(s, mathx.Vec3{})
	s.SetAOI(id, 3)
	s.Despawn(id)
	if _, ok := s.Get(id); ok {
		t.Fatal("expected entity removed")
	}
	if ids := s.IDsInAOI(3); len(ids) != 0 {
		t.Errorf("expected AOI 3 empty after despawn, got %v", ids)
	}
}

func TestSpawnNPCRejectsOverspeed(t *testing.T) {
	s := NewStore()
	_, err := s.SpawnNPC(Template{Velocity: mathx.Vec3{X: 50}}, 10)
	if err != ErrVelocityBound {
		t.Fatalf("expected ErrVelocityBound, got %v", err)
	}
}
