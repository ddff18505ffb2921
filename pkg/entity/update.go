package entity

import (
	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

// ClientUpdate is the validated input side of codec.ClientStateUpdate,
// decoupled from the wire type so the store has no codec dependency.
type ClientUpdate struct {
	Position      mathx.Vec3
	Velocity      mathx.Vec3
	Rotation      mathx.Quat
	InputSequence uint32
	NowMs         uint64
}

// Outcome reports what apply_client_update actually did, so the caller
// (the tick scheduler, dispatching to the sanity auditor) knows whether
// to log a sanity violation.
type Outcome int

const (
	Applied Outcome = iota
	RejectedStaleSequence
	RejectedVelocity
	RejectedPositionJump
)

// PositionTolerance multiplies the max-possible-travel bound computed
// from v_max and elapsed time, absorbing jitter in client tick timing.
const PositionTolerance = 1.25

// ApplyClientUpdate validates and, if valid, commits a client-reported
// state. vMax is read from the live settings snapshot by the caller. A
// rejected update leaves the stored entity state untouched; the caller
// is responsible for routing the rejection to the sanity auditor for
// audit bookkeeping.
func (s *Store) ApplyClientUpdate(id uuid.UUID, u ClientUpdate, vMax float64) (Outcome, error) {
	e, ok := s.byID[id]
	if !ok {
		return RejectedStaleSequence, ErrUnknownEntity
	}

	if u.InputSequence <= e.LastInputSequence && e.LastUpdateTimeMs != 0 {
		return RejectedStaleSequence, ErrStaleSequence
	}

	speed := u.Velocity.Len()
	if speed > vMax {
		return RejectedVelocity, ErrVelocityBound
	}

	if e.LastUpdateTimeMs != 0 && u.NowMs > e.LastUpdateTimeMs {
		dtSeconds := float64(u.NowMs-e.LastUpdateTimeMs) / 1000.0
		maxDelta := vMax * dtSeconds * PositionTolerance
		if e.Position.Distance(u.Position) > maxDelta {
			return RejectedPositionJump, ErrPositionJump
		}
	}

	e.Position = u.Position
	e.Velocity = u.Velocity
	e.Rotation = u.Rotation
	e.LastInputSequence = u.InputSequence
	e.LastUpdateTimeMs = u.NowMs
	return Applied, nil
}
