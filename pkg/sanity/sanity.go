// Package sanity implements the two-mode anti-cheat checker: synchronous bounds rejection happens in pkg/entity at write
// time; this package drives the asynchronous sampled challenge/response
// audit and the repeated-failure disconnect policy.
package sanity

import (
	"math/rand"

	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

type CheckKind byte

const (
	CheckPosition CheckKind = iota
	CheckVelocity
	CheckAcceleration
	CheckCollision
)

// Challenge is an outstanding audit sent to a peer, recorded so a later
// CheckResponse (or timeout) can be resolved against it.
type Challenge struct {
	PeerID    uuid.UUID
	CheckID   uint32
	Kind      CheckKind
	Expected  mathx.Vec3
	Tolerance float64
	IssuedAtMs uint64
}

const responseTimeoutMs = 5000

// Auditor tracks outstanding challenges and per-peer failure history.
// Not safe for concurrent use; driven once per tick by the scheduler.
type Auditor struct {
	nextCheckID uint32
	outstanding map[uint32]Challenge
	failures    map[uuid.UUID][]uint64 // timestamps of failures, newest last

	samplePeriod  int
	failureWindow uint64
	maxFailures   int
	rng           *rand.Rand
}

// NewAuditor builds an auditor sampling 1/samplePeriod entities per tick
// and disconnecting a peer once maxFailures audit failures land within
// failureWindowMs of each other.
func NewAuditor(samplePeriod int, failureWindowMs uint64, maxFailures int, seed int64) *Auditor {
	return &Auditor{
		outstanding:   make(map[uint32]Challenge),
		failures:      make(map[uuid.UUID][]uint64),
		samplePeriod:  samplePeriod,
		failureWindow: failureWindowMs,
		maxFailures:   maxFailures,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// SampleForAudit deterministically-randomly picks ~1/N of the given
// peers for a challenge this tick.
func (a *Auditor) SampleForAudit(peers []uuid.UUID) []uuid.UUID {
	if a.samplePeriod <= 0 || len(peers) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(peers)/a.samplePeriod+1)
	for _, id := range peers {
		if a.rng.Intn(a.samplePeriod) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Issue records a new outstanding challenge for peerID and returns it,
// ready to be encoded as a codec.SanityCheck frame.
func (a *Auditor) Issue(peerID uuid.UUID, kind CheckKind, expected mathx.Vec3, tolerance float64, nowMs uint64) Challenge {
	a.nextCheckID++
	c := Challenge{
		PeerID:     peerID,
		CheckID:    a.nextCheckID,
		Kind:       kind,
		Expected:   expected,
		Tolerance:  tolerance,
		IssuedAtMs: nowMs,
	}
	a.outstanding[c.CheckID] = c
	return c
}

// Resolve compares a CheckResponse's reported value against the
// recorded challenge. A missing challenge id is treated as already
// resolved (stale duplicate) and ignored.
func (a *Auditor) Resolve(checkID uint32, reported mathx.Vec3, nowMs uint64) (pass bool, ok bool) {
	c, found := a.outstanding[checkID]
	if !found {
		return false, false
	}
	delete(a.outstanding, checkID)

	if nowMs-c.IssuedAtMs > responseTimeoutMs {
		a.recordFailure(c.PeerID, nowMs)
		return false, true
	}
	if c.Expected.Distance(reported) > c.Tolerance {
		a.recordFailure(c.PeerID, nowMs)
		return false, true
	}
	return true, true
}

// ExpireTimeouts scans outstanding challenges for ones older than the
// response timeout and records a failure for each, returning the
// checkIDs that timed out so the caller can drop them from transport
// bookkeeping too.
func (a *Auditor) ExpireTimeouts(nowMs uint64) []uint32 {
	var expired []uint32
	for id, c := range a.outstanding {
		if nowMs-c.IssuedAtMs > responseTimeoutMs {
			a.recordFailure(c.PeerID, nowMs)
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(a.outstanding, id)
	}
	return expired
}

// RecordSyncFailure logs a synchronous bounds-check rejection (velocity
// or position-jump) against peerID, feeding the same failure history as
// the asynchronous challenge/response audits so either path alone can
// trip ShouldDisconnect.
func (a *Auditor) RecordSyncFailure(peerID uuid.UUID, nowMs uint64) {
	a.recordFailure(peerID, nowMs)
}

func (a *Auditor) recordFailure(peerID uuid.UUID, nowMs uint64) {
	hist := append(a.failures[peerID], nowMs)
	var cutoff uint64
	if nowMs > a.failureWindow {
		cutoff = nowMs - a.failureWindow
	}
	pruned := hist[:0]
	for _, ts := range hist {
		if ts >= cutoff {
			pruned = append(pruned, ts)
		}
	}
	a.failures[peerID] = pruned
}

// ShouldDisconnect reports whether peerID has accumulated enough audit
// failures within the configured window to warrant disconnection.
func (a *Auditor) ShouldDisconnect(peerID uuid.UUID) bool {
	return len(a.failures[peerID]) >= a.maxFailures
}

// ClearPeer drops all bookkeeping for a peer that has disconnected.
func (a *Auditor) ClearPeer(peerID uuid.UUID) {
	delete(a.failures, peerID)
	for id, c := range a.outstanding {
		if c.PeerID == peerID {
			delete(a.outstanding, id)
		}
	}
}
