package sanity

import (
	"testing"

	"github.com/google/uuid"

	"stellarcore/pkg/mathx"
)

func TestIssueThenResolveWithinTolerance(t *testing.T) {
	a := NewAuditor(1, 60000, 3, 1)
	peer := uuid.New()
	c := a.Issue(peer, CheckPosition, mathx.Vec3{X: 10}, 0.5, 1000)

	pass, ok := a.Resolve(c.CheckID, mathx.Vec3{X: 10.2}, 1100)
	if !ok || !pass {
		t.Fatalf("expected pass within tolerance, got pass=%v ok=%v", pass, ok)
	}
	if a.ShouldDisconnect(peer) {
		t.Fatal("should not be flagged after a single pass")
	}
}

func TestResolveOutsideToleranceFails(t *testing.T) {
	a := NewAuditor(1, 60000, 3, 1)
	peer := uuid.New()
	c := a.Issue(peer, CheckVelocity, mathx.Vec3{X: 0}, 0.5, 1000)

	pass, ok := a.Resolve(c.CheckID, mathx.Vec3{X: 100}, 1100)
	if !ok || pass {
		t.Fatalf("expected failure outside tolerance, got pass=%v ok=%v", pass, ok)
	}
}

func TestRepeatedFailuresTriggerDisconnect(t *testing.T) {
	a := NewAuditor(1, 60000, 3, 1)
	peer := uuid.New()

	for i := 0; i < 3; i++ {
		c := a.Issue(peer, CheckVelocity, mathx.Vec3{}, 0.1, uint64(1000+i*100))
		a.Resolve(c.CheckID, mathx.Vec3{X: 1000}, uint64(1000+i*100+10))
	}
	if !a.ShouldDisconnect(peer) {
		t.Fatal("expected peer flagged for disconnect after 3 failures")
	}
}

func TestFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	a := NewAuditor(1, 1000, 3, 1)
	peer := uuid.New()

	c1 := a.Issue(peer, CheckVelocity, mathx.Vec3{}, 0.1, 0)
	a.Resolve(c1.CheckID, mathx.Vec3{X: 1000}, 10)

	c2 := a.Issue(peer, CheckVelocity, mathx.Vec3{}, 0.1, 5000)
	a.Resolve(c2.CheckID, mathx.Vec3{X: 1000}, 5010)

	c3 := a.Issue(peer, CheckVelocity, mathx.Vec3{}, 0.1, 5100)
	a.Resolve(c3.CheckID, mathx.Vec3{X: 1000}, 5110)

	if a.ShouldDisconnect(peer) {
		t.Fatal("expected old failure outside window to be pruned")
	}
}

func TestExpireTimeoutsRecordsFailure(t *testing.T) {
	a := NewAuditor(1, 60000, 1, 1)
	peer := uuid.New()
	a.Issue(peer, CheckPosition, mathx.Vec3{}, 0.1, 0)

	expired := a.ExpireTimeouts(10000)
	if len(expired) != 1 {
		t.Fatalf("expected one expired challenge, got %d", len(expired))
	}
	if !a.ShouldDisconnect(peer) {
		t.Fatal("expected disconnect flag after timeout")
	}
}

func TestRecordSyncFailureAccumulatesTowardDisconnect(t *testing.T) {
	a := NewAuditor(1, 60000, 3, 1)
	peer := uuid.New()

	a.RecordSyncFailure(peer, 1000)
	a.RecordSyncFailure(peer, 1100)
	if a.ShouldDisconnect(peer) {
		t.Fatal("should not be flagged after only 2 of 3 failures")
	}
	a.RecordSyncFailure(peer, 1200)
	if !a.ShouldDisconnect(peer) {
		t.Fatal("expected peer flagged for disconnect after 3 synchronous failures")
	}
}

func TestResolveUnknownChallengeIsIgnored(t *testing.T) {
	a := NewAuditor(1, 60000, 3, 1)
	_, ok := a.Resolve(999, mathx.Vec3{}, 100)
	if ok {
		t.Fatal("expected ok=false for unknown challenge id")
	}
}

func TestClearPeerDropsOutstandingAndHistory(t *testing.T) {
	a := NewAuditor(1, 60000, 1, 1)
	peer := uuid.New()
	c := a.Issue(peer, CheckPosition, mathx.Vec3{}, 0.1, 0)
	a.ClearPeer(peer)

	if _, ok := a.Resolve(c.CheckID, mathx.Vec3{}, 10); ok {
		t.Fatal("expected challenge cleared")
	}
	if a.ShouldDisconnect(peer) {
		t.Fatal("expected failure history cleared")
	}
}
