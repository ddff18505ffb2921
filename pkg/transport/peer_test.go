package transport

import "testing"

func TestAcceptRxDropsExactDuplicate(t *testing.T) {
	p := &Peer{}
	if !p.acceptRx(10) {
		t.Fatal("first frame should be accepted")
	}
	if p.acceptRx(10) {
		t.Fatal("exact duplicate should be dropped")
	}
}

func TestAcceptRxDropsBitmapDuplicate(t *testing.T) {
	p := &Peer{}
	p.acceptRx(10)
	p.acceptRx(12) // gap at 11
	if !p.acceptRx(11) {
		t.Fatal("out-of-order frame filling the gap should be accepted once")
	}
	if p.acceptRx(11) {
		t.Fatal("repeat of the gap-filling frame should now be a duplicate")
	}
}

func TestAcceptRxAdvancesOnNewerSequence(t *testing.T) {
	p := &Peer{}
	p.acceptRx(5)
	if !p.acceptRx(6) {
		t.Fatal("strictly newer sequence should be accepted")
	}
	if p.rxLastSeq != 6 {
		t.Errorf("expected rxLastSeq advanced to 6, got %d", p.rxLastSeq)
	}
}

func TestEnqueueUnreliableDropsOldestOnOverflow(t *testing.T) {
	p := &Peer{}
	for i := 0; i < maxUnreliableQueue+5; i++ {
		p.enqueueUnreliable([]byte{byte(i)})
	}
	q := p.drainUnreliable()
	if len(q) != maxUnreliableQueue {
		t.Fatalf("expected queue capped at %d, got %d", maxUnreliableQueue, len(q))
	}
	if q[0][0] != 5 {
		t.Errorf("expected oldest entries dropped, first remaining is %d", q[0][0])
	}
}

func TestDueResendsExceedingMaxReportsDeadPeer(t *testing.T) {
	p := &Peer{}
	p.enqueueReliable(1, []byte("x"), 0)

	_, dead := p.dueResends(1000, 100, 2)
	if dead {
		t.Fatal("should not be dead on first overdue resend")
	}
	_, dead = p.dueResends(2000, 100, 2)
	if dead {
		t.Fatal("should not be dead on second overdue resend (resendCount now at max)")
	}
	_, dead = p.dueResends(3000, 100, 2)
	if !dead {
		t.Fatal("expected dead after exceeding maxResends")
	}
}

func TestAckReliableRetiresOutboxEntry(t *testing.T) {
	p := &Peer{}
	p.enqueueReliable(1, []byte("a"), 0)
	p.enqueueReliable(2, []byte("b"), 0)
	p.ackReliable(1)
	if len(p.reliableBox) != 1 || p.reliableBox[0].seq != 2 {
		t.Fatalf("expected only seq 2 remaining, got %+v", p.reliableBox)
	}
}

func TestUpdateRTTEWMA(t *testing.T) {
	p := &Peer{}
	p.updateRTT(100)
	if p.RTTEstimateMs != 100 {
		t.Fatalf("expected first sample to seed RTT, got %v", p.RTTEstimateMs)
	}
	p.updateRTT(200)
	want := (7.0/8.0)*100 + (1.0/8.0)*200
	if p.RTTEstimateMs != want {
		t.Fatalf("expected EWMA %v, got %v", want, p.RTTEstimateMs)
	}
}
