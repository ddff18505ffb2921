package adminstore

import "testing"

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBanPeerThenIsBanned(t *testing.T) {
	s := openMemory(t)
	if err := s.BanPeer("peer-1", "SanityViolation", 1000); err != nil {
		t.Fatal(err)
	}
	banned, err := s.IsBanned("peer-1")
	if err != nil {
		t.Fatal(err)
	}
	if !banned {
		t.Fatal("expected peer-1 to be banned")
	}
	if banned, _ := s.IsBanned("peer-2"); banned {
		t.Fatal("expected peer-2 to not be banned")
	}
}

func TestAuditIssuedThenResolved(t *testing.T) {
	s := openMemory(t)
	if err := s.RecordAuditIssued("peer-1", 42, 0, 1000); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAuditResolved("peer-1", 42, 1100, true); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCelestialSnapshotMissingIsNotError(t *testing.T) {
	s := openMemory(t)
	blob, ok, err := s.LoadCelestialSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if ok || blob != nil {
		t.Fatalf("expected no snapshot present, got ok=%v blob=%v", ok, blob)
	}
}

func TestSaveThenLoadCelestialSnapshot(t *testing.T) {
	s := openMemory(t)
	want := []byte{1, 2, 3, 4}
	if err := s.SaveCelestialSnapshot(want, 5000); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.LoadCelestialSnapshot()
	if err != nil || !ok {
		t.Fatalf("expected snapshot loaded, err=%v ok=%v", err, ok)
	}
	if string(got) != string(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRecordTick(t *testing.T) {
	s := openMemory(t)
	if err := s.RecordTick(1, 1000, 3, 1, 2, 0, false); err != nil {
		t.Fatal(err)
	}
}
