package codec

import (
	"testing"

	"github.com/google/uuid"
)

func roundTrip(t *testing.T, h Header, m Message) Frame {
	t.Helper()
	data, err := Encode(h, m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return f
}

func TestRoundTripConnect(t *testing.T) {
	h := Header{Sequence: 7, TimestampMs: 1234, PeerID: uuid.New()}
	m := &Connect{Username: "A", Version: "1.0", Token: []byte{1, 2, 3}}
	f := roundTrip(t, h, m)

	got, ok := f.Payload.(*Connect)
	if !ok {
		t.Fatalf("wrong payload type %T", f.Payload)
	}
	if got.Username != m.Username || got.Version != m.Version {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if f.Header.Sequence != h.Sequence || f.Header.PeerID != h.PeerID {
		t.Errorf("header mismatch: got %+v want %+v", f.Header, h)
	}
}

func TestRoundTripServerStateUpdate(t *testing.T) {
	h := Header{Sequence: 1, PeerID: uuid.New()}
	m := &ServerStateUpdate{
		AOIID:      5,
		ServerTime: 99,
		Entities: []EntityStateWire{
			{EntityID: uuid.New(), Kind: 0, PosX: 1.5, PosY: -2.25, PosZ: 0, VelX: 1, RotW: 1},
		},
	}
	f := roundTrip(t, h, m)
	got := f.Payload.(*ServerStateUpdate)
	if len(got.Entities) != 1 || got.Entities[0].PosY != float64(float32(-2.25)) {
		t.Errorf("entity mismatch: %+v", got.Entities)
	}
}

func TestRoundTripCheckResponse(t *testing.T) {
	h := Header{Sequence: 3, PeerID: uuid.New()}
	m := &CheckResponse{CheckID: 9, ReportedX: 1.5, ReportedY: -2.25, ReportedZ: 0.125}
	f := roundTrip(t, h, m)

	got, ok := f.Payload.(*CheckResponse)
	if !ok {
		t.Fatalf("wrong payload type %T", f.Payload)
	}
	if got.CheckID != m.CheckID || got.ReportedX != m.ReportedX || got.ReportedY != m.ReportedY || got.ReportedZ != m.ReportedZ {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if !MsgCheckResponse.Reliable() {
		t.Error("expected CheckResponse to be classified as reliable")
	}
}

func TestDecodeShortInputIsMalformed(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeUnknownTypeIsMalformed(t *testing.T) {
	data := make([]byte, headerSize)
	data[0], data[1] = 0xFF, 0xFF
	_, err := Decode(data)
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeTruncatedPayloadIsMalformed(t *testing.T) {
	data, err := Encode(Header{PeerID: uuid.New()}, &Connect{Username: "longenoughname", Version: "1.0"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Decode(data[:len(data)-2])
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestEncodeOversizeFrameRejected(t *testing.T) {
	entities := make([]EntityStateWire, 200)
	for i := range entities {
		entities[i] = EntityStateWire{EntityID: uuid.New()}
	}
	_, err := Encode(Header{}, &ServerStateUpdate{Entities: entities})
	if err != ErrOversizeFrame {
		t.Fatalf("expected ErrOversizeFrame, got %v", err)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	data, err := Encode(Header{PeerID: uuid.New()}, &Ping{PingID: 42})
	if err != nil {
		t.Fatal(err)
	}
	compressed := Compress(data)
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if string(decompressed) != string(data) {
		t.Fatal("decompressed bytes did not match original")
	}
}

func TestCipherSealOpenRoundTrip(t *testing.T) {
	c, err := NewCipher("super-secret")
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte("hello galaxy")
	sealed, err := c.Seal(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("got %q, want %q", opened, plaintext)
	}
}

func TestCipherOpenRejectsTampering(t *testing.T) {
	c, _ := NewCipher("key-one")
	sealed, _ := c.Seal([]byte("payload"))
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := c.Open(sealed); err != ErrDecryptFailed {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}
