package quic

import (
	"bytes"
	"testing"
)

// TestConnectionReceivePacketRoundTripsInitial builds a real protected
// Initial packet with CreatePacket/ProtectPacket and checks that
// ReceivePacket recovers the exact frame bytes (the PADDING frames that
// useFull places ahead of the rendered payload, then the payload) through
// the Cipher parse + UnprotectPacket path.
func TestConnectionReceivePacketRoundTripsInitial(t *testing.T) {
	destID := ConnectionID{1, 2, 3, 4, 5, 6, 7, 8}
	srcID := ConnectionID{9, 9, 9, 9}

	keys, err := NewInitialKeys(destID, true)
	if err != nil {
		t.Fatalf("NewInitialKeys() error = %v", err)
	}

	payload := []byte{0x01} // PING frame type, enough to check round-trip
	summary := PacketSummary{
		Type:         PacketTypeInitial,
		Version:      Version1,
		DstID:        destID,
		SrcID:        srcID,
		PacketNumber: 0,
	}
	buf := make([]byte, MinInitialPacket)
	cp, err := CreatePacket(buf, summary, -1, keys.TagLen(), true, func(b []byte) (int, error) {
		return copy(b, payload), nil
	})
	if err != nil {
		t.Fatalf("CreatePacket() error = %v", err)
	}

	wire, err := keys.ProtectPacket(cp)
	if err != nil {
		t.Fatalf("ProtectPacket() error = %v", err)
	}

	conn := NewConnection(DefaultConfig(), nil, nil, nil, destID, 0)
	conn.initialKeys = keys

	got, level, err := conn.ReceivePacket(wire, 0)
	if err != nil {
		t.Fatalf("ReceivePacket() error = %v", err)
	}
	if level != EncryptionLevelInitial {
		t.Errorf("level = %v, want %v", level, EncryptionLevelInitial)
	}
	if len(got) < len(payload) {
		t.Fatalf("payload length = %d, want at least %d", len(got), len(payload))
	}
	want := append(make([]byte, len(got)-len(payload)), payload...)
	if !bytes.Equal(got, want) {
		t.Errorf("payload = %v, want PADDING then %v", got, payload)
	}
}

// TestConnectionReceivePacketRejectsUnknownInitialKeys confirms a
// missing-keys path fails closed instead of panicking.
func TestConnectionReceivePacketRejectsUnknownInitialKeys(t *testing.T) {
	conn := NewConnection(DefaultConfig(), nil, nil, nil, ConnectionID{1}, 0)

	wire := []byte{HeaderFormLong | LongHeaderTypeInitial, 0, 0, 0, 1, 0x04, 1, 2, 3, 4}
	if _, _, err := conn.ReceivePacket(wire, 0); err == nil {
		t.Error("expected an error decrypting an Initial packet with no initial keys installed")
	}
}
