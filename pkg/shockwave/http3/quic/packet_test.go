package quic

import (
	"bytes"
	"errors"
	"testing"
)

func mustCID(t *testing.T, n int) ConnectionID {
	t.Helper()
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return ConnectionID(b)
}

func TestInitialPlainRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	src := mustCID(t, 8)
	const tagLen = 16

	plain := InitialPlain{
		InitialHeader: InitialHeader{
			LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src},
			Token:          []byte("test-token"),
		},
		Payload: []byte("test payload data"),
	}

	buf, err := plain.Render(nil, 42, 2, tagLen, 0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	parsed, n, err := parseInitialPlain(buf, tagLen)
	if err != nil {
		t.Fatalf("parseInitialPlain() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if !parsed.DstID.Equal(dst) {
		t.Errorf("DstID = %x, want %x", parsed.DstID, dst)
	}
	if !parsed.SrcID.Equal(src) {
		t.Errorf("SrcID = %x, want %x", parsed.SrcID, src)
	}
	if !bytes.Equal(parsed.Token, plain.Token) {
		t.Errorf("Token = %x, want %x", parsed.Token, plain.Token)
	}
	if parsed.WirePN != 42 {
		t.Errorf("WirePN = %d, want 42", parsed.WirePN)
	}
	if !bytes.Equal(parsed.Payload, plain.Payload) {
		t.Errorf("Payload = %x, want %x", parsed.Payload, plain.Payload)
	}
}

func TestHandshakePlainRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	src := mustCID(t, 8)
	const tagLen = 16

	plain := HandshakePlain{
		HandshakeHeader: HandshakeHeader{handshakeLikeHeader{LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src}}},
		Payload:         []byte("handshake data"),
	}

	buf, err := plain.Render(nil, 100, 2, tagLen, 0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	parsed, n, err := parseHandshakePlain(buf, tagLen)
	if err != nil {
		t.Fatalf("parseHandshakePlain() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if !bytes.Equal(parsed.Payload, plain.Payload) {
		t.Errorf("Payload = %x, want %x", parsed.Payload, plain.Payload)
	}
}

func TestZeroRTTPlainRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	src := mustCID(t, 8)
	const tagLen = 16

	plain := ZeroRTTPlain{
		ZeroRTTHeader: ZeroRTTHeader{handshakeLikeHeader{LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src}}},
		Payload:       []byte("early data"),
	}

	buf, err := plain.Render(nil, 7, 1, tagLen, 0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	parsed, _, err := parseZeroRTTPlain(buf, tagLen)
	if err != nil {
		t.Fatalf("parseZeroRTTPlain() error = %v", err)
	}
	if !bytes.Equal(parsed.Payload, plain.Payload) {
		t.Errorf("Payload = %x, want %x", parsed.Payload, plain.Payload)
	}
}

func TestOneRTTPlainRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	const tagLen = 16

	plain := OneRTTPlain{
		OneRTTHeader: OneRTTHeader{DstID: dst},
		Payload:      []byte("application data"),
	}

	buf, err := plain.Render(nil, 500, 2, tagLen, 0, false, false)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	fixedLen := func([]byte) (int, error) { return len(dst), nil }
	parsed, n, err := parseOneRTTPlain(buf, tagLen, fixedLen)
	if err != nil {
		t.Fatalf("parseOneRTTPlain() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if !parsed.DstID.Equal(dst) {
		t.Errorf("DstID = %x, want %x", parsed.DstID, dst)
	}
	if parsed.WirePN != 500 {
		t.Errorf("WirePN = %d, want 500", parsed.WirePN)
	}
	if !bytes.Equal(parsed.Payload, plain.Payload) {
		t.Errorf("Payload = %x, want %x", parsed.Payload, plain.Payload)
	}
}

func TestRetryPacketRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	src := mustCID(t, 8)

	retry := RetryPacket{
		LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src},
		RetryToken:     []byte("retry-token-data"),
		IntegrityTag: [16]byte{
			0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
			0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
		},
	}

	buf, err := retry.Render(nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	parsed, n, err := parseRetryPacket(buf)
	if err != nil {
		t.Fatalf("parseRetryPacket() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if !bytes.Equal(parsed.RetryToken, retry.RetryToken) {
		t.Errorf("RetryToken = %x, want %x", parsed.RetryToken, retry.RetryToken)
	}
	if parsed.IntegrityTag != retry.IntegrityTag {
		t.Errorf("IntegrityTag = %x, want %x", parsed.IntegrityTag, retry.IntegrityTag)
	}
}

func TestAppendRetryPseudoPacket(t *testing.T) {
	origDst := mustCID(t, 8)
	dst := mustCID(t, 8)
	src := mustCID(t, 8)

	retry := RetryPacket{
		LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src},
		RetryToken:     []byte("tok"),
	}

	pseudo, err := AppendRetryPseudoPacket(nil, origDst, retry)
	if err != nil {
		t.Fatalf("AppendRetryPseudoPacket() error = %v", err)
	}
	if pseudo[0] != byte(len(origDst)) {
		t.Errorf("pseudo[0] = %d, want %d", pseudo[0], len(origDst))
	}
	if !bytes.Equal(pseudo[1:1+len(origDst)], origDst) {
		t.Errorf("pseudo orig dst id mismatch")
	}
}

func TestVersionNegotiationPacketRoundTrip(t *testing.T) {
	dst := mustCID(t, 8)
	src := mustCID(t, 8)

	pkt := VersionNegotiationPacket{
		LongHeaderBase:    LongHeaderBase{DstID: dst, SrcID: src},
		SupportedVersions: []uint32{Version1, 0xabababab},
	}

	buf, err := pkt.Render(nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	parsed, n, err := parseVersionNegotiationPacket(buf)
	if err != nil {
		t.Fatalf("parseVersionNegotiationPacket() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if parsed.Version != 0 {
		t.Errorf("Version = %x, want 0", parsed.Version)
	}
	if !parsed.DstID.Equal(dst) || !parsed.SrcID.Equal(src) {
		t.Errorf("conn id mismatch")
	}
	if len(parsed.SupportedVersions) != 2 || parsed.SupportedVersions[0] != Version1 {
		t.Errorf("SupportedVersions = %v, want %v", parsed.SupportedVersions, pkt.SupportedVersions)
	}
}

func TestStatelessResetRoundTrip(t *testing.T) {
	p := StatelessResetPacket{
		UnpredictableBits: []byte{0x11, 0x22, 0x33, 0x44, 0x55},
		Token:             [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	}

	buf, err := p.Render(nil, 0xff)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf[0]&0xC0 != 0x40 {
		t.Errorf("first byte = %#x, want short header with fixed bit", buf[0])
	}

	parsed, err := parseStatelessReset(buf)
	if err != nil {
		t.Fatalf("parseStatelessReset() error = %v", err)
	}
	if parsed.Token != p.Token {
		t.Errorf("Token = %x, want %x", parsed.Token, p.Token)
	}
}

func TestParseInvalidPackets(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"too small", []byte{0x80}},
		{"missing fixed bit", []byte{0x80, 0x00, 0x00, 0x00, 0x01, 0x00}},
		{"zero version on non-version-neg type", []byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseLongHeaderBase(tt.data, PacketTypeInitial)
			if err == nil {
				t.Error("parseLongHeaderBase() should fail for invalid packet")
			}
		})
	}
}

func TestParseInitialPlainShortBuffer(t *testing.T) {
	_, _, err := parseInitialPlain([]byte{0xC0, 0, 0, 0, 1}, 16)
	if !errors.Is(err, ErrPacketTooSmall) && err == nil {
		t.Fatalf("expected an error for a short buffer, got nil")
	}
}

func BenchmarkInitialPlainRender(b *testing.B) {
	dst := ConnectionID(make([]byte, 8))
	src := ConnectionID(make([]byte, 8))
	plain := InitialPlain{
		InitialHeader: InitialHeader{
			LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src},
			Token:          []byte("test-token"),
		},
		Payload: make([]byte, 1200),
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := plain.Render(nil, 42, 2, 16, 0)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInitialPlainParse(b *testing.B) {
	dst := ConnectionID(make([]byte, 8))
	src := ConnectionID(make([]byte, 8))
	plain := InitialPlain{
		InitialHeader: InitialHeader{
			LongHeaderBase: LongHeaderBase{Version: Version1, DstID: dst, SrcID: src},
			Token:          []byte("test-token"),
		},
		Payload: make([]byte, 1200),
	}
	buf, err := plain.Render(nil, 42, 2, 16, 0)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := parseInitialPlain(buf, 16)
		if err != nil {
			b.Fatal(err)
		}
	}
}
