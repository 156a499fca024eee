package quic

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// QUIC Packet Format (RFC 9000 Section 17).
//
// Long Header Packets (used during handshake): Initial, 0-RTT, Handshake,
// Retry, Version Negotiation.
// Short Header Packets (used after handshake): 1-RTT protected packets,
// and the Stateless Reset that is shaped to look like one.
//
// Every type below splits into a header ("partial"), a Plain view (payload
// still in the clear, used before encryption / after decryption) and a
// Cipher view (payload still protected, used for the bytes straight off
// the wire). Cipher has no renderer: encrypted packets are produced by the
// creation pipeline in packet_creation.go, which is the only code that
// knows the packet number at render time.

// PacketType identifies which of the RFC 9000 Section 17 packet shapes a
// header belongs to.
type PacketType uint8

const (
	PacketTypeInitial PacketType = iota
	PacketType0RTT
	PacketTypeHandshake
	PacketTypeRetry
	PacketType1RTT
	PacketTypeVersionNegotiation
	PacketTypeStatelessReset
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeInitial:
		return "Initial"
	case PacketType0RTT:
		return "0-RTT"
	case PacketTypeHandshake:
		return "Handshake"
	case PacketTypeRetry:
		return "Retry"
	case PacketType1RTT:
		return "1-RTT"
	case PacketTypeVersionNegotiation:
		return "VersionNegotiation"
	case PacketTypeStatelessReset:
		return "StatelessReset"
	default:
		return fmt.Sprintf("PacketType(%d)", uint8(t))
	}
}

const (
	// Version1 is the only QUIC version this package speaks.
	Version1 = 0x00000001

	HeaderFormLong  = 0x80
	HeaderFormShort = 0x00
	FixedBit        = 0x40

	LongHeaderTypeInitial   = 0x00
	LongHeaderType0RTT      = 0x10
	LongHeaderTypeHandshake = 0x20
	LongHeaderTypeRetry     = 0x30

	PacketNumberLenMask = 0x03

	MaxPacketSize          = 1452
	MinInitialPacket       = 1200 // RFC 9000 Section 14.1
	MaxConnectionIDLen     = 20
	RetryIntegrityTagLen   = 16
	StatelessResetTokenLen = 16
)

// Wire-format errors: local to a single parse/render call. The caller
// drops the packet and moves on; the connection does not tear down.
var (
	ErrInvalidPacket      = errors.New("quic: invalid packet")
	ErrUnsupportedVersion = errors.New("quic: unsupported version")
	ErrPacketTooSmall     = errors.New("quic: packet too small")
)

// LongHeaderBase holds the fields every Long-header packet type shares:
// flags, version, and the two length-prefixed connection IDs.
type LongHeaderBase struct {
	Flags   byte
	Version uint32
	DstID   ConnectionID
	SrcID   ConnectionID
}

func (h LongHeaderBase) packetNumberLen() int {
	return int(h.Flags&PacketNumberLenMask) + 1
}

// parseLongHeaderBase reads the flags byte, version, and both connection
// IDs common to every Long-header type. want is PacketTypeVersionNegotiation
// to permit version == 0; any other value rejects it.
func parseLongHeaderBase(data []byte, want PacketType) (LongHeaderBase, int, error) {
	if len(data) < 5 {
		return LongHeaderBase{}, 0, ErrPacketTooSmall
	}
	flags := data[0]
	if flags&HeaderFormLong == 0 {
		return LongHeaderBase{}, 0, ErrInvalidPacket
	}
	version := binary.BigEndian.Uint32(data[1:5])
	if version == 0 && want != PacketTypeVersionNegotiation {
		return LongHeaderBase{}, 0, ErrInvalidPacket
	}
	offset := 5
	dst, n, err := parseConnectionID(data[offset:])
	if err != nil {
		return LongHeaderBase{}, 0, fmt.Errorf("quic: parse dest conn id: %w", err)
	}
	offset += n
	src, n, err := parseConnectionID(data[offset:])
	if err != nil {
		return LongHeaderBase{}, 0, fmt.Errorf("quic: parse src conn id: %w", err)
	}
	offset += n
	return LongHeaderBase{Flags: flags, Version: version, DstID: dst, SrcID: src}, offset, nil
}

// renderLongHeaderBase appends flags/version/dstID/srcID. pnLen of 0 omits
// the packet-number-length bits from flags (Version Negotiation has none).
func renderLongHeaderBase(buf []byte, typeBits byte, pnLen int, version uint32, dst, src ConnectionID) ([]byte, error) {
	if len(dst) > 255 || len(src) > 255 {
		return buf, ErrInvalidPacket
	}
	flags := byte(HeaderFormLong | FixedBit) | typeBits
	if pnLen > 0 {
		flags |= byte(pnLen - 1)
	}
	buf = append(buf, flags)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], version)
	buf = append(buf, v[:]...)
	buf = appendConnectionID(buf, dst)
	buf = appendConnectionID(buf, src)
	return buf, nil
}

func appendTruncatedPN(buf []byte, pn uint32, pnLen int) []byte {
	for i := pnLen - 1; i >= 0; i-- {
		buf = append(buf, byte(pn>>(uint(i)*8)))
	}
	return buf
}

func readTruncatedPN(data []byte, pnLen int) (uint32, error) {
	if len(data) < pnLen {
		return 0, ErrPacketTooSmall
	}
	var v uint32
	for i := 0; i < pnLen; i++ {
		v = v<<8 | uint32(data[i])
	}
	return v, nil
}

func appendZeros(buf []byte, n int) []byte {
	for i := 0; i < n; i++ {
		buf = append(buf, 0)
	}
	return buf
}

// parseLongPlainTail reads wire_pn, payload, and auth_tag following a
// Long-header partial whose fixed fields end at data[:prefixLen] and whose
// length field has already been parsed as `length`.
func parseLongPlainTail(data []byte, prefixLen int, pnLen int, length uint64, tagLen int) (wirePN uint32, payload, tag []byte, consumed int, err error) {
	if uint64(len(data)) < uint64(prefixLen)+length {
		return 0, nil, nil, 0, ErrPacketTooSmall
	}
	offset := prefixLen
	wirePN, err = readTruncatedPN(data[offset:], pnLen)
	if err != nil {
		return 0, nil, nil, 0, err
	}
	offset += pnLen
	payloadLen := int(length) - pnLen - tagLen
	if payloadLen < 0 {
		return 0, nil, nil, 0, ErrPacketTooSmall
	}
	payload = append([]byte(nil), data[offset:offset+payloadLen]...)
	offset += payloadLen
	tag = append([]byte(nil), data[offset:offset+tagLen]...)
	offset += tagLen
	return wirePN, payload, tag, offset, nil
}

// parseLongCipherTail reads protected_payload and auth_tag, with no
// packet-number field: it has not been unprotected yet.
func parseLongCipherTail(data []byte, prefixLen int, length uint64, tagLen int) (protected, tag []byte, consumed int, err error) {
	if uint64(len(data)) < uint64(prefixLen)+length {
		return nil, nil, 0, ErrPacketTooSmall
	}
	ppLen := int(length) - tagLen
	if ppLen < 0 {
		return nil, nil, 0, ErrPacketTooSmall
	}
	offset := prefixLen
	protected = append([]byte(nil), data[offset:offset+ppLen]...)
	offset += ppLen
	tag = append([]byte(nil), data[offset:offset+tagLen]...)
	offset += tagLen
	return protected, tag, offset, nil
}

// renderLongPlainTail appends length, wire_pn, padding, payload, and
// tagLen zero bytes that the encryptor will overwrite in place.
func renderLongPlainTail(buf []byte, pnVal uint32, pnLen int, payload []byte, tagLen, padding int) ([]byte, error) {
	length := uint64(pnLen) + uint64(len(payload)) + uint64(padding) + uint64(tagLen)
	buf, err := appendVarint(buf, length)
	if err != nil {
		return buf, err
	}
	buf = appendTruncatedPN(buf, pnVal, pnLen)
	buf = appendZeros(buf, padding)
	buf = append(buf, payload...)
	return appendZeros(buf, tagLen), nil
}

// --- Initial ---

type InitialHeader struct {
	LongHeaderBase
	TokenLength uint64
	Token       []byte
	Length      uint64
}

func parseInitialHeader(data []byte) (InitialHeader, int, error) {
	base, n, err := parseLongHeaderBase(data, PacketTypeInitial)
	if err != nil {
		return InitialHeader{}, 0, err
	}
	if base.Flags&0x30 != LongHeaderTypeInitial {
		return InitialHeader{}, 0, ErrInvalidPacket
	}
	offset := n
	tokenLen, m, err := parseVarint(data[offset:])
	if err != nil {
		return InitialHeader{}, 0, fmt.Errorf("quic: parse token length: %w", err)
	}
	offset += m
	if uint64(len(data)) < uint64(offset)+tokenLen {
		return InitialHeader{}, 0, ErrPacketTooSmall
	}
	token := append([]byte(nil), data[offset:offset+int(tokenLen)]...)
	offset += int(tokenLen)
	length, m, err := parseVarint(data[offset:])
	if err != nil {
		return InitialHeader{}, 0, fmt.Errorf("quic: parse length: %w", err)
	}
	offset += m
	return InitialHeader{LongHeaderBase: base, TokenLength: tokenLen, Token: token, Length: length}, offset, nil
}

func (h InitialHeader) renderPartial(buf []byte, pnLen int) ([]byte, error) {
	buf, err := renderLongHeaderBase(buf, LongHeaderTypeInitial, pnLen, h.Version, h.DstID, h.SrcID)
	if err != nil {
		return buf, err
	}
	buf, err = appendVarint(buf, uint64(len(h.Token)))
	if err != nil {
		return buf, err
	}
	return append(buf, h.Token...), nil
}

type InitialPlain struct {
	InitialHeader
	WirePN  uint32
	Payload []byte
	AuthTag []byte
}

func parseInitialPlain(data []byte, tagLen int) (InitialPlain, int, error) {
	h, n, err := parseInitialHeader(data)
	if err != nil {
		return InitialPlain{}, 0, err
	}
	wirePN, payload, tag, consumed, err := parseLongPlainTail(data, n, h.packetNumberLen(), h.Length, tagLen)
	if err != nil {
		return InitialPlain{}, 0, err
	}
	return InitialPlain{InitialHeader: h, WirePN: wirePN, Payload: payload, AuthTag: tag}, consumed, nil
}

func (p InitialPlain) Render(buf []byte, pnVal uint32, pnLen, tagLen, padding int) ([]byte, error) {
	buf, err := p.renderPartial(buf, pnLen)
	if err != nil {
		return buf, err
	}
	return renderLongPlainTail(buf, pnVal, pnLen, p.Payload, tagLen, padding)
}

type InitialCipher struct {
	InitialHeader
	ProtectedPayload []byte
	AuthTag          []byte
}

func parseInitialCipher(data []byte, tagLen int) (InitialCipher, int, error) {
	h, n, err := parseInitialHeader(data)
	if err != nil {
		return InitialCipher{}, 0, err
	}
	protected, tag, consumed, err := parseLongCipherTail(data, n, h.Length, tagLen)
	if err != nil {
		return InitialCipher{}, 0, err
	}
	return InitialCipher{InitialHeader: h, ProtectedPayload: protected, AuthTag: tag}, consumed, nil
}

// --- Handshake / 0-RTT ---
//
// These two share everything but their type bits; the original C++ source
// expresses that with a template, Go expresses it with an unexported
// shared struct embedded by both named types.

type handshakeLikeHeader struct {
	LongHeaderBase
	Length uint64
}

func parseHandshakeLikeHeader(data []byte, want PacketType, typeBits byte) (handshakeLikeHeader, int, error) {
	base, n, err := parseLongHeaderBase(data, want)
	if err != nil {
		return handshakeLikeHeader{}, 0, err
	}
	if base.Flags&0x30 != typeBits {
		return handshakeLikeHeader{}, 0, ErrInvalidPacket
	}
	length, m, err := parseVarint(data[n:])
	if err != nil {
		return handshakeLikeHeader{}, 0, fmt.Errorf("quic: parse length: %w", err)
	}
	return handshakeLikeHeader{LongHeaderBase: base, Length: length}, n + m, nil
}

type HandshakeHeader struct{ handshakeLikeHeader }
type ZeroRTTHeader struct{ handshakeLikeHeader }

func parseHandshakeHeader(data []byte) (HandshakeHeader, int, error) {
	h, n, err := parseHandshakeLikeHeader(data, PacketTypeHandshake, LongHeaderTypeHandshake)
	return HandshakeHeader{h}, n, err
}

func parseZeroRTTHeader(data []byte) (ZeroRTTHeader, int, error) {
	h, n, err := parseHandshakeLikeHeader(data, PacketType0RTT, LongHeaderType0RTT)
	return ZeroRTTHeader{h}, n, err
}

type HandshakePlain struct {
	HandshakeHeader
	WirePN  uint32
	Payload []byte
	AuthTag []byte
}

func parseHandshakePlain(data []byte, tagLen int) (HandshakePlain, int, error) {
	h, n, err := parseHandshakeHeader(data)
	if err != nil {
		return HandshakePlain{}, 0, err
	}
	wirePN, payload, tag, consumed, err := parseLongPlainTail(data, n, h.packetNumberLen(), h.Length, tagLen)
	if err != nil {
		return HandshakePlain{}, 0, err
	}
	return HandshakePlain{HandshakeHeader: h, WirePN: wirePN, Payload: payload, AuthTag: tag}, consumed, nil
}

func (p HandshakePlain) Render(buf []byte, pnVal uint32, pnLen, tagLen, padding int) ([]byte, error) {
	buf, err := renderLongHeaderBase(buf, LongHeaderTypeHandshake, pnLen, p.Version, p.DstID, p.SrcID)
	if err != nil {
		return buf, err
	}
	return renderLongPlainTail(buf, pnVal, pnLen, p.Payload, tagLen, padding)
}

type HandshakeCipher struct {
	HandshakeHeader
	ProtectedPayload []byte
	AuthTag          []byte
}

func parseHandshakeCipher(data []byte, tagLen int) (HandshakeCipher, int, error) {
	h, n, err := parseHandshakeHeader(data)
	if err != nil {
		return HandshakeCipher{}, 0, err
	}
	protected, tag, consumed, err := parseLongCipherTail(data, n, h.Length, tagLen)
	if err != nil {
		return HandshakeCipher{}, 0, err
	}
	return HandshakeCipher{HandshakeHeader: h, ProtectedPayload: protected, AuthTag: tag}, consumed, nil
}

type ZeroRTTPlain struct {
	ZeroRTTHeader
	WirePN  uint32
	Payload []byte
	AuthTag []byte
}

func parseZeroRTTPlain(data []byte, tagLen int) (ZeroRTTPlain, int, error) {
	h, n, err := parseZeroRTTHeader(data)
	if err != nil {
		return ZeroRTTPlain{}, 0, err
	}
	wirePN, payload, tag, consumed, err := parseLongPlainTail(data, n, h.packetNumberLen(), h.Length, tagLen)
	if err != nil {
		return ZeroRTTPlain{}, 0, err
	}
	return ZeroRTTPlain{ZeroRTTHeader: h, WirePN: wirePN, Payload: payload, AuthTag: tag}, consumed, nil
}

func (p ZeroRTTPlain) Render(buf []byte, pnVal uint32, pnLen, tagLen, padding int) ([]byte, error) {
	buf, err := renderLongHeaderBase(buf, LongHeaderType0RTT, pnLen, p.Version, p.DstID, p.SrcID)
	if err != nil {
		return buf, err
	}
	return renderLongPlainTail(buf, pnVal, pnLen, p.Payload, tagLen, padding)
}

type ZeroRTTCipher struct {
	ZeroRTTHeader
	ProtectedPayload []byte
	AuthTag          []byte
}

func parseZeroRTTCipher(data []byte, tagLen int) (ZeroRTTCipher, int, error) {
	h, n, err := parseZeroRTTHeader(data)
	if err != nil {
		return ZeroRTTCipher{}, 0, err
	}
	protected, tag, consumed, err := parseLongCipherTail(data, n, h.Length, tagLen)
	if err != nil {
		return ZeroRTTCipher{}, 0, err
	}
	return ZeroRTTCipher{ZeroRTTHeader: h, ProtectedPayload: protected, AuthTag: tag}, consumed, nil
}

// --- Retry ---

type RetryPacket struct {
	LongHeaderBase
	RetryToken   []byte
	IntegrityTag [16]byte
}

func parseRetryPacket(data []byte) (RetryPacket, int, error) {
	base, n, err := parseLongHeaderBase(data, PacketTypeRetry)
	if err != nil {
		return RetryPacket{}, 0, err
	}
	if base.Flags&0x30 != LongHeaderTypeRetry {
		return RetryPacket{}, 0, ErrInvalidPacket
	}
	rest := len(data) - n
	if rest < RetryIntegrityTagLen {
		return RetryPacket{}, 0, ErrPacketTooSmall
	}
	tokenLen := rest - RetryIntegrityTagLen
	token := append([]byte(nil), data[n:n+tokenLen]...)
	var tag [16]byte
	copy(tag[:], data[n+tokenLen:n+tokenLen+RetryIntegrityTagLen])
	return RetryPacket{LongHeaderBase: base, RetryToken: token, IntegrityTag: tag}, len(data), nil
}

// Render writes the Retry packet. The packet-number-length field is
// always rendered as 1, Retry carries no real packet number.
func (p RetryPacket) Render(buf []byte) ([]byte, error) {
	buf, err := renderLongHeaderBase(buf, LongHeaderTypeRetry, 1, p.Version, p.DstID, p.SrcID)
	if err != nil {
		return buf, err
	}
	buf = append(buf, p.RetryToken...)
	return append(buf, p.IntegrityTag[:]...), nil
}

// AppendRetryPseudoPacket appends the byte sequence the Retry integrity
// tag (RFC 9001 Section 5.8) is computed over: the original destination
// connection ID the client used (length-prefixed by one byte), followed by
// the Retry packet's Long-header fields and token.
func AppendRetryPseudoPacket(buf []byte, origDstID ConnectionID, retry RetryPacket) ([]byte, error) {
	if len(origDstID) > 0xff {
		return buf, ErrInvalidPacket
	}
	buf = append(buf, byte(len(origDstID)))
	buf = append(buf, origDstID...)
	buf, err := renderLongHeaderBase(buf, LongHeaderTypeRetry, 1, retry.Version, retry.DstID, retry.SrcID)
	if err != nil {
		return buf, err
	}
	return append(buf, retry.RetryToken...), nil
}

// --- Version Negotiation ---

type VersionNegotiationPacket struct {
	LongHeaderBase
	SupportedVersions []uint32
}

func parseVersionNegotiationPacket(data []byte) (VersionNegotiationPacket, int, error) {
	base, n, err := parseLongHeaderBase(data, PacketTypeVersionNegotiation)
	if err != nil {
		return VersionNegotiationPacket{}, 0, err
	}
	if base.Version != 0 {
		return VersionNegotiationPacket{}, 0, ErrInvalidPacket
	}
	offset := n
	var versions []uint32
	for offset+4 <= len(data) {
		versions = append(versions, binary.BigEndian.Uint32(data[offset:]))
		offset += 4
	}
	return VersionNegotiationPacket{LongHeaderBase: base, SupportedVersions: versions}, offset, nil
}

func (p VersionNegotiationPacket) Render(buf []byte) ([]byte, error) {
	buf, err := renderLongHeaderBase(buf, 0, 0, 0, p.DstID, p.SrcID)
	if err != nil {
		return buf, err
	}
	for _, v := range p.SupportedVersions {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

// --- 1-RTT (Short header) ---

// DstIDLenFunc resolves how many bytes of a Short-header packet's
// destination connection ID to read. The core has no length prefix to go
// on for Short headers, so the Issuer (connid_issuer.go) supplies the
// implementation that recognizes the lengths of CIDs it has handed out.
type DstIDLenFunc func(afterFirstByte []byte) (int, error)

type OneRTTHeader struct {
	Flags byte
	DstID ConnectionID
}

func (h OneRTTHeader) packetNumberLen() int {
	return int(h.Flags&PacketNumberLenMask) + 1
}

func parseOneRTTHeader(data []byte, getDstIDLen DstIDLenFunc) (OneRTTHeader, int, error) {
	if len(data) < 1 {
		return OneRTTHeader{}, 0, ErrPacketTooSmall
	}
	flags := data[0]
	if flags&HeaderFormLong != 0 {
		return OneRTTHeader{}, 0, ErrInvalidPacket
	}
	if flags&FixedBit == 0 {
		return OneRTTHeader{}, 0, ErrInvalidPacket
	}
	dstLen, err := getDstIDLen(data[1:])
	if err != nil {
		return OneRTTHeader{}, 0, err
	}
	if len(data) < 1+dstLen {
		return OneRTTHeader{}, 0, ErrPacketTooSmall
	}
	dst := append([]byte(nil), data[1:1+dstLen]...)
	return OneRTTHeader{Flags: flags, DstID: dst}, 1 + dstLen, nil
}

func renderOneRTTHeader(buf []byte, dst ConnectionID, pnLen int, spin, keyPhase bool) ([]byte, error) {
	if pnLen < 1 || pnLen > 4 {
		return buf, ErrInvalidPacket
	}
	flags := byte(FixedBit) | byte(pnLen-1)
	if spin {
		flags |= 0x20
	}
	if keyPhase {
		flags |= 0x04
	}
	buf = append(buf, flags)
	return append(buf, dst...), nil
}

type OneRTTPlain struct {
	OneRTTHeader
	WirePN  uint32
	Payload []byte
	AuthTag []byte
}

func parseOneRTTPlain(data []byte, tagLen int, getDstIDLen DstIDLenFunc) (OneRTTPlain, int, error) {
	h, n, err := parseOneRTTHeader(data, getDstIDLen)
	if err != nil {
		return OneRTTPlain{}, 0, err
	}
	pnLen := h.packetNumberLen()
	wirePN, err := readTruncatedPN(data[n:], pnLen)
	if err != nil {
		return OneRTTPlain{}, 0, err
	}
	offset := n + pnLen
	rem := len(data) - offset
	if rem < tagLen {
		return OneRTTPlain{}, 0, ErrPacketTooSmall
	}
	payload := append([]byte(nil), data[offset:offset+rem-tagLen]...)
	offset += rem - tagLen
	tag := append([]byte(nil), data[offset:offset+tagLen]...)
	return OneRTTPlain{OneRTTHeader: h, WirePN: wirePN, Payload: payload, AuthTag: tag}, offset + tagLen, nil
}

func (p OneRTTPlain) Render(buf []byte, pnVal uint32, pnLen, tagLen, padding int, spin, keyPhase bool) ([]byte, error) {
	buf, err := renderOneRTTHeader(buf, p.DstID, pnLen, spin, keyPhase)
	if err != nil {
		return buf, err
	}
	buf = appendTruncatedPN(buf, pnVal, pnLen)
	buf = appendZeros(buf, padding)
	buf = append(buf, p.Payload...)
	return appendZeros(buf, tagLen), nil
}

type OneRTTCipher struct {
	OneRTTHeader
	ProtectedPayload []byte
	AuthTag          []byte
}

func parseOneRTTCipher(data []byte, tagLen int, getDstIDLen DstIDLenFunc) (OneRTTCipher, int, error) {
	h, n, err := parseOneRTTHeader(data, getDstIDLen)
	if err != nil {
		return OneRTTCipher{}, 0, err
	}
	rem := len(data) - n
	if rem < tagLen {
		return OneRTTCipher{}, 0, ErrPacketTooSmall
	}
	protected := append([]byte(nil), data[n:n+rem-tagLen]...)
	tag := append([]byte(nil), data[n+rem-tagLen:n+rem]...)
	return OneRTTCipher{OneRTTHeader: h, ProtectedPayload: protected, AuthTag: tag}, len(data), nil
}

// --- Stateless Reset ---

type StatelessResetPacket struct {
	UnpredictableBits []byte
	Token             [16]byte
}

func parseStatelessReset(data []byte) (StatelessResetPacket, error) {
	if len(data) < 1 {
		return StatelessResetPacket{}, ErrPacketTooSmall
	}
	flags := data[0]
	if flags&0xC0 != 0x40 { // short header, fixed bit set
		return StatelessResetPacket{}, ErrInvalidPacket
	}
	if len(data) < 1+4+StatelessResetTokenLen {
		return StatelessResetPacket{}, ErrPacketTooSmall
	}
	body := len(data) - 1 - StatelessResetTokenLen
	bits := append([]byte(nil), data[1:1+body]...)
	var tok [16]byte
	copy(tok[:], data[1+body:])
	return StatelessResetPacket{UnpredictableBits: bits, Token: tok}, nil
}

func (p StatelessResetPacket) Render(buf []byte, firstByteRandom byte) ([]byte, error) {
	if len(p.UnpredictableBits) < 4 {
		return buf, ErrInvalidPacket
	}
	buf = append(buf, 0x40|(0x3f&firstByteRandom))
	buf = append(buf, p.UnpredictableBits...)
	return append(buf, p.Token[:]...), nil
}
