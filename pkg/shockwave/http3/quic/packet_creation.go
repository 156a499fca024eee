package quic

// Packet creation/assembly (RFC 9000 Section 17, packet/creation.h). A
// PacketSummary plus a payload-render callback becomes a CryptoPacket: the
// encryptor's only remaining job is to AEAD-seal the payload in place and
// apply header protection over the flags byte and the packet number.
//
// The original C++ renders the length field, packet number, and padding
// into a reserved worst-case-width prefix, then shifts the already-written
// payload left to close the gap once the real (smaller-or-equal) varint
// width is known. This port renders the payload into a scratch buffer
// first and then lays out length/PN/padding/payload/tag in the
// destination in a single pass - same on-wire bytes, without the
// reserve-then-shift bookkeeping.

// PacketSummary describes the packet CreatePacket should assemble.
type PacketSummary struct {
	Type         PacketType
	Version      uint32
	DstID        ConnectionID
	SrcID        ConnectionID
	Token        []byte // Initial only
	PacketNumber int64  // full, logical packet number
	Spin         bool
	KeyPhase     bool
}

// PayloadRenderer writes a packet's frames into buf and returns the number
// of bytes written.
type PayloadRenderer func(buf []byte) (int, error)

// CryptoPacket is what the creator hands to the encryptor: Src is the full
// packet with a zeroed auth tag in place, HeadLen is the length of
// everything before the packet number, and PacketNumber is the full
// (untruncated) number the AEAD nonce is built from.
type CryptoPacket struct {
	Src          []byte
	HeadLen      int
	PacketNumber int64
}

// CreatePacket assembles summary into buf, which must be sized to the
// caller's chosen packet capacity (PMTU-sized for Initial). largestAcked
// picks the packet-number truncation width; tagLen is the authenticator
// tag length of the negotiated AEAD suite. useFull pads the payload out to
// fill the rest of buf - the standard path for Initial "pad to 1200".
func CreatePacket(buf []byte, summary PacketSummary, largestAcked int64, tagLen int, useFull bool, render PayloadRenderer) (CryptoPacket, error) {
	pnVal, pnLen, err := EncodePacketNumber(summary.PacketNumber, largestAcked)
	if err != nil {
		return CryptoPacket{}, err
	}
	switch summary.Type {
	case PacketTypeInitial, PacketTypeHandshake, PacketType0RTT:
		return createLongPacket(buf, summary, pnVal, pnLen, tagLen, useFull, render)
	case PacketType1RTT:
		return createOneRTTPacket(buf, summary, pnVal, pnLen, tagLen, useFull, render)
	default:
		return CryptoPacket{}, implementationBug("packet creation only supports Initial/Handshake/0-RTT/1-RTT")
	}
}

func createLongPacket(buf []byte, s PacketSummary, pnVal uint32, pnLen, tagLen int, useFull bool, render PayloadRenderer) (CryptoPacket, error) {
	var typeBits byte
	switch s.Type {
	case PacketTypeInitial:
		typeBits = LongHeaderTypeInitial
	case PacketTypeHandshake:
		typeBits = LongHeaderTypeHandshake
	case PacketType0RTT:
		typeBits = LongHeaderType0RTT
	}

	head, err := renderLongHeaderBase(buf[:0], typeBits, pnLen, s.Version, s.DstID, s.SrcID)
	if err != nil {
		return CryptoPacket{}, err
	}
	if s.Type == PacketTypeInitial {
		head, err = appendVarint(head, uint64(len(s.Token)))
		if err != nil {
			return CryptoPacket{}, err
		}
		head = append(head, s.Token...)
	}
	partialLen := len(head)
	if partialLen > len(buf) {
		return CryptoPacket{}, ErrPacketTooSmall
	}

	scratchCap := len(buf) - partialLen - pnLen - tagLen
	if scratchCap < 0 {
		return CryptoPacket{}, ErrPacketTooSmall
	}
	scratch := make([]byte, scratchCap)
	n, err := render(scratch)
	if err != nil {
		return CryptoPacket{}, err
	}
	if n > len(scratch) {
		return CryptoPacket{}, implementationBug("payload renderer wrote past its buffer")
	}

	padding := 0
	if useFull {
		// Worst-case length-field width, so the padding computed here
		// cannot be invalidated once the field is backpatched to its
		// real (smaller-or-equal) width below.
		maxLenFieldLen := varintLen(uint64(len(buf)))
		if available := len(buf) - partialLen - maxLenFieldLen - pnLen - tagLen - n; available > 0 {
			padding = available
		}
	}

	lengthVal := uint64(pnLen) + uint64(n) + uint64(padding) + uint64(tagLen)
	lenFieldLen := varintLen(lengthVal)
	if lenFieldLen < 0 {
		return CryptoPacket{}, ErrLargeInt
	}
	total := partialLen + lenFieldLen + pnLen + padding + n + tagLen
	if total > len(buf) {
		return CryptoPacket{}, ErrPacketTooSmall
	}

	out := buf[:partialLen]
	out, err = appendVarint(out, lengthVal)
	if err != nil {
		return CryptoPacket{}, err
	}
	headLen := len(out)
	out = appendTruncatedPN(out, pnVal, pnLen)
	out = appendZeros(out, padding)
	out = append(out, scratch[:n]...)
	out = appendZeros(out, tagLen)

	return CryptoPacket{Src: out, HeadLen: headLen, PacketNumber: s.PacketNumber}, nil
}

func createOneRTTPacket(buf []byte, s PacketSummary, pnVal uint32, pnLen, tagLen int, useFull bool, render PayloadRenderer) (CryptoPacket, error) {
	head, err := renderOneRTTHeader(buf[:0], s.DstID, pnLen, s.Spin, s.KeyPhase)
	if err != nil {
		return CryptoPacket{}, err
	}
	partialLen := len(head)
	if partialLen > len(buf) {
		return CryptoPacket{}, ErrPacketTooSmall
	}

	scratchCap := len(buf) - partialLen - pnLen - tagLen
	if scratchCap < 0 {
		return CryptoPacket{}, ErrPacketTooSmall
	}
	scratch := make([]byte, scratchCap)
	n, err := render(scratch)
	if err != nil {
		return CryptoPacket{}, err
	}
	if n > len(scratch) {
		return CryptoPacket{}, implementationBug("payload renderer wrote past its buffer")
	}

	padding := 0
	if useFull {
		if available := len(buf) - partialLen - pnLen - tagLen - n; available > 0 {
			padding = available
		}
	}

	total := partialLen + pnLen + padding + n + tagLen
	if total > len(buf) {
		return CryptoPacket{}, ErrPacketTooSmall
	}

	out := buf[:partialLen]
	headLen := len(out) // Short header carries no length field: head_len stops right before the PN
	out = appendTruncatedPN(out, pnVal, pnLen)
	out = appendZeros(out, padding)
	out = append(out, scratch[:n]...)
	out = appendZeros(out, tagLen)

	return CryptoPacket{Src: out, HeadLen: headLen, PacketNumber: s.PacketNumber}, nil
}
