package quic

import (
	"errors"
	"net"
)

// Connection is the per-endpoint state shared by the stream manager, the
// TLS handshake driver, the 0-RTT handler, and connection migration: the
// keys negotiated at each encryption level, the negotiated transport
// parameters, the two connection ID sub-machines, and the path MTU
// tracker. Those collaborators reach into it directly rather than going
// through a narrower interface, the same way the collaborator files
// already expected before this type existed.
type Connection struct {
	localAddr  net.Addr
	remoteAddr net.Addr

	destConnID ConnectionID

	localParams  *TransportParameters
	remoteParams *TransportParameters

	handshakeComplete bool

	initialKeys     *CryptoKeys
	handshakeKeys   *CryptoKeys
	applicationKeys *CryptoKeys
	zeroRTTKeys     *CryptoKeys

	connIDIssuer   *ConnIDIssuer
	connIDAcceptor *ConnIDAcceptor
	mtu            *MTU
	migration      *ConnectionMigration
	loss           *connLossDispatch
	flow           *FlowController
	streams        *StreamManager
	zeroRTT        *ZeroRTTHandler

	outbound chan Frame
}

// NewConnection builds a Connection with its connection ID, MTU,
// migration, loss-detection/congestion, flow-control, and stream
// sub-machines wired from cfg and pcfg. outboundBuf sizes the
// queueFrame channel; 0 means synchronous delivery is not required and a
// reasonable default is used instead.
func NewConnection(cfg *Config, pcfg *PathConfig, localAddr, remoteAddr net.Addr, destConnID ConnectionID, outboundBuf int) *Connection {
	if outboundBuf <= 0 {
		outboundBuf = 64
	}
	if pcfg == nil {
		d := DefaultPathConfig()
		pcfg = &d
	}
	conn := &Connection{
		localAddr:      localAddr,
		remoteAddr:     remoteAddr,
		destConnID:     destConnID,
		connIDIssuer:   NewConnIDIssuer(cfg),
		connIDAcceptor: NewConnIDAcceptor(cfg),
		mtu:            NewMTU(pcfg.MTU),
		flow:           NewFlowController(cfg.InitialMaxData, cfg.InitialMaxData),
		outbound:       make(chan Frame, outboundBuf),
	}
	conn.migration = NewConnectionMigration(conn, pcfg)
	conn.loss = newConnLossDispatch(conn)
	conn.streams = newStreamManager(conn)
	conn.zeroRTT = NewZeroRTTHandler(conn)
	return conn
}

// queueFrame hands a frame to the connection's send path. Streams and the
// TLS handler call this rather than writing packets directly; a real
// sender drains the channel to pack frames into outgoing packets.
func (conn *Connection) queueFrame(frame Frame) {
	conn.outbound <- frame
}

// sendCryptoFrame queues a CRYPTO frame at the given encryption level.
// The level isn't carried on Frame itself, so the caller (TLSConn) is
// responsible for having already selected the right keys before the
// packet assembler picks this frame up; today that means every CRYPTO
// frame still in flight shares whatever level is currently active.
func (conn *Connection) sendCryptoFrame(frame *CryptoFrame, level EncryptionLevel) error {
	conn.queueFrame(frame)
	return nil
}

// DequeueFrame returns the next frame queued for transmission, blocking
// until one is available.
func (conn *Connection) DequeueFrame() Frame {
	return <-conn.outbound
}

// ReceivePacket removes header and packet protection from one datagram's
// worth of wire bytes, dispatching by the first byte's header form and
// Long-header type to the matching Cipher view and CryptoKeys. It
// returns the recovered frame payload and the encryption level the
// packet was protected at. expectedPN seeds packet number
// reconstruction (RFC 9000 Section 17.1) and should be the largest
// packet number so far received at that level, plus one.
func (conn *Connection) ReceivePacket(data []byte, expectedPN int64) ([]byte, EncryptionLevel, error) {
	if len(data) < 1 {
		return nil, 0, ErrPacketTooSmall
	}

	if data[0]&HeaderFormLong == 0 {
		if conn.applicationKeys == nil {
			return nil, 0, errors.New("quic: no application keys for 1-RTT packet")
		}
		cipher, _, err := parseOneRTTCipher(data, conn.applicationKeys.TagLen(), conn.connIDIssuer.DstIDLenFunc())
		if err != nil {
			return nil, 0, err
		}
		headerLen := len(data) - len(cipher.ProtectedPayload) - len(cipher.AuthTag)
		payload, _, err := conn.applicationKeys.UnprotectPacket(data, headerLen, expectedPN)
		return payload, EncryptionLevelApplication, err
	}

	switch data[0] & 0x30 {
	case LongHeaderTypeInitial:
		if conn.initialKeys == nil {
			return nil, 0, errors.New("quic: no initial keys for Initial packet")
		}
		cipher, _, err := parseInitialCipher(data, conn.initialKeys.TagLen())
		if err != nil {
			return nil, 0, err
		}
		headerLen := len(data) - len(cipher.ProtectedPayload) - len(cipher.AuthTag)
		payload, _, err := conn.initialKeys.UnprotectPacket(data, headerLen, expectedPN)
		return payload, EncryptionLevelInitial, err

	case LongHeaderTypeHandshake:
		if conn.handshakeKeys == nil {
			return nil, 0, errors.New("quic: no handshake keys for Handshake packet")
		}
		cipher, _, err := parseHandshakeCipher(data, conn.handshakeKeys.TagLen())
		if err != nil {
			return nil, 0, err
		}
		headerLen := len(data) - len(cipher.ProtectedPayload) - len(cipher.AuthTag)
		payload, _, err := conn.handshakeKeys.UnprotectPacket(data, headerLen, expectedPN)
		return payload, EncryptionLevelHandshake, err

	case LongHeaderType0RTT:
		payload, _, err := conn.zeroRTT.Handle0RTTPacket(data, expectedPN)
		return payload, EncryptionLevelEarlyData, err

	default:
		return nil, 0, ErrInvalidPacket
	}
}
