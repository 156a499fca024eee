package quic

// Configuration surfaces for the connection ID subsystem and path/MTU
// management, mirrored from connid/config.h, connid/common_param.h, and
// path/config.h: plain structs plus a Default* constructor, matching the
// TransportParameters precedent in crypto.go.

// ConnIDChangeMode selects how the acceptor rotates its active
// destination connection ID.
type ConnIDChangeMode uint8

const (
	// ConnIDChangeNever never rotates the active destination ID on its
	// own; the caller rotates explicitly (e.g. on a detected migration).
	ConnIDChangeNever ConnIDChangeMode = iota
	// ConnIDChangeConstant rotates after a fixed number of packets.
	ConnIDChangeConstant
	// ConnIDChangeRandom rotates after a random number of packets in
	// [1, MaxPacketPerID], drawn fresh each time an ID is picked up.
	ConnIDChangeRandom
)

// Config holds the issuer/acceptor tuning an embedder supplies at
// connection setup.
type Config struct {
	// ConnIDLen is the length in bytes of locally-issued connection IDs.
	// 0 selects zero-length-CID mode: the issuer will refuse to issue any
	// ID and the acceptor always resolves the zero-length ID.
	ConnIDLen int

	// ConcurrentIDLimit is the active_connection_id_limit this endpoint
	// advertises and upholds locally (issuer side): the maximum number of
	// connection IDs the issuer will have outstanding (unretired) at
	// once.
	ConcurrentIDLimit uint64

	// ChangeMode selects the acceptor's active-destination-ID rotation
	// policy.
	ChangeMode ConnIDChangeMode
	// PacketPerID is the number of packets sent under ConnIDChangeConstant
	// before rotating. It is also the budget for the first active ID after
	// a reset in every mode, and the upper bound on the random draw under
	// ConnIDChangeRandom when MaxPacketPerID is 0.
	PacketPerID uint64
	// MaxPacketPerID is the upper bound on the random draw under
	// ConnIDChangeRandom.
	MaxPacketPerID uint64

	Exporter IDExporter
	Random   RandomProvider

	// InitialMaxData is the connection-level flow-control window
	// advertised at startup and assumed for the peer until its own
	// transport parameters arrive - the seed for NewConnection's
	// FlowController.
	InitialMaxData uint64
}

// DefaultConfig matches the teacher's DefaultTransportParameters
// precedent: conservative, widely-interoperable defaults.
func DefaultConfig() *Config {
	return &Config{
		ConnIDLen:         8,
		ConcurrentIDLimit: 4,
		ChangeMode:        ConnIDChangeNever,
		PacketPerID:       1000,
		MaxPacketPerID:    10000,
		Exporter:          DefaultIDExporter{},
		Random:            DefaultRandomProvider{},
		InitialMaxData:    1 << 20,
	}
}

// PathConfig holds per-path validation limits.
type PathConfig struct {
	// MaxPathChallenge caps the number of concurrently pending
	// PATH_CHALLENGE probes connection_migration.go will track; at the cap
	// InitiatePathValidation returns ErrTooManyPathChallenges rather than
	// growing without bound. RFC 9000 doesn't mandate a specific value; 256
	// matches common production QUIC stacks' default.
	MaxPathChallenge int
	MTU              MTUConfig
}

func DefaultPathConfig() PathConfig {
	return PathConfig{
		MaxPathChallenge: 256,
		MTU:              DefaultMTUConfig(),
	}
}

// MTUConfig tunes DPLPMTUD (mtu.go).
type MTUConfig struct {
	// BasePLPMTU is the size known to work before probing begins (RFC
	// 8899 Section 5.1.1) - for QUIC this must be at least 1200 (RFC 9000
	// Section 14.1).
	BasePLPMTU int
	// MaxPLPMTU is the ceiling the binary search will not probe above.
	MaxPLPMTU int
	// MaxProbes is the number of unacknowledged probes at a given size
	// before the search gives up on that size and narrows its high
	// bound.
	MaxProbes int
	// Accuracy is the binary search's convergence threshold in bytes:
	// search stops refining once high-low <= Accuracy.
	Accuracy int
}

func DefaultMTUConfig() MTUConfig {
	return MTUConfig{
		BasePLPMTU: MinInitialPacket,
		MaxPLPMTU:  MaxPacketSize,
		MaxProbes:  3,
		Accuracy:   1,
	}
}
