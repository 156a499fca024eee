package quic

import "crypto/rand"

// Pluggable randomness and connection-ID export, mirrored from the
// external seams the connection ID subsystem is built against so an
// embedder can swap in deterministic randomness for tests or route newly
// issued IDs into its own connection-ID-to-path lookup table.

// RandomUsage tags what a random byte request is for, so a RandomProvider
// backed by a hardware RNG or a test vector generator can size/log
// accordingly.
type RandomUsage uint8

const (
	RandomUsageConnectionID RandomUsage = iota
	RandomUsageStatelessResetToken
	RandomUsagePathChallenge
)

// RandomProvider supplies cryptographically random bytes. DefaultRandomProvider
// wraps crypto/rand; an embedder can swap it out for deterministic
// randomness under test.
type RandomProvider interface {
	Random(buf []byte, usage RandomUsage) error
}

// DefaultRandomProvider reads from crypto/rand.Reader.
type DefaultRandomProvider struct{}

func (DefaultRandomProvider) Random(buf []byte, usage RandomUsage) error {
	_, err := rand.Read(buf)
	return err
}

// IDExporter is notified whenever the connection ID issuer changes the
// set of locally-issued IDs (the acceptor does not call it), so an embedder can keep an external
// connection-ID-to-connection routing table (e.g. a listening socket
// demultiplexing by destination CID) in sync without the issuer/acceptor
// depending on that table directly.
type IDExporter interface {
	// Issued is called when a new locally-issued ID becomes usable.
	Issued(seq uint64, id ConnectionID, statelessResetToken [16]byte)
	// Retired is called when a locally-issued ID is retired and must stop
	// being routed to this connection.
	Retired(seq uint64, id ConnectionID)
}

// DefaultIDExporter discards every notification; it is the zero-cost
// default for callers that route all traffic through a single connection
// and don't need per-ID routing.
type DefaultIDExporter struct{}

func (DefaultIDExporter) Issued(seq uint64, id ConnectionID, statelessResetToken [16]byte) {}
func (DefaultIDExporter) Retired(seq uint64, id ConnectionID)                              {}
