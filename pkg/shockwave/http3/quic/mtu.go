package quic

import "sync"

// DPLPMTUD - Datagram Packetization Layer Path MTU Discovery (RFC 8899),
// as profiled for QUIC by RFC 9000 Section 14.3. A BinarySearcher narrows
// in on the largest probe size the path forwards; an MTUState machine
// sequences probing around it and reuses the ACKHandler discipline
// (ack.go) that the connection ID issuer and acceptor also use to track
// whether the in-flight probe has been acknowledged or lost.

// BinarySearcher narrows [Low, High] toward the largest value that
// succeeds, given a ladder of probe outcomes. Low always holds a value
// known to work; High always holds a value not yet confirmed to work
// (initially an upper bound to search under). HighUpdated tracks whether
// a probe has ever actually failed at or below High: until one does, a
// window narrow enough to stop on is not enough to call the search done,
// since the common case of the peer supporting exactly High was never
// ruled out by a real probe.
type BinarySearcher struct {
	Low         int
	High        int
	Accuracy    int
	HighUpdated bool
}

// NewBinarySearcher starts a search in [low, high] with the given
// convergence accuracy in bytes.
func NewBinarySearcher(low, high, accuracy int) *BinarySearcher {
	if accuracy < 1 {
		accuracy = 1
	}
	return &BinarySearcher{Low: low, High: high, Accuracy: accuracy}
}

// Mid returns the next probe size to try.
func (b *BinarySearcher) Mid() int {
	return b.Low + (b.High-b.Low)/2
}

// windowNarrow reports whether [Low, High] alone has converged, ignoring
// whether a confirmatory probe at High has happened yet.
func (b *BinarySearcher) windowNarrow() bool {
	return b.High-b.Low <= b.Accuracy
}

// Done reports whether the search has converged: the window is narrow
// enough that no further probe would change the result by more than
// Accuracy, and a probe has actually failed at or below High at some
// point, so the result isn't just "never tried anything past Low".
func (b *BinarySearcher) Done() bool {
	return b.windowNarrow() && b.HighUpdated
}

// Success records that a probe of size n was acknowledged: n is now a
// confirmed-working lower bound.
func (b *BinarySearcher) Success(n int) {
	if n > b.Low {
		b.Low = n
	}
}

// Failure records that a probe of size n was lost (attributed to size,
// not ordinary loss): n becomes the new upper bound, and High is now
// known to have actually been tested.
func (b *BinarySearcher) Failure(n int) {
	if n < b.High {
		b.High = n
	}
	b.HighUpdated = true
}

// mtuState is DPLPMTUD's RFC 8899 Section 5.2 state machine, profiled
// down to the states this core drives.
type mtuState uint8

const (
	mtuDisabled mtuState = iota
	mtuBase
	mtuSearching
	mtuError
	mtuSearchComplete
)

func (s mtuState) String() string {
	switch s {
	case mtuDisabled:
		return "disabled"
	case mtuBase:
		return "base"
	case mtuSearching:
		return "searching"
	case mtuError:
		return "error"
	case mtuSearchComplete:
		return "search_complete"
	default:
		return "unknown"
	}
}

// MTU drives path MTU discovery for one connection path.
type MTU struct {
	mu sync.Mutex

	cfg   MTUConfig
	state mtuState

	search      *BinarySearcher
	probeSize   int
	probeCount  int // consecutive lost probes at probeSize, for MaxProbes
	probingHigh bool // current probe is the one extra confirmatory probe at search.High
	ack         ACKHandler

	confirmed int // largest size confirmed to work, usable as the outbound packet size
}

// NewMTU creates an MTU tracker in the disabled state; call Start to
// begin probing once the handshake has confirmed the path is usable at
// cfg.BasePLPMTU.
func NewMTU(cfg MTUConfig) *MTU {
	return &MTU{cfg: cfg, state: mtuDisabled, confirmed: cfg.BasePLPMTU}
}

// Start transitions from disabled to base, confirming BasePLPMTU and
// beginning the binary search toward MaxPLPMTU.
func (m *MTU) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != mtuDisabled {
		return
	}
	m.state = mtuBase
	m.confirmed = m.cfg.BasePLPMTU
	m.search = NewBinarySearcher(m.cfg.BasePLPMTU, m.cfg.MaxPLPMTU, m.cfg.Accuracy)
	m.enterSearchingLocked()
}

func (m *MTU) enterSearchingLocked() {
	if m.search.Done() {
		m.state = mtuSearchComplete
		m.confirmed = m.search.Low
		return
	}
	m.state = mtuSearching
	if !m.search.HighUpdated && m.search.windowNarrow() {
		// The window has narrowed without a single real probe failure -
		// take one more probe at High itself before declaring complete,
		// to catch the common case that the peer supports exactly High.
		m.probeSize = m.search.High
		m.probingHigh = true
	} else {
		m.probeSize = m.search.Mid()
		m.probingHigh = false
	}
	m.probeCount = 0
	m.ack.Wait(NewACKCell())
}

// NextProbeSize returns the size of the next probe packet to send, and
// whether the caller should send one at all (false once search has
// completed or the tracker is disabled/in error).
func (m *MTU) NextProbeSize() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != mtuSearching {
		return 0, false
	}
	return m.probeSize, true
}

// OnProbeAcked reports that the most recent probe at the size returned
// by NextProbeSize was acknowledged.
func (m *MTU) OnProbeAcked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != mtuSearching {
		return
	}
	m.ack.Confirm()
	m.search.Success(m.probeSize)
	if m.probingHigh {
		m.search.HighUpdated = true
	}
	m.confirmed = m.search.Low
	m.enterSearchingLocked()
}

// OnProbeLost reports that the most recent probe was declared lost by
// the loss detector. DPLPMTUD treats repeated loss at the same size as
// evidence the path can't forward it, per RFC 8899 Section 7.2's
// PROBE_COUNT; a single loss is often ordinary congestion loss and is
// not enough to narrow the search.
func (m *MTU) OnProbeLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != mtuSearching {
		return
	}
	m.ack.Confirm()
	m.probeCount++
	if m.probeCount < m.cfg.MaxProbes {
		m.ack.Wait(NewACKCell()) // retry the same size
		return
	}
	m.search.Failure(m.probeSize)
	if m.search.Low >= m.search.High {
		m.state = mtuError
		return
	}
	m.enterSearchingLocked()
}

// OnPathChanged resets the tracker to re-run discovery from BasePLPMTU,
// called after a connection migration invalidates whatever was
// previously confirmed for the old path.
func (m *MTU) OnPathChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = mtuDisabled
	m.ack.Reset()
}

// ProbeCell returns the ACK cell tracking the in-flight probe, for a
// loss detector to resolve directly once it settles the packet number
// the probe went out in. Returns nil when no probe is outstanding.
func (m *MTU) ProbeCell() *ACKCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ack.Cell()
}

// Confirmed returns the largest packet size confirmed deliverable on
// this path so far - usable as the outbound datagram size even while a
// search for something larger is still in progress.
func (m *MTU) Confirmed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmed
}

// State reports the current DPLPMTUD state, primarily for tests and
// diagnostics.
func (m *MTU) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.String()
}
