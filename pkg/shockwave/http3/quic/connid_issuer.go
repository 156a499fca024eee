package quic

import "sync"

// Connection ID issuer: the local side of RFC 9000 Section 5.1's
// connection ID lifecycle. The issuer hands out connection IDs for the
// peer to use as our destination, sends NEW_CONNECTION_ID for each one,
// and retires them on request (RETIRE_CONNECTION_ID from the peer, or a
// locally-driven retire_prior_to bump).

type issuedConnID struct {
	seq                 uint64
	id                  ConnectionID
	statelessResetToken [16]byte
	retired             bool
	ack                 ACKHandler
}

// ConnIDIssuer owns the set of connection IDs this endpoint has issued
// for its peer to use.
type ConnIDIssuer struct {
	mu sync.Mutex

	cfg             *Config
	nextSeq         uint64
	limit           uint64 // local issuance cap, cfg.ConcurrentIDLimit
	maxActiveConnID uint64 // peer's active_connection_id_limit; defaults to 2 until their transport parameters arrive
	retirePriorToID uint64 // highest retire_prior_to ever proposed via a NEW_CONNECTION_ID frame
	ids             map[uint64]*issuedConnID
	active          uint64 // sequence number the peer is currently believed to be using as our destination
	waitlist        []uint64
}

// NewConnIDIssuer creates an issuer using cfg's connection-ID length,
// concurrency limit, exporter, and random provider.
func NewConnIDIssuer(cfg *Config) *ConnIDIssuer {
	iss := &ConnIDIssuer{cfg: cfg}
	iss.reset()
	return iss
}

func (iss *ConnIDIssuer) reset() {
	iss.nextSeq = 0
	iss.limit = iss.cfg.ConcurrentIDLimit
	iss.maxActiveConnID = 2
	iss.retirePriorToID = 0
	iss.ids = make(map[uint64]*issuedConnID)
	iss.active = 0
	iss.waitlist = nil
}

// Reset discards all issued IDs and returns the issuer to its initial
// state - used when a connection is being re-established (e.g. after a
// Retry round trip invalidates the IDs issued so far).
func (iss *ConnIDIssuer) Reset() {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	iss.reset()
}

// OnTransportParameterReceived records the peer's advertised
// active_connection_id_limit, replacing the default-2 assumption used
// until now. issueLocked checks |srcids| against this on every issuance.
func (iss *ConnIDIssuer) OnTransportParameterReceived(peerActiveConnIDLimit uint64) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	iss.maxActiveConnID = peerActiveConnIDLimit
}

func (iss *ConnIDIssuer) activeCount() int {
	n := 0
	for _, e := range iss.ids {
		if !e.retired {
			n++
		}
	}
	return n
}

// Issue generates and registers one new connection ID, queues it for a
// NEW_CONNECTION_ID send, and returns its sequence number along with the
// retire_prior_to value the peer should be forced to honor alongside it.
// retire_prior_to is non-zero only once |srcids| has reached the peer's
// active_connection_id_limit: that overflow is the only mechanism by
// which the issuer forces the peer to retire older IDs. Issue fails with
// ErrZeroLengthCID when the issuer is configured for zero-length mode:
// there is nothing to issue.
func (iss *ConnIDIssuer) Issue() (uint64, uint64, error) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	return iss.issueLocked()
}

func (iss *ConnIDIssuer) issueLocked() (uint64, uint64, error) {
	if iss.cfg.ConnIDLen == 0 {
		return 0, 0, ErrZeroLengthCID
	}
	if iss.cfg.Random == nil {
		return 0, 0, ErrMissingRandomProvider
	}

	idBytes := make([]byte, iss.cfg.ConnIDLen)
	if err := iss.cfg.Random.Random(idBytes, RandomUsageConnectionID); err != nil {
		return 0, 0, implementationBug("connection id random source failed: " + err.Error())
	}
	var token [16]byte
	if err := iss.cfg.Random.Random(token[:], RandomUsageStatelessResetToken); err != nil {
		return 0, 0, implementationBug("stateless reset token random source failed: " + err.Error())
	}

	var retirePriorTo uint64
	if uint64(len(iss.ids)) >= iss.maxActiveConnID {
		retirePriorTo = iss.active
		iss.retirePriorToID = retirePriorTo
	}

	seq := iss.nextSeq
	iss.nextSeq++

	entry := &issuedConnID{seq: seq, id: ConnectionID(idBytes), statelessResetToken: token}
	entry.ack.Wait(NewACKCell())
	iss.ids[seq] = entry
	iss.waitlist = append(iss.waitlist, seq)

	if iss.cfg.Exporter != nil {
		iss.cfg.Exporter.Issued(seq, entry.id, entry.statelessResetToken)
	}
	return seq, retirePriorTo, nil
}

// IssueIDsToLimit tops up the active (non-retired) ID count to the
// lesser of the peer's active_connection_id_limit and the locally
// configured concurrency cap, issuing as many new IDs as needed. It is
// idempotent: calling it when already at the limit issues nothing.
func (iss *ConnIDIssuer) IssueIDsToLimit() error {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	target := iss.maxActiveConnID
	if iss.limit < target {
		target = iss.limit
	}
	for uint64(iss.activeCount()) < target {
		if _, _, err := iss.issueLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Retire marks seq retired in response to a RETIRE_CONNECTION_ID frame
// from the peer. If seq is the ID the peer was using as our active
// destination, the issuer recomputes its notion of "active" as the
// smallest remaining non-retired sequence number, so Choose keeps
// returning a live ID even mid-rotation.
func (iss *ConnIDIssuer) Retire(seq uint64) error {
	iss.mu.Lock()
	defer iss.mu.Unlock()

	entry, ok := iss.ids[seq]
	if !ok || entry.retired {
		return nil
	}
	entry.retired = true
	if iss.cfg.Exporter != nil {
		iss.cfg.Exporter.Retired(seq, entry.id)
	}
	delete(iss.ids, seq)

	if iss.active == seq {
		iss.active = iss.minRemainingSeq()
	}
	return nil
}

func (iss *ConnIDIssuer) minRemainingSeq() uint64 {
	min := uint64(0)
	found := false
	for s := range iss.ids {
		if !found || s < min {
			min = s
			found = true
		}
	}
	return min
}

// RetirePriorTo forces retirement of every issued ID with a sequence
// number below upTo, as RFC 9000 Section 5.1.2 requires a NEW_CONNECTION_ID
// carrying a higher retire_prior_to to do.
func (iss *ConnIDIssuer) RetirePriorTo(upTo uint64) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	for seq, entry := range iss.ids {
		if seq < upTo && !entry.retired {
			entry.retired = true
			if iss.cfg.Exporter != nil {
				iss.cfg.Exporter.Retired(seq, entry.id)
			}
			delete(iss.ids, seq)
		}
	}
	if iss.active < upTo {
		iss.active = iss.minRemainingSeq()
	}
}

// HasID reports whether id is currently among this issuer's active
// (non-retired) issued IDs.
func (iss *ConnIDIssuer) HasID(id ConnectionID) bool {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	for _, e := range iss.ids {
		if !e.retired && e.id.Equal(id) {
			return true
		}
	}
	return false
}

// PickUpID records that the peer has started using id (one of ours) as
// the destination connection ID on incoming packets, updating the
// issuer's notion of its active ID.
func (iss *ConnIDIssuer) PickUpID(id ConnectionID) bool {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	for seq, e := range iss.ids {
		if !e.retired && e.id.Equal(id) {
			iss.active = seq
			return true
		}
	}
	return false
}

// Choose returns the connection ID the issuer currently believes the
// peer is using (or will use) as our destination.
func (iss *ConnIDIssuer) Choose() (ConnectionID, bool) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	e, ok := iss.ids[iss.active]
	if !ok {
		return nil, false
	}
	return e.id, true
}

// Send drains the waitlist, returning one NEW_CONNECTION_ID frame per ID
// that still needs to announce itself (never sent, or the ack for its
// last send was lost). The issuer's current retire_prior_to_id, last
// bumped by an overflow in issueLocked, is stamped onto every frame per
// RFC 9000 Section 19.15 - it must reflect the same value across all
// frames sent together.
func (iss *ConnIDIssuer) Send() []*NewConnectionIDFrame {
	iss.mu.Lock()
	defer iss.mu.Unlock()

	var frames []*NewConnectionIDFrame
	remaining := iss.waitlist[:0]
	for _, seq := range iss.waitlist {
		entry, ok := iss.ids[seq]
		if !ok {
			continue // retired before ever being sent
		}
		if entry.ack.IsAcked() {
			entry.ack.Confirm()
			continue
		}
		if entry.ack.IsLost() {
			entry.ack.Confirm()
			entry.ack.Wait(NewACKCell())
		}
		frames = append(frames, &NewConnectionIDFrame{
			SequenceNumber:      seq,
			RetirePriorTo:       iss.retirePriorToID,
			ConnectionID:        entry.id,
			StatelessResetToken: entry.statelessResetToken,
		})
		remaining = append(remaining, seq)
	}
	iss.waitlist = remaining
	return frames
}

// CellFor returns the ACK cell tracking the NEW_CONNECTION_ID announcing
// seq, for a loss detector to resolve directly once it settles the
// packet number that carried it. Returns nil if seq isn't outstanding.
func (iss *ConnIDIssuer) CellFor(seq uint64) *ACKCell {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	e, ok := iss.ids[seq]
	if !ok {
		return nil
	}
	return e.ack.Cell()
}

// idAt returns the connection ID registered under seq, if any is still
// active.
func (iss *ConnIDIssuer) idAt(seq uint64) (ConnectionID, bool) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	e, ok := iss.ids[seq]
	if !ok {
		return nil, false
	}
	return e.id, true
}

// seqFor looks up the sequence number an active issued ID was registered
// under.
func (iss *ConnIDIssuer) seqFor(id ConnectionID) (uint64, bool) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	for seq, e := range iss.ids {
		if !e.retired && e.id.Equal(id) {
			return seq, true
		}
	}
	return 0, false
}

// DstIDLenFunc returns a packet.go DstIDLenFunc that resolves a Short
// header's destination connection ID length to the issuer's configured
// length - correct as long as every ID this issuer has ever handed out
// shares the same length, which issueLocked always upholds.
func (iss *ConnIDIssuer) DstIDLenFunc() DstIDLenFunc {
	return func(afterFirstByte []byte) (int, error) {
		iss.mu.Lock()
		n := iss.cfg.ConnIDLen
		iss.mu.Unlock()
		if len(afterFirstByte) < n {
			return 0, ErrShortInput
		}
		return n, nil
	}
}
