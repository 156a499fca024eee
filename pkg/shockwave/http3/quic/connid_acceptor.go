package quic

import "sync"

// Connection ID acceptor: the local side that tracks connection IDs the
// peer has issued to us (via its own NEW_CONNECTION_ID frames), holds
// the one we're currently using as our destination, and emits
// RETIRE_CONNECTION_ID as the peer's retire_prior_to forces retirements
// or our own rotation policy (Config.ChangeMode) advances.

type acceptedConnID struct {
	seq                 uint64
	id                  ConnectionID
	statelessResetToken [16]byte
	retired             bool
}

// retiringID tracks one sequence number we've decided to retire, from the
// moment it's queued for a RETIRE_CONNECTION_ID send until that frame is
// acknowledged - mirroring issuedConnID's ack discipline in
// connid_issuer.go rather than assuming a single send always lands.
type retiringID struct {
	seq uint64
	ack ACKHandler
}

// ConnIDAcceptor owns the set of connection IDs the peer has issued for
// this endpoint to use as its destination.
type ConnIDAcceptor struct {
	mu sync.Mutex

	cfg           *Config
	ids           map[uint64]*acceptedConnID
	active        uint64
	retirePriorTo uint64 // highest retire_prior_to we've applied
	packetsOnID   uint64 // packets sent since the active id was picked up
	rotateAt      uint64 // packet count at which ConnIDChangeConstant/Random rotates
	retireWait    []*retiringID // sequence numbers awaiting a RETIRE_CONNECTION_ID send/ack
}

// NewConnIDAcceptor creates an acceptor governed by cfg's rotation policy
// and random provider (used only for ConnIDChangeRandom's per-rotation
// packet count draw).
func NewConnIDAcceptor(cfg *Config) *ConnIDAcceptor {
	acc := &ConnIDAcceptor{cfg: cfg}
	acc.reset()
	return acc
}

func (acc *ConnIDAcceptor) reset() {
	acc.ids = make(map[uint64]*acceptedConnID)
	acc.active = 0
	acc.retirePriorTo = 0
	acc.packetsOnID = 0
	acc.rotateAt = acc.cfg.PacketPerID
	acc.retireWait = nil
}

// Reset discards every accepted ID and returns to the initial state.
func (acc *ConnIDAcceptor) Reset() {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.reset()
}

// Accept processes an incoming NEW_CONNECTION_ID frame: RFC 9000 Section
// 19.15's ordering rule (a frame whose sequence number is below the
// retire_prior_to already applied is ignored), the version-1 20-byte
// max length, and retire_prior_to forcing retirement of everything below
// it, with RetireUnder queuing the resulting RETIRE_CONNECTION_ID sends.
func (acc *ConnIDAcceptor) Accept(f *NewConnectionIDFrame) error {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if len(f.ConnectionID) > MaxConnectionIDLen {
		return protocolViolation("connection id exceeds version 1's maximum length", FrameTypeNewConnectionID)
	}
	if f.RetirePriorTo > f.SequenceNumber {
		return protocolViolation("retire_prior_to exceeds the frame's own sequence number", FrameTypeNewConnectionID)
	}
	if f.SequenceNumber < acc.retirePriorTo {
		// The peer is re-announcing an ID it already told us to retire;
		// nothing to do, not an error (duplicate/reordered frame).
		return nil
	}

	if _, exists := acc.ids[f.SequenceNumber]; !exists {
		acc.ids[f.SequenceNumber] = &acceptedConnID{
			seq:                 f.SequenceNumber,
			id:                  f.ConnectionID,
			statelessResetToken: f.StatelessResetToken,
		}
	}

	if f.RetirePriorTo > acc.retirePriorTo {
		acc.retireUnderLocked(f.RetirePriorTo)
	}

	if len(acc.ids) == 1 {
		// First ID we've ever seen: adopt it immediately rather than
		// waiting for a rotation trigger.
		acc.active = f.SequenceNumber
	}
	return nil
}

// RetireUnder forces retirement of every accepted ID with sequence
// number below upTo and queues a RETIRE_CONNECTION_ID for each. Exposed
// directly so a caller can also invoke it outside of Accept - e.g. in
// response to its own decision rather than a peer-sent retire_prior_to.
func (acc *ConnIDAcceptor) RetireUnder(upTo uint64) {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.retireUnderLocked(upTo)
}

func (acc *ConnIDAcceptor) retireUnderLocked(upTo uint64) {
	for seq, entry := range acc.ids {
		if seq < upTo && !entry.retired {
			entry.retired = true
			r := &retiringID{seq: seq}
			r.ack.Wait(NewACKCell())
			acc.retireWait = append(acc.retireWait, r)
			delete(acc.ids, seq)
		}
	}
	if upTo > acc.retirePriorTo {
		acc.retirePriorTo = upTo
	}
	if _, stillThere := acc.ids[acc.active]; !stillThere {
		acc.active = acc.pickAnyLocked()
	}
}

func (acc *ConnIDAcceptor) pickAnyLocked() uint64 {
	min := uint64(0)
	found := false
	for s := range acc.ids {
		if !found || s < min {
			min = s
			found = true
		}
	}
	return min
}

// UpdateActive advances the rotation policy by one sent packet,
// switching to a new accepted ID when ConnIDChangeConstant/Random's
// packet budget is exhausted. It scans upward from active+1 for the next
// live sequence number, wrapping to the smallest if none is found above.
func (acc *ConnIDAcceptor) UpdateActive() {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.packetsOnID++
	if acc.cfg.ChangeMode == ConnIDChangeNever {
		return
	}
	if acc.packetsOnID < acc.rotateAt {
		return
	}

	next, ok := acc.nextAfterLocked(acc.active)
	if !ok {
		return // nothing else accepted yet; keep using the current one
	}
	acc.active = next
	acc.packetsOnID = 0
	acc.rotateAt = acc.nextRotateBudgetLocked()
}

func (acc *ConnIDAcceptor) nextAfterLocked(after uint64) (uint64, bool) {
	var best uint64
	found := false
	for s := range acc.ids {
		if s <= after {
			continue
		}
		if !found || s < best {
			best = s
			found = true
		}
	}
	if found {
		return best, true
	}
	// Wrap: pick the smallest available sequence number overall, as long
	// as it isn't the one we just left.
	for s := range acc.ids {
		if s != after && (!found || s < best) {
			best = s
			found = true
		}
	}
	return best, found
}

func (acc *ConnIDAcceptor) nextRotateBudgetLocked() uint64 {
	if acc.cfg.ChangeMode != ConnIDChangeRandom || acc.cfg.Random == nil {
		return acc.cfg.PacketPerID
	}
	max := acc.cfg.MaxPacketPerID
	if max == 0 {
		max = acc.cfg.PacketPerID
	}
	var b [8]byte
	if err := acc.cfg.Random.Random(b[:], RandomUsagePathChallenge); err != nil {
		return acc.cfg.PacketPerID
	}
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return 1 + v%max
}

// MaybeUpdateID rotates the active ID immediately regardless of the
// packet budget, used after a detected path change where continuing to
// use the old ID would reveal the linkage between the two paths.
func (acc *ConnIDAcceptor) MaybeUpdateID() bool {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	next, ok := acc.nextAfterLocked(acc.active)
	if !ok {
		return false
	}
	acc.active = next
	acc.packetsOnID = 0
	acc.rotateAt = acc.nextRotateBudgetLocked()
	return true
}

// Active returns the connection ID currently selected as our
// destination.
func (acc *ConnIDAcceptor) Active() (ConnectionID, bool) {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	e, ok := acc.ids[acc.active]
	if !ok {
		return nil, false
	}
	return e.id, true
}

// AllIDs returns every connection ID currently accepted from the peer,
// in no particular order - used when migrating to a new path and needing
// an ID other than the one already in use.
func (acc *ConnIDAcceptor) AllIDs() []ConnectionID {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	ids := make([]ConnectionID, 0, len(acc.ids))
	for _, e := range acc.ids {
		ids = append(ids, e.id)
	}
	return ids
}

// Send drains the retire-wait list, returning one RETIRE_CONNECTION_ID
// frame per sequence number that still needs to announce its retirement -
// never sent, or the ack for its last send was lost, the same discipline
// ConnIDIssuer.Send uses for NEW_CONNECTION_ID.
func (acc *ConnIDAcceptor) Send() []*RetireConnectionIDFrame {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	var frames []*RetireConnectionIDFrame
	remaining := acc.retireWait[:0]
	for _, r := range acc.retireWait {
		if r.ack.IsAcked() {
			r.ack.Confirm()
			continue
		}
		if r.ack.IsLost() {
			r.ack.Confirm()
			r.ack.Wait(NewACKCell())
		}
		frames = append(frames, &RetireConnectionIDFrame{SequenceNumber: r.seq})
		remaining = append(remaining, r)
	}
	acc.retireWait = remaining
	return frames
}

// CellForRetire returns the ACK cell tracking the RETIRE_CONNECTION_ID
// for seq, for a loss detector to resolve directly once it settles the
// packet number that carried it. Returns nil if seq isn't outstanding.
func (acc *ConnIDAcceptor) CellForRetire(seq uint64) *ACKCell {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	for _, r := range acc.retireWait {
		if r.seq == seq {
			return r.ack.Cell()
		}
	}
	return nil
}

// MatchStatelessReset reports whether token matches the stateless reset
// token of any ID this acceptor has accepted - the signal that an
// incoming short packet that failed to decrypt is actually a Stateless
// Reset from the peer (RFC 9000 Section 10.3).
func (acc *ConnIDAcceptor) MatchStatelessReset(token [16]byte) bool {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	for _, e := range acc.ids {
		if e.statelessResetToken == token {
			return true
		}
	}
	return false
}
