package quic

import "sync"

// ACK-outcome channel and resend-handler discipline, shared identically by
// the connection ID issuer (connid_issuer.go), the connection ID acceptor
// (connid_acceptor.go), and DPLPMTUD (mtu.go): whenever one of those sends
// something that needs the peer to acknowledge it before it can be
// considered settled, it hands out an ACKCell and polls it for the
// outcome instead of matching packet numbers against ACK frames itself.

// ackOutcome is the tri-state an ACKCell can hold.
type ackOutcome uint8

const (
	ackWait ackOutcome = iota
	ackAcked
	ackLost
)

// ACKCell is a single-producer, single-outcome cell: whatever sent the
// packet that owns this cell calls Ack or Lost exactly once when the loss
// detector resolves that packet number; any number of readers can poll
// the outcome with IsAcked/IsLost in the meantime. It starts in ackWait
// and is not reusable once resolved - callers needing another round trip
// create a new cell.
type ACKCell struct {
	mu      sync.Mutex
	outcome ackOutcome
}

// NewACKCell returns a cell in the initial Wait state.
func NewACKCell() *ACKCell {
	return &ACKCell{}
}

// Ack resolves the cell as acknowledged. A second call (from a duplicate
// ACK processing pass) is a no-op rather than an error: the loss detector
// may legitimately observe the same packet number acked twice.
func (c *ACKCell) Ack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == ackWait {
		c.outcome = ackAcked
	}
}

// Lost resolves the cell as lost.
func (c *ACKCell) Lost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == ackWait {
		c.outcome = ackLost
	}
}

// IsAcked reports whether the cell has resolved to Ack.
func (c *ACKCell) IsAcked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome == ackAcked
}

// IsLost reports whether the cell has resolved to Lost.
func (c *ACKCell) IsLost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome == ackLost
}

// IsWaiting reports whether the cell has not yet resolved.
func (c *ACKCell) IsWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome == ackWait
}

// ACKHandler is the resend-handler facade: it holds at most one
// outstanding ACKCell at a time for whatever the owner most recently
// sent, and exposes the wait/is_ack/is_lost/not_confirmed/confirm/reset
// operations the CID issuer, CID acceptor, and DPLPMTUD all drive it
// with. The zero value is ready to use (no outstanding cell).
type ACKHandler struct {
	mu   sync.Mutex
	cell *ACKCell
}

// Wait installs cell as the handler's single outstanding cell, replacing
// any prior one. The caller keeps resending the value associated with
// cell until Confirm/NotConfirmed tells it to stop.
func (h *ACKHandler) Wait(cell *ACKCell) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cell = cell
}

// IsAcked reports whether the outstanding cell, if any, has resolved to
// Ack.
func (h *ACKHandler) IsAcked() bool {
	h.mu.Lock()
	cell := h.cell
	h.mu.Unlock()
	return cell != nil && cell.IsAcked()
}

// IsLost reports whether the outstanding cell, if any, has resolved to
// Lost.
func (h *ACKHandler) IsLost() bool {
	h.mu.Lock()
	cell := h.cell
	h.mu.Unlock()
	return cell != nil && cell.IsLost()
}

// NotConfirmed reports whether there is an outstanding cell that has not
// yet resolved - the signal to keep resending.
func (h *ACKHandler) NotConfirmed() bool {
	h.mu.Lock()
	cell := h.cell
	h.mu.Unlock()
	return cell != nil && cell.IsWaiting()
}

// Confirm clears the outstanding cell once its caller has consumed the
// Ack/Lost outcome, returning the handler to its empty state.
func (h *ACKHandler) Confirm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cell = nil
}

// Cell returns the handler's current outstanding cell, or nil if there is
// none - for a loss detector that resolves cells by packet number rather
// than by polling the handler itself.
func (h *ACKHandler) Cell() *ACKCell {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cell
}

// Reset discards any outstanding cell unconditionally, used when the
// owner (issuer/acceptor/MTU search) abandons the in-flight attempt -
// e.g. a path change invalidates a DPLPMTUD probe in flight.
func (h *ACKHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cell = nil
}
