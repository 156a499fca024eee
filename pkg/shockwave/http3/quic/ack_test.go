package quic

import "testing"

func TestACKCellInitialState(t *testing.T) {
	c := NewACKCell()
	if !c.IsWaiting() {
		t.Error("new cell should be waiting")
	}
	if c.IsAcked() || c.IsLost() {
		t.Error("new cell should not be resolved")
	}
}

func TestACKCellAck(t *testing.T) {
	c := NewACKCell()
	c.Ack()
	if !c.IsAcked() {
		t.Error("expected acked")
	}
	if c.IsLost() || c.IsWaiting() {
		t.Error("acked cell should not also be lost or waiting")
	}
	// Second call is a no-op, not a panic or state flip.
	c.Lost()
	if !c.IsAcked() {
		t.Error("outcome should stick to the first resolution")
	}
}

func TestACKCellLost(t *testing.T) {
	c := NewACKCell()
	c.Lost()
	if !c.IsLost() {
		t.Error("expected lost")
	}
	if c.IsAcked() {
		t.Error("lost cell should not be acked")
	}
}

func TestACKHandlerLifecycle(t *testing.T) {
	var h ACKHandler
	if h.NotConfirmed() {
		t.Error("empty handler should report confirmed")
	}

	cell := NewACKCell()
	h.Wait(cell)
	if !h.NotConfirmed() {
		t.Error("handler with a waiting cell should not be confirmed")
	}
	if h.IsAcked() || h.IsLost() {
		t.Error("handler should reflect the waiting cell's state")
	}

	cell.Ack()
	if !h.IsAcked() {
		t.Error("handler should observe the cell resolving to acked")
	}
	if h.NotConfirmed() {
		t.Error("resolved cell should no longer be NotConfirmed")
	}

	h.Confirm()
	if h.NotConfirmed() || h.IsAcked() || h.IsLost() {
		t.Error("confirmed handler should report empty state")
	}
}

func TestACKHandlerReset(t *testing.T) {
	var h ACKHandler
	cell := NewACKCell()
	h.Wait(cell)
	h.Reset()
	if h.NotConfirmed() || h.IsAcked() || h.IsLost() {
		t.Error("reset handler should report empty state")
	}
	// The original cell is untouched by Reset - only the handler forgot it.
	if !cell.IsWaiting() {
		t.Error("Reset should not mutate the abandoned cell")
	}
}

func TestACKHandlerRewait(t *testing.T) {
	var h ACKHandler
	first := NewACKCell()
	first.Lost()
	h.Wait(first)
	if !h.IsLost() {
		t.Fatal("expected first cell lost")
	}

	second := NewACKCell()
	h.Wait(second)
	if h.IsLost() {
		t.Error("handler should track the newly waited cell, not the old one")
	}
	if !h.NotConfirmed() {
		t.Error("handler should be waiting on the second cell")
	}
}
