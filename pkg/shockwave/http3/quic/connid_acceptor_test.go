package quic

import "testing"

func testAcceptorConfig(mode ConnIDChangeMode) *Config {
	return &Config{
		ConnIDLen:      8,
		ChangeMode:     mode,
		PacketPerID:    4,
		MaxPacketPerID: 8,
		Random:         DefaultRandomProvider{},
	}
}

func acceptFrame(t *testing.T, acc *ConnIDAcceptor, seq, retirePriorTo uint64, id byte) {
	t.Helper()
	cid := ConnectionID{id, id, id, id, id, id, id, id}
	err := acc.Accept(&NewConnectionIDFrame{
		SequenceNumber: seq,
		RetirePriorTo:  retirePriorTo,
		ConnectionID:   cid,
	})
	if err != nil {
		t.Fatalf("Accept(seq=%d) error = %v", seq, err)
	}
}

func TestConnIDAcceptorFirstIDAdopted(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	acceptFrame(t, acc, 0, 0, 1)

	id, ok := acc.Active()
	if !ok {
		t.Fatal("expected an active id after accepting the first one")
	}
	if !id.Equal(ConnectionID{1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Errorf("active id = %x, want 01...01", id)
	}
}

func TestConnIDAcceptorRetirePriorTo(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	acceptFrame(t, acc, 0, 0, 1)
	acceptFrame(t, acc, 1, 0, 2)
	acceptFrame(t, acc, 2, 2, 3) // retire_prior_to=2 forces out seq 0 and 1

	frames := acc.Send()
	if len(frames) != 2 {
		t.Fatalf("Send() returned %d frames, want 2", len(frames))
	}

	id, ok := acc.Active()
	if !ok {
		t.Fatal("expected a surviving active id")
	}
	if !id.Equal(ConnectionID{3, 3, 3, 3, 3, 3, 3, 3}) {
		t.Errorf("active id = %x, want 03...03 (only one left after retire_prior_to)", id)
	}

	// Acking one and losing the other: the acked one drops out, the lost
	// one comes back on the next Send.
	ackedSeq := frames[0].SequenceNumber
	lostSeq := frames[1].SequenceNumber
	if cell := acc.CellForRetire(ackedSeq); cell != nil {
		cell.Ack()
	}
	if cell := acc.CellForRetire(lostSeq); cell != nil {
		cell.Lost()
	}

	frames2 := acc.Send()
	if len(frames2) != 1 {
		t.Fatalf("Send() after ack+loss returned %d frames, want 1", len(frames2))
	}
	if frames2[0].SequenceNumber != lostSeq {
		t.Errorf("Send() resent seq %d, want the lost one (%d)", frames2[0].SequenceNumber, lostSeq)
	}
}

func TestConnIDAcceptorRejectsInvertedRetirePriorTo(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	err := acc.Accept(&NewConnectionIDFrame{
		SequenceNumber: 1,
		RetirePriorTo:  5,
		ConnectionID:   ConnectionID{1, 2, 3, 4},
	})
	if err == nil {
		t.Error("expected an error when retire_prior_to exceeds the frame's own sequence number")
	}
}

func TestConnIDAcceptorRejectsOversizedID(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	oversized := make(ConnectionID, MaxConnectionIDLen+1)
	err := acc.Accept(&NewConnectionIDFrame{SequenceNumber: 0, ConnectionID: oversized})
	if err == nil {
		t.Error("expected an error for a connection id over 20 bytes")
	}
}

func TestConnIDAcceptorNeverRotates(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	acceptFrame(t, acc, 0, 0, 1)
	acceptFrame(t, acc, 1, 0, 2)

	first, _ := acc.Active()
	for i := 0; i < 20; i++ {
		acc.UpdateActive()
	}
	second, _ := acc.Active()
	if !first.Equal(second) {
		t.Error("ConnIDChangeNever should never rotate the active id")
	}
}

func TestConnIDAcceptorConstantRotation(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeConstant))
	acceptFrame(t, acc, 0, 0, 1)
	acceptFrame(t, acc, 1, 0, 2)

	first, _ := acc.Active()
	for i := uint64(0); i < acc.cfg.PacketPerID; i++ {
		acc.UpdateActive()
	}
	second, _ := acc.Active()
	if first.Equal(second) {
		t.Error("expected rotation to a different id after PacketPerID packets")
	}
}

func TestConnIDAcceptorMaybeUpdateID(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	acceptFrame(t, acc, 0, 0, 1)
	acceptFrame(t, acc, 1, 0, 2)

	first, _ := acc.Active()
	if !acc.MaybeUpdateID() {
		t.Fatal("expected MaybeUpdateID to find another accepted id")
	}
	second, _ := acc.Active()
	if first.Equal(second) {
		t.Error("MaybeUpdateID should force a rotation")
	}
}

func TestConnIDAcceptorMatchStatelessReset(t *testing.T) {
	acc := NewConnIDAcceptor(testAcceptorConfig(ConnIDChangeNever))
	token := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	err := acc.Accept(&NewConnectionIDFrame{
		SequenceNumber:      0,
		ConnectionID:        ConnectionID{1, 1, 1, 1, 1, 1, 1, 1},
		StatelessResetToken: token,
	})
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !acc.MatchStatelessReset(token) {
		t.Error("expected the accepted token to match")
	}
	other := token
	other[0] ^= 0xFF
	if acc.MatchStatelessReset(other) {
		t.Error("unrelated token should not match")
	}
}
