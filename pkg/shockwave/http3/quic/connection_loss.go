package quic

import (
	"sync"
	"time"
)

// Bridges loss_detection.go's per-packet-number ack/loss callbacks back to
// the ACKCell-based discipline ack.go defines: connid_issuer.go,
// connid_acceptor.go, and mtu.go each resolve their own outstanding
// ACKCell once the packet number carrying the frame they're waiting on is
// settled by the LossDetector, instead of re-deriving ack/loss from ACK
// frames a second time.

// pendingAckTag records what a sent packet needs resolved once the loss
// detector settles its packet number.
type pendingAckTag struct {
	newCIDSeqs   []uint64 // NEW_CONNECTION_ID frames carried, by sequence number
	retireIDSeqs []uint64 // RETIRE_CONNECTION_ID frames carried, by sequence number
	mtuProbe     bool     // this packet is the current DPLPMTUD probe
}

// connLossDispatch owns the LossDetector and the packet-number -> tag
// mapping that lets its callbacks reach the right ACKCell.
type connLossDispatch struct {
	mu      sync.Mutex
	loss    *LossDetector
	cong    *CongestionController
	conn    *Connection
	pending map[uint64]*pendingAckTag
}

func newConnLossDispatch(conn *Connection) *connLossDispatch {
	d := &connLossDispatch{conn: conn, pending: make(map[uint64]*pendingAckTag)}
	d.loss = NewLossDetector()
	d.cong = NewCongestionController()
	d.loss.SetCallbacks(d.onLost, d.onAcked)
	return d
}

// Send hands a packet to both the loss detector and the congestion
// controller, and records which NEW_CONNECTION_ID/RETIRE_CONNECTION_ID
// sequence numbers (or MTU probe) it carries so onAcked/onLost can
// resolve the right ACKCell once the loss detector settles pn.
func (d *connLossDispatch) Send(pkt *SentPacketInfo, newCIDSeqs, retireIDSeqs []uint64, mtuProbe bool) {
	d.TagPacket(pkt.PacketNumber, newCIDSeqs, retireIDSeqs, mtuProbe)
	d.cong.OnPacketSent(pkt.PacketSize, time.Now())
	d.loss.OnPacketSent(pkt)
}

// TagPacket records that packet number pn carries the given
// NEW_CONNECTION_ID/RETIRE_CONNECTION_ID sequence numbers and/or the
// current MTU probe, so the loss detector's eventual verdict on pn can be
// routed to the right ACKCell(s). Call this once per sent packet that
// carries any of these frames, before handing it to LossDetector.OnPacketSent.
func (d *connLossDispatch) TagPacket(pn uint64, newCIDSeqs, retireIDSeqs []uint64, mtuProbe bool) {
	if len(newCIDSeqs) == 0 && len(retireIDSeqs) == 0 && !mtuProbe {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[pn] = &pendingAckTag{newCIDSeqs: newCIDSeqs, retireIDSeqs: retireIDSeqs, mtuProbe: mtuProbe}
}

func (d *connLossDispatch) take(pn uint64) *pendingAckTag {
	d.mu.Lock()
	defer d.mu.Unlock()
	tag := d.pending[pn]
	delete(d.pending, pn)
	return tag
}

// onAcked fires for every packet number the loss detector confirms
// delivered, tagged or not: the congestion controller needs every
// packet's fate to track bytes in flight, while the ACKCell resolution
// below only applies to the subset carrying a tracked frame.
func (d *connLossDispatch) onAcked(pkt *SentPacketInfo) {
	rtt := pkt.TimeAcked.Sub(pkt.TimeSent)
	d.cong.OnPacketAcked(pkt.PacketSize, rtt, pkt.TimeAcked)

	tag := d.take(pkt.PacketNumber)
	if tag == nil {
		return
	}
	for _, seq := range tag.newCIDSeqs {
		if cell := d.conn.connIDIssuer.CellFor(seq); cell != nil {
			cell.Ack()
		}
	}
	for _, seq := range tag.retireIDSeqs {
		if cell := d.conn.connIDAcceptor.CellForRetire(seq); cell != nil {
			cell.Ack()
		}
	}
	if tag.mtuProbe {
		if cell := d.conn.mtu.ProbeCell(); cell != nil {
			cell.Ack()
		}
		d.conn.mtu.OnProbeAcked()
	}
}

func (d *connLossDispatch) onLost(pkt *SentPacketInfo) {
	d.cong.OnPacketLost(pkt.PacketSize, time.Now())

	tag := d.take(pkt.PacketNumber)
	if tag == nil {
		return
	}
	for _, seq := range tag.newCIDSeqs {
		if cell := d.conn.connIDIssuer.CellFor(seq); cell != nil {
			cell.Lost()
		}
	}
	for _, seq := range tag.retireIDSeqs {
		if cell := d.conn.connIDAcceptor.CellForRetire(seq); cell != nil {
			cell.Lost()
		}
	}
	if tag.mtuProbe {
		if cell := d.conn.mtu.ProbeCell(); cell != nil {
			cell.Lost()
		}
		d.conn.mtu.OnProbeLost()
	}
}
