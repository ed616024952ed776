// Package relay implements the bidirectional pump that, once a slot is
// Open on both peers, is symmetric regardless of which side opened it:
// socket bytes become frames, frames become socket writes, and either
// direction's close propagates as a zero-length frame. Guest and host
// both drive their slots through this package so the half-close and
// backpressure rules only need to be correct once.
package relay

import (
	"net"

	"github.com/paulGUZU/vsak/internal/tunnel"
	"github.com/paulGUZU/vsak/pkg/slot"
)

// PumpSocketToTransport reads from the slot's bound socket and frames each
// chunk onto the transport, one read per frame, until the socket errors or
// the transport itself fails. A transport write failure is fatal to the
// whole peer and is reported via onTransportErr so the caller can tear
// everything down; a socket-side error or EOF is local to this slot and is
// signalled to the peer with a zero-length frame.
func PumpSocketToTransport(tun *tunnel.Conn, tbl *slot.Table, s *slot.Slot, frameCap int, onTransportErr func(error)) {
	buf := make([]byte, frameCap)
	conn := s.Conn()
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := tun.WriteFrame(s.ID, buf[:n]); werr != nil {
				onTransportErr(werr)
				return
			}
		}
		if err != nil {
			SendClose(tun, tbl, s)
			return
		}
	}
}

// PumpTransportToSocket drains frames the dispatch loop queued for this
// slot (Deliver) and writes them to the bound socket, one at a time. A slow
// socket first fills its own bounded queue; once that queue is full,
// Deliver blocks the shared transport reader, delaying other slots too.
func PumpTransportToSocket(tun *tunnel.Conn, tbl *slot.Table, s *slot.Slot) {
	conn := s.Conn()
	pending := s.Pending()
	for {
		select {
		case payload, ok := <-pending:
			if !ok {
				return
			}
			if len(payload) == 0 {
				// Peer half-closed: mark it before closing so the
				// paired PumpSocketToTransport, which will now see this
				// socket closed out from under it, knows SendClose must
				// not echo a second zero-length frame back.
				s.MarkPeerClosed()
				_ = conn.Close()
				tbl.Close(s.ID)
				return
			}
			if _, err := conn.Write(payload); err != nil {
				SendClose(tun, tbl, s)
				return
			}
		case <-s.Done():
			return
		}
	}
}

// Deliver is called by a peer's single transport-dispatch loop for every
// frame addressed to an Open slot (and, on the host, to a slot still
// Connecting). It hands the payload to that slot's bounded queue
// (PumpTransportToSocket drains it), blocking the dispatch loop while the
// queue is full, or drops it once the slot has been retired.
func Deliver(s *slot.Slot, payload []byte) {
	select {
	case s.Pending() <- payload:
	case <-s.Done():
	}
}

// SendClose signals half-close to the peer with a zero-length frame,
// unless the peer already told us it closed first (MarkPeerClosed /
// PeerClosed) or the slot has already been retired (Free), then retires
// the slot locally. Table.Close clears the peerClosed flag, so the Free
// check is what keeps a pump that notices the closed socket after the
// slot was retired from echoing a frame. Calling this twice for the same
// slot puts exactly one zero-length frame on the wire.
func SendClose(tun *tunnel.Conn, tbl *slot.Table, s *slot.Slot) {
	if !s.PeerClosed() && s.State() != slot.Free {
		_ = tun.WriteFrame(s.ID, nil)
	}
	tbl.Close(s.ID)
}

// StartOpen transitions the slot to Open, binds conn, and launches its
// transport-to-socket pump. Callers still need to start
// PumpSocketToTransport themselves since the two peers feed it from
// different places (accept loop vs. dial result).
func StartOpen(tun *tunnel.Conn, tbl *slot.Table, s *slot.Slot, conn net.Conn) {
	s.Bind(conn)
	s.SetState(slot.Open)
	go PumpTransportToSocket(tun, tbl, s)
}
