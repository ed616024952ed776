// Package hostproxy is the host peer: it demultiplexes frames off the
// shared transport and, on first sight of a slot, opens an ordinary TCP
// connection to the address named in that slot's request preamble.
package hostproxy

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/paulGUZU/vsak/internal/relay"
	"github.com/paulGUZU/vsak/internal/tunnel"
	"github.com/paulGUZU/vsak/pkg/slot"
)

const (
	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04

	dialTimeout = 10 * time.Second
)

// Handler is the host-side egress demultiplexer.
type Handler struct {
	tun      *tunnel.Conn
	table    *slot.Table
	frameCap int
}

// NewHandler builds a host peer that demultiplexes tun's frames through
// table, dialing upstream connections as new slots arrive.
func NewHandler(tun *tunnel.Conn, table *slot.Table, frameCap int) *Handler {
	return &Handler{tun: tun, table: table, frameCap: frameCap}
}

// Run is the host's single transport reader. It never returns until the
// transport fails, at which point every slot is torn down (spec §7:
// transport errors are fatal to the whole process).
func (h *Handler) Run() error {
	for {
		id, payload, err := h.tun.ReadFrame()
		if err != nil {
			log.Printf("host transport closed: %v", err)
			h.teardownAllSlots()
			return err
		}
		h.dispatch(id, payload)
	}
}

func (h *Handler) teardownAllSlots() {
	for id := 0; id < h.table.Capacity(); id++ {
		h.table.Close(uint16(id))
	}
}

func (h *Handler) dispatch(id uint16, payload []byte) {
	sl, isNew, inRange := h.table.Reserve(id)
	if !inRange {
		// The decoder already rejects out-of-range ids as a framing
		// error before the host ever sees them; this is just defensive.
		return
	}

	if isNew {
		h.handleNewSlot(sl, payload)
		return
	}

	if sl.State() != slot.Open {
		// A frame arrived for a slot that is still connecting (the first
		// frame's dial has not completed) or already retired; queue it
		// if connecting, drop it otherwise.
		if sl.State() == slot.Connecting {
			relay.Deliver(sl, payload)
		}
		return
	}
	relay.Deliver(sl, payload)
}

// handleNewSlot parses the request preamble, dials the target, and opens
// the slot for relay on success. On failure it reports a zero-length
// frame and frees the slot without ever reaching Open.
func (h *Handler) handleNewSlot(sl *slot.Slot, preamble []byte) {
	target, err := parsePreamble(preamble)
	if err != nil {
		log.Printf("host: bad request preamble on slot %d: %v", sl.ID, err)
		relay.SendClose(h.tun, h.table, sl)
		return
	}

	go h.dialAndOpen(sl, target)
}

func (h *Handler) dialAndOpen(sl *slot.Slot, target string) {
	conn, err := net.DialTimeout("tcp", target, dialTimeout)
	if err != nil {
		log.Printf("host: dial %s failed for slot %d: %v", target, sl.ID, err)
		relay.SendClose(h.tun, h.table, sl)
		return
	}
	if sl.State() != slot.Connecting {
		// The slot was torn down (e.g. the guest already half-closed it)
		// while the dial was in flight.
		_ = conn.Close()
		return
	}

	relay.StartOpen(h.tun, h.table, sl, conn)
	relay.PumpSocketToTransport(h.tun, h.table, sl, h.frameCap, h.onTransportError)
}

func (h *Handler) onTransportError(err error) {
	log.Printf("host transport write failed: %v", err)
	h.teardownAllSlots()
}

// parsePreamble decodes the target address and port from a request
// preamble, per spec §3 ("Request preamble").
func parsePreamble(b []byte) (string, error) {
	if len(b) < 1 {
		return "", fmt.Errorf("empty preamble")
	}
	atyp := b[0]
	rest := b[1:]

	var host string
	switch atyp {
	case atypIPv4:
		if len(rest) < 4+2 {
			return "", fmt.Errorf("truncated IPv4 preamble")
		}
		host = net.IP(rest[:4]).String()
		rest = rest[4:]
	case atypDomain:
		if len(rest) < 1 {
			return "", fmt.Errorf("truncated domain preamble")
		}
		n := int(rest[0])
		rest = rest[1:]
		if n < 1 || len(rest) < n+2 {
			return "", fmt.Errorf("truncated domain name")
		}
		host = string(rest[:n])
		rest = rest[n:]
	case atypIPv6:
		if len(rest) < 16+2 {
			return "", fmt.Errorf("truncated IPv6 preamble")
		}
		host = net.IP(rest[:16]).String()
		rest = rest[16:]
	default:
		return "", fmt.Errorf("unsupported address type %d", atyp)
	}

	if len(rest) < 2 {
		return "", fmt.Errorf("missing port")
	}
	port := binary.BigEndian.Uint16(rest[:2])
	return net.JoinHostPort(host, fmt.Sprintf("%d", port)), nil
}
