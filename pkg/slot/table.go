// Package slot implements the per-peer connection table: a fixed-capacity
// array of logical stream slots indexed by a 16-bit id, shared between the
// guest and host event loops.
package slot

import (
	"net"
	"sync"

	"github.com/tevino/abool"
)

// State is a slot's lifecycle stage. Not every state is reachable on every
// peer: the guest cycles Free -> Negotiating -> AwaitingRequest -> Open ->
// Closing -> Free; the host cycles Free -> Connecting -> Open -> Closing ->
// Free.
type State int

const (
	Free State = iota
	Negotiating
	AwaitingRequest
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Negotiating:
		return "negotiating"
	case AwaitingRequest:
		return "awaiting_request"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// pendingCap bounds the per-slot outbound queue: frames decoded off the
// transport and waiting for their turn on the slot's socket. This is the
// "pending_outbound" buffer named in the data model; it is what turns a
// slow socket write into backpressure on the shared transport reader
// instead of an unbounded buffer.
const pendingCap = 8

// Slot is one logical stream multiplexed over the transport.
type Slot struct {
	ID uint16

	mu     sync.Mutex
	state  State
	conn   net.Conn
	closed *abool.AtomicBool

	// peerClosed is set when a zero-length frame arrives for this slot,
	// so the socket-reading pump that notices the resulting local close
	// does not echo a second zero-length frame back.
	peerClosed *abool.AtomicBool

	pending chan []byte
	done    chan struct{}
}

func newSlot(id uint16) *Slot {
	return &Slot{
		ID:         id,
		state:      Free,
		closed:     abool.New(),
		peerClosed: abool.New(),
	}
}

// State returns the slot's current lifecycle stage.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the slot. Callers hold no lock of their own; Table
// operations and the event loops are the only callers.
func (s *Slot) SetState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Bind associates a socket with the slot. It does not change the slot's
// state; relay.StartOpen sets Open after binding.
func (s *Slot) Bind(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// Conn returns the slot's bound socket, or nil if none is bound yet.
func (s *Slot) Conn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// MarkPeerClosed records that a zero-length frame already arrived for this
// slot, so the local close path knows not to emit one of its own.
func (s *Slot) MarkPeerClosed() bool {
	return s.peerClosed.SetToIf(false, true)
}

// PeerClosed reports whether a zero-length frame has already been observed
// for this slot.
func (s *Slot) PeerClosed() bool {
	return s.peerClosed.IsSet()
}

// Pending returns the slot's bounded inbound-from-transport queue, creating
// it on first use. Relay code drains this into the slot's socket.
func (s *Slot) Pending() chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(chan []byte, pendingCap)
		s.done = make(chan struct{})
	}
	return s.pending
}

// Done returns a channel closed when the slot is retired.
func (s *Slot) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	return s.done
}

// reset clears a slot back to its just-allocated shape. The close flags are
// cleared here, inside the same critical section that sets state to Free,
// so a racing Allocate cannot reclaim the slot and observe it still marked
// closed/peerClosed from the previous occupant.
func (s *Slot) reset() {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.state = Free
	s.conn = nil
	s.pending = nil
	s.done = nil
	// Cleared before the lock releases (and so before Free becomes
	// observable to a racing Allocate) so a reallocated slot never starts
	// out stamped with its previous occupant's close flags.
	s.closed.SetTo(false)
	s.peerClosed.SetTo(false)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		closeOnce(done)
	}
}

func closeOnce(ch chan struct{}) {
	defer func() { recover() }()
	close(ch)
}

// Table is a fixed-capacity slot table. The guest owns slot assignment
// (Allocate); the host only ever references ids the guest handed it
// (Reserve, on first sight of a new id).
type Table struct {
	mu    sync.Mutex
	slots []*Slot
}

// NewTable builds a table with the given number of slots (spec default 64).
func NewTable(capacity int) *Table {
	t := &Table{slots: make([]*Slot, capacity)}
	for i := range t.slots {
		t.slots[i] = newSlot(uint16(i))
	}
	return t
}

// Capacity returns the number of slots in the table.
func (t *Table) Capacity() int { return len(t.slots) }

// Allocate returns the lowest free id, marking it Negotiating. It returns
// ok == false when every slot is occupied; the capacity policy (close the
// client with no reply) lives in the caller.
func (t *Table) Allocate() (id uint16, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slots {
		if s.State() == Free {
			s.SetState(Negotiating)
			return s.ID, true
		}
	}
	return 0, false
}

// Reserve is the host-side counterpart to Allocate: on first sight of an
// id the guest has not been seen before, it claims the slot and marks it
// Connecting. isNew is false if the slot was already in use (a later frame
// for an already-open slot).
func (t *Table) Reserve(id uint16) (s *Slot, isNew bool, inRange bool) {
	if int(id) >= len(t.slots) {
		return nil, false, false
	}
	s = t.slots[id]
	s.mu.Lock()
	if s.state == Free {
		s.state = Connecting
		s.mu.Unlock()
		return s, true, true
	}
	s.mu.Unlock()
	return s, false, true
}

// Lookup returns the slot for id, rejecting ids outside [0, capacity).
func (t *Table) Lookup(id uint16) (*Slot, bool) {
	if int(id) >= len(t.slots) {
		return nil, false
	}
	return t.slots[id], true
}

// Close is idempotent: it transitions the slot to Free, releases its
// socket, discards any buffered payload, and is safe to call concurrently
// — exactly one cleanup happens no matter how many callers race here.
func (t *Table) Close(id uint16) {
	s, ok := t.Lookup(id)
	if !ok {
		return
	}
	if !s.closed.SetToIf(false, true) {
		return
	}
	s.reset()
}
