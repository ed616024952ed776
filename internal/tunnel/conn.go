// Package tunnel wraps the opaque transport handle with the symmetric
// framing discipline both peers share: one serialised writer, one reader
// driving a pull-style decoder. Guest and host import the same type so the
// writer-serialisation and single-in-flight-read invariants only need to
// be proven once.
package tunnel

import (
	"fmt"
	"io"
	"sync"

	"github.com/paulGUZU/vsak/pkg/wire"
)

// writeBacklog bounds how many relayed chunks may queue up waiting for
// their turn on the transport before a writer blocks. A small backlog is
// enough to keep the single writer goroutine busy without letting any one
// slow peer queue unbounded memory.
const writeBacklog = 32

type writeRequest struct {
	slot    uint16
	payload []byte
	result  chan error
}

// Conn is a transport handle with a serialised writer and a single decode
// loop. Frames from different slots may interleave on the wire in any
// order relative to each other, but writes from a single slot, and the
// header+payload of any one frame, are never split.
type Conn struct {
	rw  io.ReadWriteCloser
	dec *wire.Decoder

	writes chan writeRequest
	die    chan struct{}
	once   sync.Once

	errMu sync.Mutex
	err   error
}

// New wraps rw and starts its writer goroutine. maxSlot bounds the decoder
// the way NewDecoder does: frames addressed outside [0, maxSlot) are a
// framing error.
func New(rw io.ReadWriteCloser, maxSlot uint16) *Conn {
	c := &Conn{
		rw:     rw,
		dec:    wire.NewDecoder(maxSlot),
		writes: make(chan writeRequest, writeBacklog),
		die:    make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// WriteFrame encodes and sends one frame, blocking until it has been
// handed to the transport or the Conn has been torn down. Because there is
// exactly one writer goroutine and callers block here, a slow transport
// naturally applies backpressure to whichever slot is waiting — it does
// not stall unrelated callers queued behind it beyond the backlog size.
func (c *Conn) WriteFrame(slot uint16, payload []byte) error {
	if len(payload) > wire.MaxPayload {
		return wire.ErrPayloadTooLarge
	}
	req := writeRequest{slot: slot, payload: payload, result: make(chan error, 1)}
	select {
	case c.writes <- req:
	case <-c.die:
		return c.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-c.die:
		return c.Err()
	}
}

func (c *Conn) writeLoop() {
	buf := make([]byte, 0, 4*wire.HeaderSize+4*wire.MaxPayload)
	for {
		select {
		case req := <-c.writes:
			var err error
			buf, err = wire.AppendEncode(buf[:0], req.slot, req.payload)
			if err == nil {
				_, err = c.rw.Write(buf)
			}
			req.result <- err
			if err != nil {
				c.fail(err)
				return
			}
		case <-c.die:
			return
		}
	}
}

// ReadFrame pulls the next complete frame off the transport, reading and
// decoding more bytes as needed. It is meant to be called in a loop from a
// single dedicated goroutine per Conn — the transport's one reader.
func (c *Conn) ReadFrame() (slot uint16, payload []byte, err error) {
	for {
		slot, payload, ok, err := c.dec.Next()
		if err != nil {
			c.fail(err)
			return 0, nil, err
		}
		if ok {
			return slot, payload, nil
		}

		chunk := make([]byte, 4096)
		n, readErr := c.rw.Read(chunk)
		if n > 0 {
			c.dec.Feed(chunk[:n])
		}
		if readErr != nil {
			c.fail(readErr)
			return 0, nil, readErr
		}
	}
}

// Close tears down the transport. Pending and future WriteFrame calls
// unblock with Err(); a ReadFrame blocked on the handle returns the error
// from reading the closed handle.
func (c *Conn) Close() error {
	c.fail(fmt.Errorf("tunnel: closed"))
	return c.rw.Close()
}

// Err returns the error that ended the transport, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
	c.once.Do(func() { close(c.die) })
}
