// Package wire implements the transport framing codec shared by the guest
// and host peers: a length-prefixed, slot-tagged record format carried over
// a single bidirectional byte stream.
//
// Wire format: a 4-byte header followed by payload.
//
//	slot   uint16 little-endian  logical stream id
//	length uint16 little-endian  payload byte count, 0 <= length <= MaxPayload
//	payload length raw bytes
//
// A frame with length 0 is reserved for control: it signals half-close on
// the named slot (see package slot). Headers are never split across writes
// on the encode side; the Decoder tolerates arbitrary fragmentation of the
// stream on the read side.
package wire

import "encoding/binary"

const (
	// HeaderSize is the number of bytes in a frame header.
	HeaderSize = 4
	// MaxPayload is the largest payload a single frame may carry.
	MaxPayload = 4096
)

// Encode produces the wire representation of a single frame. It never
// fragments a frame across multiple return values; the caller performs one
// write with the result.
func Encode(slot uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], slot)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// AppendEncode is like Encode but appends the frame to dst, reusing its
// backing array when there is room. It exists so a single writer goroutine
// can avoid reallocating a header buffer on every relayed chunk.
func AppendEncode(dst []byte, slot uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return dst, ErrPayloadTooLarge
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], slot)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(payload)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return dst, nil
}

// Decoder is a pull-style frame reassembler fed with chunks of bytes as
// they arrive off the transport. It exposes two observable states via
// Next: "need more bytes" (ok == false, err == nil) and "frame ready"
// (ok == true). Multiple complete frames delivered in one Feed call yield
// multiple successive Next results before ok goes false again.
//
// A Decoder is not safe for concurrent use; the transport has exactly one
// reader by design (see the top-level spec's event-loop invariants).
type Decoder struct {
	maxSlot uint16 // exclusive upper bound on valid slot ids
	buf     []byte
	off     int
}

// NewDecoder returns a Decoder that rejects frames addressed to a slot id
// >= maxSlot as a framing error, per the "frames with id >= capacity are a
// protocol violation" rule.
func NewDecoder(maxSlot uint16) *Decoder {
	return &Decoder{maxSlot: maxSlot}
}

// Feed appends newly read bytes to the decoder's internal buffer.
func (d *Decoder) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	d.buf = append(d.buf, chunk...)
}

// Next attempts to pull one complete frame out of the buffered bytes. It
// returns ok == false, err == nil when more bytes are needed. A non-nil err
// is a FramingError and the transport must be torn down; no further calls
// to Next are meaningful afterwards.
func (d *Decoder) Next() (slot uint16, payload []byte, ok bool, err error) {
	remaining := d.buf[d.off:]
	if len(remaining) < HeaderSize {
		d.compact()
		return 0, nil, false, nil
	}

	length := binary.LittleEndian.Uint16(remaining[2:4])
	if length > MaxPayload {
		return 0, nil, false, framingErr("payload length exceeds maximum frame size")
	}

	frameLen := HeaderSize + int(length)
	if len(remaining) < frameLen {
		return 0, nil, false, nil
	}

	s := binary.LittleEndian.Uint16(remaining[0:2])
	if s >= d.maxSlot {
		return 0, nil, false, framingErr("slot id out of range")
	}

	payload = append([]byte(nil), remaining[HeaderSize:frameLen]...)
	d.off += frameLen
	if d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	}
	return s, payload, true, nil
}

// compact drops already-consumed bytes once the unread remainder gets
// small, so a decoder fed one byte at a time does not grow its buffer
// without bound.
func (d *Decoder) compact() {
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}
