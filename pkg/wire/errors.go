package wire

import "errors"

// ErrPayloadTooLarge is returned by Encode when a payload exceeds MaxPayload.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")

// FramingError reports a malformed frame on the transport: a payload length
// or slot id outside the bounds the decoder was configured with. The
// transport is unusable once this is returned; there is no resynchronisation
// primitive.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return "wire: framing error: " + e.Reason }

func framingErr(reason string) error {
	return &FramingError{Reason: reason}
}
