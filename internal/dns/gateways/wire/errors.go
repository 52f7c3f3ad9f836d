package wire

import "errors"

// Codec error taxonomy. These are always local: callers convert them to a
// response code (FORMERR) or drop the packet, never propagate them on the wire.
var (
	// ErrTruncated indicates a field or section element could not be fully read.
	ErrTruncated = errors.New("message truncated")

	// ErrInvalidPointer indicates a compression pointer that is out of bounds,
	// refers forward or to itself, or chains through too many hops.
	ErrInvalidPointer = errors.New("invalid compression pointer")

	// ErrNameTooLong indicates a decoded or encoded name exceeding 255 octets,
	// or a single label exceeding 63 octets.
	ErrNameTooLong = errors.New("name too long")

	// ErrCountMismatch indicates the header counts and the number of actually
	// parsed section entries diverge.
	ErrCountMismatch = errors.New("section count mismatch")
)
