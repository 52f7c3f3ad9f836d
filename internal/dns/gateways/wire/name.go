package wire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// maxNameLength bounds the encoded form of a name, including length
	// octets and the zero terminator (RFC 1035 §2.3.4).
	maxNameLength = 255

	// maxLabelLength bounds a single label.
	maxLabelLength = 63

	// maxPointerHops bounds compression pointer chains. The strictly-lower
	// offset rule already guarantees termination; the hop budget keeps
	// adversarial chains cheap.
	maxPointerHops = 32
)

// decodeName reads a domain name from msg starting at off, following
// compression pointers. It returns the presentation form (lowercase not
// applied, no trailing dot) and the number of bytes the name occupies at the
// original offset. Pointer targets must refer to a strictly lower offset than
// the pointer itself, otherwise decoding fails with ErrInvalidPointer.
func decodeName(msg []byte, off int) (string, int, error) {
	var labels []string
	consumed := 0
	encLen := 0 // running size of the uncompressed encoded form
	hops := 0
	pos := off
	jumped := false

	for {
		if pos >= len(msg) {
			return "", 0, fmt.Errorf("%w: name runs past end of message", ErrTruncated)
		}
		b := msg[pos]
		switch {
		case b == 0x00:
			if !jumped {
				consumed = pos + 1 - off
			}
			encLen++
			if encLen > maxNameLength {
				return "", 0, ErrNameTooLong
			}
			return strings.Join(labels, "."), consumed, nil

		case b&0xC0 == 0xC0:
			if pos+1 >= len(msg) {
				return "", 0, fmt.Errorf("%w: pointer cut short", ErrTruncated)
			}
			target := int(binary.BigEndian.Uint16(msg[pos:pos+2]) & 0x3FFF)
			if target >= pos {
				return "", 0, fmt.Errorf("%w: target %d does not precede pointer at %d", ErrInvalidPointer, target, pos)
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, fmt.Errorf("%w: more than %d hops", ErrInvalidPointer, maxPointerHops)
			}
			if !jumped {
				consumed = pos + 2 - off
				jumped = true
			}
			pos = target

		case b&0xC0 != 0:
			// 0x40 and 0x80 label types are reserved
			return "", 0, fmt.Errorf("%w: reserved label type 0x%02x", ErrInvalidPointer, b&0xC0)

		default:
			length := int(b)
			if pos+1+length > len(msg) {
				return "", 0, fmt.Errorf("%w: label runs past end of message", ErrTruncated)
			}
			encLen += 1 + length
			if encLen+1 > maxNameLength {
				return "", 0, ErrNameTooLong
			}
			labels = append(labels, string(msg[pos+1:pos+1+length]))
			pos += 1 + length
		}
	}
}

// nameCompressor tracks the offsets of name suffixes already written to a
// message so later owner names can be emitted as compression pointers.
type nameCompressor struct {
	offsets map[string]int
}

func newNameCompressor() *nameCompressor {
	return &nameCompressor{offsets: make(map[string]int)}
}

// appendName appends name in wire format to dst, reusing any previously
// written suffix via a compression pointer. Suffix offsets beyond the 14-bit
// pointer range are simply not reused.
func (c *nameCompressor) appendName(dst []byte, name string) ([]byte, error) {
	labels, err := splitLabels(name)
	if err != nil {
		return nil, err
	}
	for i := range labels {
		suffix := strings.ToLower(strings.Join(labels[i:], "."))
		if off, ok := c.offsets[suffix]; ok {
			return append(dst, 0xC0|byte(off>>8), byte(off)), nil
		}
		if here := len(dst); here <= 0x3FFF {
			c.offsets[suffix] = here
		}
		dst = append(dst, byte(len(labels[i])))
		dst = append(dst, labels[i]...)
	}
	return append(dst, 0x00), nil
}

// appendNameUncompressed appends name in plain wire format (length-prefixed
// labels with a zero terminator). Used inside RDATA, where this encoder never
// emits pointers.
func appendNameUncompressed(dst []byte, name string) ([]byte, error) {
	labels, err := splitLabels(name)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		dst = append(dst, byte(len(label)))
		dst = append(dst, label...)
	}
	return append(dst, 0x00), nil
}

// splitLabels splits a presentation-form name into labels, validating label
// and total name length. The root name ("" or ".") yields no labels.
func splitLabels(name string) ([]string, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return nil, nil
	}
	labels := strings.Split(name, ".")
	encLen := 1 // terminator
	for _, label := range labels {
		if len(label) == 0 {
			return nil, fmt.Errorf("empty label in name %q", name)
		}
		if len(label) > maxLabelLength {
			return nil, fmt.Errorf("%w: label %q exceeds %d octets", ErrNameTooLong, label, maxLabelLength)
		}
		encLen += 1 + len(label)
	}
	if encLen > maxNameLength {
		return nil, ErrNameTooLong
	}
	return labels, nil
}
