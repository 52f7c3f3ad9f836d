package wire

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// header-sized prefix so pointer offsets in tests resemble real messages
func pad(n int) []byte { return make([]byte, n) }

func TestDecodeNamePlain(t *testing.T) {
	msg := append(pad(12), []byte{
		0x03, 'f', 'o', 'o',
		0x03, 'c', 'o', 'm',
		0x00,
	}...)
	name, n, err := decodeName(msg, 12)
	require.NoError(t, err)
	assert.Equal(t, "foo.com", name)
	assert.Equal(t, 9, n)
}

func TestDecodeNameRoot(t *testing.T) {
	msg := append(pad(12), 0x00)
	name, n, err := decodeName(msg, 12)
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Equal(t, 1, n)
}

func TestDecodeNameCompressed(t *testing.T) {
	// RFC 1035 §4.1.4 style: a full name early in the message and a later
	// name that is a prefix plus a pointer into it.
	msg := append(pad(12), []byte{
		// offset 12: f.isi.arpa
		0x01, 'f',
		0x03, 'i', 's', 'i',
		0x04, 'a', 'r', 'p', 'a',
		0x00,
		// offset 24: foo + pointer to offset 12
		0x03, 'f', 'o', 'o',
		0xC0, 0x0C,
	}...)

	name, n, err := decodeName(msg, 24)
	require.NoError(t, err)
	assert.Equal(t, "foo.f.isi.arpa", name)
	assert.Equal(t, 6, n, "consumed bytes stop at the pointer")

	// the pointer target decodes identically to spelling the name out
	full, _, err := decodeName(msg, 12)
	require.NoError(t, err)
	assert.Equal(t, "f.isi.arpa", full)
}

func TestDecodeNameRejectsSelfPointer(t *testing.T) {
	msg := append(pad(12), 0xC0, 0x0C)
	_, _, err := decodeName(msg, 12)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestDecodeNameRejectsForwardPointer(t *testing.T) {
	msg := append(pad(12), []byte{
		0xC0, 0x10, // points to offset 16, ahead of itself
		0x00, 0x00,
		0x01, 'a', 0x00,
	}...)
	_, _, err := decodeName(msg, 12)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestDecodeNameRejectsExcessiveHops(t *testing.T) {
	// a real name at offset 12, then a chain of pointers each referring to
	// the previous one; strictly decreasing, so only the hop budget stops it
	msg := append(pad(12), 0x01, 'a', 0x00) // offsets 12..14
	prev := 12
	var start int
	for i := 0; i < maxPointerHops+2; i++ {
		start = len(msg)
		msg = binary.BigEndian.AppendUint16(msg, 0xC000|uint16(prev))
		prev = start
	}
	_, _, err := decodeName(msg, start)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestDecodeNameRejectsTooLong(t *testing.T) {
	msg := pad(12)
	for i := 0; i < 5; i++ { // 5 * 64 octets > 255
		msg = append(msg, 63)
		for j := 0; j < 63; j++ {
			msg = append(msg, 'x')
		}
	}
	msg = append(msg, 0x00)
	_, _, err := decodeName(msg, 12)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestDecodeNameTruncated(t *testing.T) {
	cases := map[string][]byte{
		"cut mid-label":   append(pad(12), 0x05, 'a', 'b'),
		"missing term":    append(pad(12), 0x03, 'f', 'o', 'o'),
		"pointer cut off": append(pad(12), 0xC0),
		"empty buffer":    pad(12),
	}
	for label, msg := range cases {
		_, _, err := decodeName(msg, 12)
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("%s: expected ErrTruncated, got %v", label, err)
		}
	}
}

func TestDecodeNameRejectsReservedLabelTypes(t *testing.T) {
	msg := append(pad(12), 0x40, 'a')
	_, _, err := decodeName(msg, 12)
	assert.ErrorIs(t, err, ErrInvalidPointer)
}

func TestAppendNameCompression(t *testing.T) {
	comp := newNameCompressor()
	buf, err := comp.appendName(nil, "www.example.com")
	require.NoError(t, err)
	first := len(buf)

	buf, err = comp.appendName(buf, "example.com")
	require.NoError(t, err)

	// the second name is a bare pointer into the first
	assert.Equal(t, first+2, len(buf))
	assert.Equal(t, byte(0xC0), buf[first]&0xC0)

	got, _, err := decodeName(buf, first)
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)
}

func TestSplitLabelsValidation(t *testing.T) {
	_, err := splitLabels("a..b")
	assert.Error(t, err)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err = splitLabels(string(long) + ".com")
	assert.ErrorIs(t, err, ErrNameTooLong)

	labels, err := splitLabels("example.com.")
	require.NoError(t, err)
	assert.Equal(t, []string{"example", "com"}, labels)
}
