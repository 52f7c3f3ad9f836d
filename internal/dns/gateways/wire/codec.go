// Package wire provides encoding and decoding of DNS messages in the
// RFC 1035 wire format, including name-compression pointer resolution on
// decode and suffix reuse on encode. Decoding tolerates fully adversarial
// input: every read advances a cursor bounded by the buffer length and
// pointer chains are bounded.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// Codec translates between raw packets and domain messages.
type Codec interface {
	DecodeMessage(data []byte) (domain.Message, error)
	EncodeMessage(msg domain.Message) ([]byte, error)

	// EncodeQuery builds and encodes a standard query message for the given
	// question, used when talking to upstream resolvers.
	EncodeQuery(id uint16, q domain.Question, recursionDesired bool) ([]byte, error)
}

type codec struct {
	logger log.Logger
}

// New returns a Codec. The logger is used for debug traces only.
func New(logger log.Logger) Codec {
	return &codec{logger: logger}
}

// PeekID extracts the transaction id from a raw packet without decoding it.
// Returns false when the packet is too short to carry one; such packets are
// dropped silently since no meaningful reply can be correlated.
func PeekID(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(data[0:2]), true
}

// DecodeMessage parses a complete DNS message: header, question section, and
// the answer, authority, and additional record sections.
func (c *codec) DecodeMessage(data []byte) (domain.Message, error) {
	if len(data) < 12 {
		return domain.Message{}, fmt.Errorf("%w: header requires 12 octets, got %d", ErrTruncated, len(data))
	}

	hdr := decodeHeader(data)
	msg := domain.Message{Header: hdr}
	offset := 12

	for i := 0; i < int(hdr.QDCount); i++ {
		q, n, err := c.decodeQuestion(data, offset)
		if err != nil {
			return domain.Message{}, fmt.Errorf("question %d: %w", i, err)
		}
		msg.Questions = append(msg.Questions, q)
		offset += n
	}

	var err error
	msg.Answers, offset, err = c.decodeSection(data, offset, int(hdr.ANCount), "answer")
	if err != nil {
		return domain.Message{}, err
	}
	msg.Authority, offset, err = c.decodeSection(data, offset, int(hdr.NSCount), "authority")
	if err != nil {
		return domain.Message{}, err
	}
	msg.Additional, _, err = c.decodeSection(data, offset, int(hdr.ARCount), "additional")
	if err != nil {
		return domain.Message{}, err
	}

	c.logger.Debug(map[string]any{
		"id":        hdr.ID,
		"questions": len(msg.Questions),
		"answers":   len(msg.Answers),
		"size":      len(data),
	}, "Decoded DNS message")
	return msg, nil
}

// decodeHeader unpacks the fixed 12-byte header.
func decodeHeader(data []byte) domain.Header {
	flags := binary.BigEndian.Uint16(data[2:4])
	return domain.Header{
		ID:                 binary.BigEndian.Uint16(data[0:2]),
		Response:           flags&0x8000 != 0,
		Opcode:             domain.Opcode(flags >> 11 & 0x0F),
		Authoritative:      flags&0x0400 != 0,
		Truncated:          flags&0x0200 != 0,
		RecursionDesired:   flags&0x0100 != 0,
		RecursionAvailable: flags&0x0080 != 0,
		Zero:               uint8(flags >> 4 & 0x07),
		RCode:              domain.RCode(flags & 0x000F),
		QDCount:            binary.BigEndian.Uint16(data[4:6]),
		ANCount:            binary.BigEndian.Uint16(data[6:8]),
		NSCount:            binary.BigEndian.Uint16(data[8:10]),
		ARCount:            binary.BigEndian.Uint16(data[10:12]),
	}
}

// encodeHeader packs a header into the first 12 bytes of dst.
func encodeHeader(dst []byte, h domain.Header) []byte {
	dst = binary.BigEndian.AppendUint16(dst, h.ID)
	var flags uint16
	if h.Response {
		flags |= 0x8000
	}
	flags |= uint16(h.Opcode&0x0F) << 11
	if h.Authoritative {
		flags |= 0x0400
	}
	if h.Truncated {
		flags |= 0x0200
	}
	if h.RecursionDesired {
		flags |= 0x0100
	}
	if h.RecursionAvailable {
		flags |= 0x0080
	}
	flags |= uint16(h.Zero&0x07) << 4
	flags |= uint16(h.RCode) & 0x000F
	dst = binary.BigEndian.AppendUint16(dst, flags)
	dst = binary.BigEndian.AppendUint16(dst, h.QDCount)
	dst = binary.BigEndian.AppendUint16(dst, h.ANCount)
	dst = binary.BigEndian.AppendUint16(dst, h.NSCount)
	return binary.BigEndian.AppendUint16(dst, h.ARCount)
}

// decodeQuestion parses one question entry at offset, returning it and the
// number of bytes consumed.
func (c *codec) decodeQuestion(data []byte, offset int) (domain.Question, int, error) {
	if offset >= len(data) {
		return domain.Question{}, 0, fmt.Errorf("%w: fewer questions than QDCOUNT", ErrCountMismatch)
	}
	name, n, err := decodeName(data, offset)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if offset+n+4 > len(data) {
		return domain.Question{}, 0, fmt.Errorf("%w: question type/class cut short", ErrTruncated)
	}
	q := domain.Question{
		Name:  name,
		Type:  domain.RRType(binary.BigEndian.Uint16(data[offset+n : offset+n+2])),
		Class: domain.RRClass(binary.BigEndian.Uint16(data[offset+n+2 : offset+n+4])),
	}
	return q, n + 4, nil
}

// decodeSection parses count resource records starting at offset.
func (c *codec) decodeSection(data []byte, offset, count int, section string) ([]domain.ResourceRecord, int, error) {
	var records []domain.ResourceRecord
	for i := 0; i < count; i++ {
		if offset >= len(data) {
			return nil, 0, fmt.Errorf("%w: %s section declares %d records, parsed %d", ErrCountMismatch, section, count, i)
		}
		rr, n, err := c.decodeRecord(data, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("%s record %d: %w", section, i, err)
		}
		records = append(records, rr)
		offset += n
	}
	return records, offset, nil
}

// decodeRecord parses a single resource record at offset.
func (c *codec) decodeRecord(data []byte, offset int) (domain.ResourceRecord, int, error) {
	name, n, err := decodeName(data, offset)
	if err != nil {
		return domain.ResourceRecord{}, 0, err
	}
	fixed := offset + n
	if fixed+10 > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("%w: record fixed fields cut short", ErrTruncated)
	}

	rrtype := domain.RRType(binary.BigEndian.Uint16(data[fixed : fixed+2]))
	class := domain.RRClass(binary.BigEndian.Uint16(data[fixed+2 : fixed+4]))
	ttl := binary.BigEndian.Uint32(data[fixed+4 : fixed+8])
	rdLen := int(binary.BigEndian.Uint16(data[fixed+8 : fixed+10]))

	// RFC 2181 §8: a TTL with the high bit set is treated as zero.
	if ttl&0x80000000 != 0 {
		ttl = 0
	}

	rdStart := fixed + 10
	if rdStart+rdLen > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("%w: RDATA cut short", ErrTruncated)
	}
	rdata, err := parseRData(rrtype, data, rdStart, rdLen)
	if err != nil {
		return domain.ResourceRecord{}, 0, err
	}

	rr := domain.ResourceRecord{
		Name:  name,
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		Data:  rdata,
	}
	return rr, n + 10 + rdLen, nil
}

// EncodeMessage serializes a message. Header counts are synchronized with the
// actual section lengths, so the output is always self-consistent. Owner
// names are compressed by suffix reuse; names inside RDATA are not.
func (c *codec) EncodeMessage(msg domain.Message) ([]byte, error) {
	msg.SyncCounts()

	buf := encodeHeader(make([]byte, 0, 512), msg.Header)
	comp := newNameCompressor()

	var err error
	for _, q := range msg.Questions {
		buf, err = comp.appendName(buf, q.Name)
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(q.Type))
		buf = binary.BigEndian.AppendUint16(buf, uint16(q.Class))
	}

	for _, section := range [][]domain.ResourceRecord{msg.Answers, msg.Authority, msg.Additional} {
		for _, rr := range section {
			buf, err = c.appendRecord(buf, comp, rr)
			if err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}

// appendRecord appends one resource record in wire format.
func (c *codec) appendRecord(buf []byte, comp *nameCompressor, rr domain.ResourceRecord) ([]byte, error) {
	buf, err := comp.appendName(buf, rr.Name)
	if err != nil {
		return nil, err
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(rr.Type))
	buf = binary.BigEndian.AppendUint16(buf, uint16(rr.Class))
	buf = binary.BigEndian.AppendUint32(buf, rr.TTL)

	rdata, err := encodeRData(rr.Data)
	if err != nil {
		return nil, err
	}
	if len(rdata) > 0xFFFF {
		return nil, fmt.Errorf("RDATA too large: %d octets", len(rdata))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(rdata)))
	return append(buf, rdata...), nil
}

// EncodeQuery builds and encodes a standard query with a single question.
func (c *codec) EncodeQuery(id uint16, q domain.Question, recursionDesired bool) ([]byte, error) {
	msg := domain.Message{
		Header: domain.Header{
			ID:               id,
			Opcode:           domain.OpcodeQuery,
			RecursionDesired: recursionDesired,
		},
		Questions: []domain.Question{q},
	}
	return c.EncodeMessage(msg)
}

var _ Codec = (*codec)(nil)
