package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// parseRData decodes the type-specific payload of a resource record.
// msg is the full message buffer so names inside RDATA can follow
// compression pointers; the payload occupies msg[start : start+length].
func parseRData(rrtype domain.RRType, msg []byte, start, length int) (domain.RData, error) {
	switch rrtype {
	case domain.RRTypeA:
		if length != 4 {
			return nil, fmt.Errorf("%w: A RDLENGTH %d, want 4", ErrTruncated, length)
		}
		var d domain.AData
		copy(d.Addr[:], msg[start:start+4])
		return d, nil

	case domain.RRTypeAAAA:
		if length != 16 {
			return nil, fmt.Errorf("%w: AAAA RDLENGTH %d, want 16", ErrTruncated, length)
		}
		var d domain.AAAAData
		copy(d.Addr[:], msg[start:start+16])
		return d, nil

	case domain.RRTypeCNAME:
		target, n, err := decodeName(msg, start)
		if err != nil {
			return nil, fmt.Errorf("CNAME target: %w", err)
		}
		if n > length {
			return nil, fmt.Errorf("%w: CNAME target overruns RDLENGTH", ErrTruncated)
		}
		return domain.CNAMEData{Target: target}, nil

	case domain.RRTypeMX:
		if length < 3 {
			return nil, fmt.Errorf("%w: MX RDLENGTH %d", ErrTruncated, length)
		}
		pref := binary.BigEndian.Uint16(msg[start : start+2])
		exchange, n, err := decodeName(msg, start+2)
		if err != nil {
			return nil, fmt.Errorf("MX exchange: %w", err)
		}
		if 2+n > length {
			return nil, fmt.Errorf("%w: MX exchange overruns RDLENGTH", ErrTruncated)
		}
		return domain.MXData{Preference: pref, Exchange: exchange}, nil

	case domain.RRTypeSOA:
		off := start
		mname, n, err := decodeName(msg, off)
		if err != nil {
			return nil, fmt.Errorf("SOA mname: %w", err)
		}
		off += n
		rname, n, err := decodeName(msg, off)
		if err != nil {
			return nil, fmt.Errorf("SOA rname: %w", err)
		}
		off += n
		if off+20 > start+length {
			return nil, fmt.Errorf("%w: SOA missing integer fields", ErrTruncated)
		}
		return domain.SOAData{
			MName:   mname,
			RName:   rname,
			Serial:  binary.BigEndian.Uint32(msg[off : off+4]),
			Refresh: binary.BigEndian.Uint32(msg[off+4 : off+8]),
			Retry:   binary.BigEndian.Uint32(msg[off+8 : off+12]),
			Expire:  binary.BigEndian.Uint32(msg[off+12 : off+16]),
			Minimum: binary.BigEndian.Uint32(msg[off+16 : off+20]),
		}, nil

	default:
		raw := make([]byte, length)
		copy(raw, msg[start:start+length])
		return domain.UnknownData{Code: rrtype, Raw: raw}, nil
	}
}

// encodeRData serializes a payload into plain RDATA bytes. Names inside
// RDATA are written uncompressed.
func encodeRData(data domain.RData) ([]byte, error) {
	switch d := data.(type) {
	case domain.AData:
		return d.Addr[:], nil

	case domain.AAAAData:
		return d.Addr[:], nil

	case domain.CNAMEData:
		return appendNameUncompressed(nil, d.Target)

	case domain.MXData:
		out := binary.BigEndian.AppendUint16(nil, d.Preference)
		return appendNameUncompressed(out, d.Exchange)

	case domain.SOAData:
		out, err := appendNameUncompressed(nil, d.MName)
		if err != nil {
			return nil, err
		}
		out, err = appendNameUncompressed(out, d.RName)
		if err != nil {
			return nil, err
		}
		out = binary.BigEndian.AppendUint32(out, d.Serial)
		out = binary.BigEndian.AppendUint32(out, d.Refresh)
		out = binary.BigEndian.AppendUint32(out, d.Retry)
		out = binary.BigEndian.AppendUint32(out, d.Expire)
		out = binary.BigEndian.AppendUint32(out, d.Minimum)
		return out, nil

	case domain.UnknownData:
		return d.Raw, nil

	default:
		return nil, fmt.Errorf("unsupported RData type %T", data)
	}
}
