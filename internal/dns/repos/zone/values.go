package zone

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// parseValue converts a zone file value string into typed record data.
// Only the record types the resolver models natively may appear in zone
// files; anything else is a load error rather than an opaque blob, since an
// operator typo should fail loudly at startup.
func parseValue(rrtype domain.RRType, value string) (domain.RData, error) {
	switch rrtype {
	case domain.RRTypeA:
		d, err := domain.NewAData(value)
		if err != nil {
			return nil, err
		}
		return d, nil

	case domain.RRTypeAAAA:
		d, err := domain.NewAAAAData(value)
		if err != nil {
			return nil, err
		}
		return d, nil

	case domain.RRTypeCNAME:
		return domain.CNAMEData{Target: dnsutil.CanonicalName(value)}, nil

	case domain.RRTypeMX:
		// "10 mail.example.com"
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid MX record (expected: preference exchange): %q", value)
		}
		pref, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid MX preference %q: %w", parts[0], err)
		}
		return domain.MXData{
			Preference: uint16(pref),
			Exchange:   dnsutil.CanonicalName(parts[1]),
		}, nil

	case domain.RRTypeSOA:
		// "mname rname serial refresh retry expire minimum"
		parts := strings.Fields(value)
		if len(parts) != 7 {
			return nil, fmt.Errorf("invalid SOA record (expected 7 fields): %q", value)
		}
		var nums [5]uint32
		for i := range nums {
			v, err := strconv.ParseUint(parts[i+2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid SOA field %q: %w", parts[i+2], err)
			}
			nums[i] = uint32(v)
		}
		return domain.SOAData{
			MName:   dnsutil.CanonicalName(parts[0]),
			RName:   dnsutil.CanonicalName(parts[1]),
			Serial:  nums[0],
			Refresh: nums[1],
			Retry:   nums[2],
			Expire:  nums[3],
			Minimum: nums[4],
		}, nil

	default:
		return nil, fmt.Errorf("record type %s not supported in zone files", rrtype)
	}
}
