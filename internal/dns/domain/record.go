package domain

import (
	"fmt"
	"sort"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
)

// ResourceRecord represents a single DNS resource record. TTL is the number
// of seconds the record may be cached; cache bookkeeping (absolute expiry)
// belongs to the cache layer, not the record itself.
type ResourceRecord struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  RData
}

// NewResourceRecord constructs a ResourceRecord and validates its fields.
// The owner name is canonicalized (lowercased, no trailing dot).
func NewResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data RData) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:  dnsutil.CanonicalName(name),
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Validate checks whether the ResourceRecord fields are valid.
func (rr ResourceRecord) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if !rr.Class.IsValid() {
		return fmt.Errorf("invalid RRClass: %d", rr.Class)
	}
	if rr.Data == nil {
		return fmt.Errorf("record data must not be nil")
	}
	if rr.Data.RType() != rr.Type {
		return fmt.Errorf("record type %s does not match data type %s", rr.Type, rr.Data.RType())
	}
	return nil
}

// Equal reports whether two records carry the same name, type, class, and
// payload. TTL is deliberately excluded: a cached record and a fresh one for
// the same answer differ only in their TTL snapshot.
func (rr ResourceRecord) Equal(other ResourceRecord) bool {
	return dnsutil.CanonicalName(rr.Name) == dnsutil.CanonicalName(other.Name) &&
		rr.Type == other.Type &&
		rr.Class == other.Class &&
		RDataEqual(rr.Data, other.Data)
}

// CacheKey returns a cache key string derived from the record's name, type, and class.
func (rr ResourceRecord) CacheKey() string {
	return GenerateCacheKey(rr.Name, rr.Type, rr.Class)
}

// GenerateCacheKey returns a consistent cache key derived from a DNS name,
// type, and class. The zone-aware format groups keys by apex for cheap
// per-zone operations. Format: "apex|name|type|class". Pipe separators avoid
// conflicts with colons in IPv6 presentation forms.
func GenerateCacheKey(name string, t RRType, c RRClass) string {
	name = dnsutil.CanonicalName(name)
	return dnsutil.ApexDomain(name) + "|" + name + "|" + t.String() + "|" + c.String()
}

// SortRecords orders a record set deterministically: by type, then by
// payload presentation form, then by owner name. Used when comparing cached
// and freshly resolved answer sets.
func SortRecords(rrs []ResourceRecord) {
	sort.SliceStable(rrs, func(i, j int) bool {
		if rrs[i].Type != rrs[j].Type {
			return rrs[i].Type < rrs[j].Type
		}
		di, dj := "", ""
		if rrs[i].Data != nil {
			di = rrs[i].Data.String()
		}
		if rrs[j].Data != nil {
			dj = rrs[j].Data.String()
		}
		if di != dj {
			return di < dj
		}
		return rrs[i].Name < rrs[j].Name
	})
}

// RecordSetsEqual reports whether two record sets contain the same records,
// ignoring order and TTL.
func RecordSetsEqual(a, b []ResourceRecord) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]ResourceRecord(nil), a...)
	bs := append([]ResourceRecord(nil), b...)
	SortRecords(as)
	SortRecords(bs)
	for i := range as {
		if !as[i].Equal(bs[i]) {
			return false
		}
	}
	return true
}
