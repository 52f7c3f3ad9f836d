// Package zonestore holds loaded authoritative zone data in memory and
// answers exact-match lookups for the resolver. Zones are replaced
// wholesale; reads take a shared lock and are safe for concurrent use.
package zonestore

import (
	"sync"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/repos/zone"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

type zoneData struct {
	soa     domain.ResourceRecord
	records map[string][]domain.ResourceRecord // cache key -> record set
}

// ZoneStore indexes zones by origin and records by (name, type, class) key.
type ZoneStore struct {
	mu    sync.RWMutex
	zones map[string]zoneData
}

// New returns an empty store.
func New() *ZoneStore {
	return &ZoneStore{zones: make(map[string]zoneData)}
}

// PutZone installs a loaded zone, replacing any prior data for its origin.
func (zs *ZoneStore) PutZone(z zone.Zone) {
	data := zoneData{
		soa:     z.SOA,
		records: make(map[string][]domain.ResourceRecord),
	}
	for _, rr := range z.Records {
		key := rr.CacheKey()
		data.records[key] = append(data.records[key], rr)
	}

	zs.mu.Lock()
	zs.zones[dnsutil.CanonicalName(z.Origin)] = data
	zs.mu.Unlock()
}

// Find returns the records matching the question exactly. ANY queries match
// every record set owned by the name.
func (zs *ZoneStore) Find(q domain.Question) ([]domain.ResourceRecord, bool) {
	zs.mu.RLock()
	defer zs.mu.RUnlock()

	name := dnsutil.CanonicalName(q.Name)
	origin, ok := zs.inZoneLocked(name)
	if !ok {
		return nil, false
	}
	z := zs.zones[origin]

	if q.Type == domain.RRTypeANY {
		var all []domain.ResourceRecord
		for _, set := range z.records {
			for _, rr := range set {
				if rr.Name == name && rr.Class == q.Class {
					all = append(all, rr)
				}
			}
		}
		return all, len(all) > 0
	}

	records, found := z.records[q.CacheKey()]
	if !found {
		return nil, false
	}
	out := make([]domain.ResourceRecord, len(records))
	copy(out, records)
	return out, true
}

// InZone reports whether name belongs to a configured zone, returning the
// longest matching origin.
func (zs *ZoneStore) InZone(name string) (string, bool) {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	return zs.inZoneLocked(dnsutil.CanonicalName(name))
}

func (zs *ZoneStore) inZoneLocked(name string) (string, bool) {
	if _, ok := zs.zones[name]; ok {
		return name, true
	}
	for _, parent := range dnsutil.ParentNames(name) {
		if _, ok := zs.zones[parent]; ok {
			return parent, true
		}
	}
	return "", false
}

// SOA returns the start-of-authority record for an origin.
func (zs *ZoneStore) SOA(origin string) (domain.ResourceRecord, bool) {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	z, ok := zs.zones[dnsutil.CanonicalName(origin)]
	if !ok {
		return domain.ResourceRecord{}, false
	}
	return z.soa, true
}

// Origins lists every configured zone origin.
func (zs *ZoneStore) Origins() []string {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	origins := make([]string, 0, len(zs.zones))
	for origin := range zs.zones {
		origins = append(origins, origin)
	}
	return origins
}

// Count returns the total number of record sets across all zones.
func (zs *ZoneStore) Count() int {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	n := 0
	for _, z := range zs.zones {
		n += len(z.records)
	}
	return n
}

var _ resolver.ZoneStore = (*ZoneStore)(nil)
