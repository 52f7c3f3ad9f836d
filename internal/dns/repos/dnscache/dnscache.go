// Package dnscache provides an in-memory TTL-aware cache for resolved DNS
// record sets, backed by an LRU store. Time is passed explicitly on every
// operation so expiry behavior is deterministic and testable.
package dnscache

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

var (
	ErrMultipleKeys = errors.New("multiple records with different keys provided")
)

// cachedRecord pins a record to its absolute expiry. The record's own TTL is
// a duration; the instant it was stored only matters here.
type cachedRecord struct {
	record    domain.ResourceRecord
	expiresAt time.Time
}

func (cr cachedRecord) expired(now time.Time) bool {
	return !cr.expiresAt.After(now)
}

// dnsCache stores record sets keyed by (name, type, class). Each key maps to
// the complete answer set for that question; storing a new set replaces the
// old one wholesale. Expired entries are evicted lazily on access.
type dnsCache struct {
	lru *lru.Cache[string, []cachedRecord]
}

// New returns a cache bounded to size entries, evicting least recently used
// keys beyond that.
func New(size int) (*dnsCache, error) {
	cache, err := lru.New[string, []cachedRecord](size)
	if err != nil {
		return nil, err
	}
	return &dnsCache{lru: cache}, nil
}

// Put stores a record set, replacing any existing entry for the same key.
// All records must share one (name, type, class) key. Records with a zero
// TTL are not cached; a set containing only zero-TTL records leaves the
// cache untouched except for clearing any stale entry under the key.
func (c *dnsCache) Put(records []domain.ResourceRecord, now time.Time) error {
	if len(records) == 0 {
		return nil
	}
	key := records[0].CacheKey()
	for _, record := range records {
		if record.CacheKey() != key {
			return ErrMultipleKeys
		}
	}

	entry := make([]cachedRecord, 0, len(records))
	for _, record := range records {
		if record.TTL == 0 {
			continue
		}
		entry = append(entry, cachedRecord{
			record:    record,
			expiresAt: now.Add(time.Duration(record.TTL) * time.Second),
		})
	}
	if len(entry) == 0 {
		c.lru.Remove(key)
		return nil
	}
	c.lru.Add(key, entry)
	return nil
}

// Get returns the live records for the question with TTLs rewritten to the
// whole seconds remaining at now. Records past their expiry are dropped; if
// none remain the key is removed and Get reports a miss.
func (c *dnsCache) Get(q domain.Question, now time.Time) ([]domain.ResourceRecord, bool) {
	key := q.CacheKey()
	entry, found := c.lru.Get(key)
	if !found {
		return nil, false
	}

	var live []cachedRecord
	var out []domain.ResourceRecord
	for _, cr := range entry {
		if cr.expired(now) {
			continue
		}
		live = append(live, cr)
		rr := cr.record
		rr.TTL = uint32(cr.expiresAt.Sub(now) / time.Second)
		out = append(out, rr)
	}

	if len(live) == 0 {
		c.lru.Remove(key)
		return nil, false
	}
	if len(live) < len(entry) {
		c.lru.Add(key, live)
	}
	return out, true
}

// Delete removes the entry for the given key.
func (c *dnsCache) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of keys currently stored. Each key may hold several
// resource records.
func (c *dnsCache) Len() int {
	return c.lru.Len()
}

// Keys returns all current cache keys.
func (c *dnsCache) Keys() []string {
	return c.lru.Keys()
}

var _ resolver.Cache = (*dnsCache)(nil)
