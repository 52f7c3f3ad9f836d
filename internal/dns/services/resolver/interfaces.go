package resolver

import (
	"context"
	"net"
	"time"

	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// Blocklist answers whether a queried name is blocked by policy.
// Implementations are read-only after load and safe for concurrent use.
type Blocklist interface {
	IsBlocked(name string) bool
}

// Cache is a TTL-aware store of resolved record sets keyed by
// (name, type, class). Time is passed explicitly so expiry logic is
// deterministic under test.
type Cache interface {
	// Get returns the live records for the question, adjusting TTLs to the
	// time remaining. Expired entries are evicted lazily and reported as a miss.
	Get(q domain.Question, now time.Time) ([]domain.ResourceRecord, bool)

	// Put stores a record set sharing one (name, type, class) key, replacing
	// any prior entry wholesale. Zero-TTL sets are not stored.
	Put(records []domain.ResourceRecord, now time.Time) error
}

// ZoneStore provides read-only access to locally configured authoritative
// zone data.
type ZoneStore interface {
	// Find returns the records matching the question exactly.
	Find(q domain.Question) ([]domain.ResourceRecord, bool)

	// InZone reports whether name falls within a configured origin and
	// returns the longest matching origin.
	InZone(name string) (string, bool)

	// SOA returns the start-of-authority record for an origin, used for
	// negative answers.
	SOA(origin string) (domain.ResourceRecord, bool)
}

// UpstreamClient resolves a question recursively against upstream servers.
type UpstreamClient interface {
	Resolve(ctx context.Context, q domain.Question) (domain.Message, error)
}

// DNSResponder is implemented by the resolution engine and consumed by
// transports. The transport handles all network protocol details; the
// responder only sees domain objects.
type DNSResponder interface {
	HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) domain.Message
}
