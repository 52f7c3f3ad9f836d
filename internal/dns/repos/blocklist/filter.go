package blocklist

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

// defaultFalsePositiveRate sizes the Bloom prescreen. A false positive only
// costs a map lookup, so the rate can be generous.
const defaultFalsePositiveRate = 0.01

// Filter answers blocked/allowed for query names. It is immutable after
// construction and safe for concurrent use. A Bloom filter over all rule
// names lets the common case, an unlisted name, return after a few hashes
// without touching the rule maps.
type Filter struct {
	exact    map[string]struct{}
	wildcard map[string]struct{}
	bloom    *bitsbloom.BloomFilter
	logger   log.Logger
}

// NewFilter builds a Filter from parsed rules.
func NewFilter(rules []Rule, logger log.Logger) *Filter {
	f := &Filter{
		exact:    make(map[string]struct{}),
		wildcard: make(map[string]struct{}),
		bloom:    bitsbloom.NewWithEstimates(uint(max(len(rules), 1)), defaultFalsePositiveRate),
		logger:   logger,
	}
	for _, rule := range rules {
		switch rule.Kind {
		case RuleWildcard:
			f.wildcard[rule.Name] = struct{}{}
		default:
			f.exact[rule.Name] = struct{}{}
		}
		f.bloom.AddString(rule.Name)
	}
	logger.Info(map[string]any{
		"exact":    len(f.exact),
		"wildcard": len(f.wildcard),
	}, "Blocklist filter loaded")
	return f
}

// IsBlocked reports whether name matches an exact rule or falls strictly
// below a wildcard anchor. Matching is case-insensitive; a wildcard never
// matches its own anchor.
func (f *Filter) IsBlocked(name string) bool {
	cn := dnsutil.CanonicalName(name)
	if cn == "" {
		return false
	}

	if f.bloom.TestString(cn) {
		if _, ok := f.exact[cn]; ok {
			return true
		}
	}
	for _, parent := range dnsutil.ParentNames(cn) {
		if !f.bloom.TestString(parent) {
			continue
		}
		if _, ok := f.wildcard[parent]; ok {
			return true
		}
	}
	return false
}

// Len returns the total number of rules loaded.
func (f *Filter) Len() int {
	return len(f.exact) + len(f.wildcard)
}

var _ resolver.Blocklist = (*Filter)(nil)
