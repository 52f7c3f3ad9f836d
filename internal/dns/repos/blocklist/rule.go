// Package blocklist implements name-based query blocking: a plain-text rule
// parser, an in-memory filter with a Bloom prescreen, and a bbolt-backed
// compiled index for fast startup on large lists.
package blocklist

import (
	"fmt"
	"strings"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
)

// RuleKind distinguishes exact-name rules from wildcard rules.
type RuleKind uint8

const (
	// RuleExact blocks exactly one name.
	RuleExact RuleKind = iota
	// RuleWildcard blocks every name strictly below the anchor. The anchor
	// itself is not blocked: "*.example.com" blocks "www.example.com" but
	// not "example.com".
	RuleWildcard
)

func (k RuleKind) String() string {
	if k == RuleWildcard {
		return "wildcard"
	}
	return "exact"
}

// Rule is a single blocklist entry. Name is canonical (lowercase, no
// trailing dot); for wildcard rules it is the anchor without the "*." marker.
type Rule struct {
	Name string
	Kind RuleKind
}

// ParseRule interprets one blocklist token. A leading "*." marks a wildcard
// rule; an asterisk anywhere else is invalid, as is a second "*." inside the
// token.
func ParseRule(token string) (Rule, error) {
	kind := RuleExact
	name := token
	if strings.HasPrefix(name, "*.") {
		kind = RuleWildcard
		name = name[2:]
	}
	if strings.ContainsRune(name, '*') {
		return Rule{}, fmt.Errorf("invalid wildcard placement in %q", token)
	}
	name = dnsutil.CanonicalName(name)
	if name == "" {
		return Rule{}, fmt.Errorf("empty domain in %q", token)
	}
	return Rule{Name: name, Kind: kind}, nil
}
