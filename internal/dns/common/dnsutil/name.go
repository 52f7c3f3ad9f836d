// Package dnsutil holds small domain-name helpers shared across layers.
package dnsutil

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot
// Case-insensitive comparison throughout the resolver is done by comparing
// canonical forms.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// ApexDomain returns the effective TLD plus one label for a name
// (e.g. "www.example.co.uk" -> "example.co.uk"). Used to shard cache keys.
func ApexDomain(name string) string {
	name = CanonicalName(name)
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		apex = name // names under private origins have no public suffix
	}
	return apex
}

// ParentNames yields every proper ancestor of name, nearest first.
// "a.b.example.com" -> ["b.example.com", "example.com", "com"].
// The name itself is not included.
func ParentNames(name string) []string {
	name = CanonicalName(name)
	var parents []string
	for {
		i := strings.IndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[i+1:]
		if name == "" {
			break
		}
		parents = append(parents, name)
	}
	return parents
}
