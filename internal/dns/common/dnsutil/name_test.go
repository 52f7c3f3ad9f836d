package dnsutil

import (
	"reflect"
	"testing"
)

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{"example.com.", "example.com"},
		{"  example.com  ", "example.com"},
		{"example.com...", "example.com"},
		{"", ""},
		{".", ""},
	}
	for _, c := range cases {
		if got := CanonicalName(c.in); got != c.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestApexDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"www.example.com", "example.com"},
		{"a.b.example.co.uk", "example.co.uk"},
		{"example.com.", "example.com"},
		// private origin, no public suffix: falls back to the name itself
		{"customdomain.customtld", "customdomain.customtld"},
	}
	for _, c := range cases {
		if got := ApexDomain(c.in); got != c.want {
			t.Errorf("ApexDomain(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParentNames(t *testing.T) {
	got := ParentNames("a.b.example.com")
	want := []string{"b.example.com", "example.com", "com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParentNames = %v, want %v", got, want)
	}

	if ps := ParentNames("com"); ps != nil {
		t.Errorf("expected no parents for a bare label, got %v", ps)
	}
}
