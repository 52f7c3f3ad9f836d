package domain

import (
	"bytes"
	"fmt"
	"net"
)

// RData is the type-specific payload of a resource record. It is a closed
// variant: the supported concrete types are AData, AAAAData, CNAMEData,
// MXData, SOAData, and UnknownData for everything else. Wire (de)serialization
// lives in the wire codec; these types are pure values.
type RData interface {
	// RType returns the record type this payload belongs to.
	RType() RRType
	// String returns the zone-file presentation form, also used as a
	// deterministic ordering key for record sets.
	String() string
}

// AData is an IPv4 address payload.
type AData struct {
	Addr [4]byte
}

func (d AData) RType() RRType { return RRTypeA }

func (d AData) String() string {
	return net.IP(d.Addr[:]).String()
}

// NewAData parses a dotted-quad IPv4 address into an AData payload.
func NewAData(s string) (AData, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return AData{}, fmt.Errorf("invalid A record address: %q", s)
	}
	var d AData
	copy(d.Addr[:], ip.To4())
	return d, nil
}

// AAAAData is an IPv6 address payload, treated as an opaque 16-byte address.
type AAAAData struct {
	Addr [16]byte
}

func (d AAAAData) RType() RRType { return RRTypeAAAA }

func (d AAAAData) String() string {
	return net.IP(d.Addr[:]).String()
}

// NewAAAAData parses an IPv6 address string into an AAAAData payload.
func NewAAAAData(s string) (AAAAData, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To16() == nil || ip.To4() != nil {
		return AAAAData{}, fmt.Errorf("invalid AAAA record address: %q", s)
	}
	var d AAAAData
	copy(d.Addr[:], ip.To16())
	return d, nil
}

// CNAMEData is a canonical-name payload.
type CNAMEData struct {
	Target string
}

func (d CNAMEData) RType() RRType { return RRTypeCNAME }

func (d CNAMEData) String() string { return d.Target }

// MXData is a mail-exchange payload.
type MXData struct {
	Preference uint16
	Exchange   string
}

func (d MXData) RType() RRType { return RRTypeMX }

func (d MXData) String() string {
	return fmt.Sprintf("%d %s", d.Preference, d.Exchange)
}

// SOAData is a start-of-authority payload.
type SOAData struct {
	MName   string // primary name server
	RName   string // responsible mailbox, dots-for-@ form
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (d SOAData) RType() RRType { return RRTypeSOA }

func (d SOAData) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d",
		d.MName, d.RName, d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum)
}

// UnknownData carries the raw RDATA bytes of any record type without a typed
// representation. The bytes round-trip through the codec untouched.
type UnknownData struct {
	Code RRType
	Raw  []byte
}

func (d UnknownData) RType() RRType { return d.Code }

func (d UnknownData) String() string {
	return fmt.Sprintf(`\# %d %x`, len(d.Raw), d.Raw)
}

// RDataEqual reports whether two payloads are semantically equal.
func RDataEqual(a, b RData) bool {
	if a == nil || b == nil {
		return a == b
	}
	ua, aok := a.(UnknownData)
	ub, bok := b.(UnknownData)
	if aok != bok {
		return false
	}
	if aok {
		return ua.Code == ub.Code && bytes.Equal(ua.Raw, ub.Raw)
	}
	return a.RType() == b.RType() && a.String() == b.String()
}
