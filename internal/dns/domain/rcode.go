package domain

import (
	"fmt"
	"strings"
)

// RCode represents a DNS response code indicating the result of a query.
type RCode uint8

// DNS response codes per RFC 1035 §4.1.1.
const (
	RCodeNoError  RCode = 0 // NOERROR - no error condition
	RCodeFormErr  RCode = 1 // FORMERR - the server could not interpret the query
	RCodeServFail RCode = 2 // SERVFAIL - server failure
	RCodeNXDomain RCode = 3 // NXDOMAIN - the queried name does not exist
	RCodeNotImp   RCode = 4 // NOTIMP - the requested query kind is unsupported
	RCodeRefused  RCode = 5 // REFUSED - policy refusal
)

// IsValid returns true if the RCode is within the supported response code range.
func (r RCode) IsValid() bool {
	return r <= 10
}

// String returns the textual representation of the RCode.
func (r RCode) String() string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormErr:
		return "FORMERR"
	case RCodeServFail:
		return "SERVFAIL"
	case RCodeNXDomain:
		return "NXDOMAIN"
	case RCodeNotImp:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
	}
}

// ParseRCode converts a string name to an RCode value.
func ParseRCode(s string) (RCode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOERROR":
		return RCodeNoError, nil
	case "FORMERR":
		return RCodeFormErr, nil
	case "SERVFAIL":
		return RCodeServFail, nil
	case "NXDOMAIN":
		return RCodeNXDomain, nil
	case "NOTIMP":
		return RCodeNotImp, nil
	case "REFUSED":
		return RCodeRefused, nil
	default:
		return 0, fmt.Errorf("unsupported RCode: %q", s)
	}
}
