package domain

// Opcode represents the 4-bit kind-of-query field in the DNS header.
type Opcode uint8

const (
	OpcodeQuery   Opcode = 0 // standard query
	OpcodeInverse Opcode = 1 // inverse query (obsolete, answered NOTIMP)
	OpcodeStatus  Opcode = 2 // server status request
)

// Header represents the fixed 12-byte DNS message header (RFC 1035 §4.1.1).
// Counts are carried explicitly so decoding can verify that the declared
// counts match the number of entries actually parsed.
type Header struct {
	ID                 uint16
	Response           bool // QR bit
	Opcode             Opcode
	Authoritative      bool  // AA bit
	Truncated          bool  // TC bit
	RecursionDesired   bool  // RD bit
	RecursionAvailable bool  // RA bit
	Zero               uint8 // reserved Z bits, preserved on decode
	RCode              RCode
	QDCount            uint16
	ANCount            uint16
	NSCount            uint16
	ARCount            uint16
}
