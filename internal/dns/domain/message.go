package domain

import "fmt"

// Message represents a complete DNS message: header, question section, and
// the three resource-record sections (RFC 1035 §4.1).
type Message struct {
	Header     Header
	Questions  []Question
	Answers    []ResourceRecord
	Authority  []ResourceRecord
	Additional []ResourceRecord
}

// Question returns the first (and in practice only) question of the message.
// Returns an error when the question section is empty.
func (m Message) Question() (Question, error) {
	if len(m.Questions) == 0 {
		return Question{}, fmt.Errorf("message has no question section")
	}
	return m.Questions[0], nil
}

// SyncCounts sets the header count fields to the actual section lengths so
// that an encoded message is always self-consistent.
func (m *Message) SyncCounts() {
	m.Header.QDCount = uint16(len(m.Questions))
	m.Header.ANCount = uint16(len(m.Answers))
	m.Header.NSCount = uint16(len(m.Authority))
	m.Header.ARCount = uint16(len(m.Additional))
}

// NewResponse builds a response skeleton for the given request: the
// transaction id and question are copied, QR is set, and RD is echoed back.
func NewResponse(req Message, recursionAvailable bool) Message {
	resp := Message{
		Header: Header{
			ID:                 req.Header.ID,
			Response:           true,
			Opcode:             req.Header.Opcode,
			RecursionDesired:   req.Header.RecursionDesired,
			RecursionAvailable: recursionAvailable,
			RCode:              RCodeNoError,
		},
		Questions: append([]Question(nil), req.Questions...),
	}
	resp.SyncCounts()
	return resp
}

// NewErrorResponse builds an empty response carrying only the given response code.
func NewErrorResponse(req Message, rcode RCode, recursionAvailable bool) Message {
	resp := NewResponse(req, recursionAvailable)
	resp.Header.RCode = rcode
	return resp
}
