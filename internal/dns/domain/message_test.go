package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseCopiesRequestIdentity(t *testing.T) {
	req := Message{
		Header: Header{ID: 0xbeef, RecursionDesired: true},
		Questions: []Question{
			{Name: "example.com", Type: RRTypeA, Class: RRClassIN},
		},
	}
	req.SyncCounts()

	resp := NewResponse(req, true)
	assert.Equal(t, uint16(0xbeef), resp.Header.ID)
	assert.True(t, resp.Header.Response)
	assert.True(t, resp.Header.RecursionDesired)
	assert.True(t, resp.Header.RecursionAvailable)
	assert.Equal(t, RCodeNoError, resp.Header.RCode)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, "example.com", resp.Questions[0].Name)
}

func TestNewErrorResponse(t *testing.T) {
	req := Message{Header: Header{ID: 7}}
	resp := NewErrorResponse(req, RCodeServFail, false)
	assert.Equal(t, RCodeServFail, resp.Header.RCode)
	assert.True(t, resp.Header.Response)
	assert.False(t, resp.Header.RecursionAvailable)
}

func TestMessageQuestion(t *testing.T) {
	var m Message
	_, err := m.Question()
	assert.Error(t, err)

	m.Questions = []Question{{Name: "a.example.com", Type: RRTypeA, Class: RRClassIN}}
	q, err := m.Question()
	require.NoError(t, err)
	assert.Equal(t, "a.example.com", q.Name)
}

func TestSyncCounts(t *testing.T) {
	a, _ := NewResourceRecord("example.com", RRTypeA, RRClassIN, 60, AData{Addr: [4]byte{1, 2, 3, 4}})
	m := Message{
		Questions: []Question{{Name: "example.com", Type: RRTypeA, Class: RRClassIN}},
		Answers:   []ResourceRecord{a, a},
		Authority: []ResourceRecord{a},
	}
	m.SyncCounts()
	assert.Equal(t, uint16(1), m.Header.QDCount)
	assert.Equal(t, uint16(2), m.Header.ANCount)
	assert.Equal(t, uint16(1), m.Header.NSCount)
	assert.Equal(t, uint16(0), m.Header.ARCount)
}
