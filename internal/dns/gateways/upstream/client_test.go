package upstream

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/gateways/wire"
)

// fakeConn scripts one query/response exchange: Write captures the query,
// Read hands it to respond and returns the result.
type fakeConn struct {
	respond func(query []byte) ([]byte, error)
	query   []byte
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.query = append([]byte(nil), b...)
	return len(b), nil
}

func (c *fakeConn) Read(b []byte) (int, error) {
	resp, err := c.respond(c.query)
	if err != nil {
		return 0, err
	}
	return copy(b, resp), nil
}

func (c *fakeConn) Close() error                       { return nil }
func (c *fakeConn) LocalAddr() net.Addr                { return nil }
func (c *fakeConn) RemoteAddr() net.Addr               { return nil }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var testQuestion = domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

// answerWith builds a respond function that echoes the query id and returns
// a single A record.
func answerWith(t *testing.T, codec wire.Codec) func([]byte) ([]byte, error) {
	t.Helper()
	return func(query []byte) ([]byte, error) {
		id, ok := wire.PeekID(query)
		require.True(t, ok)
		rr, err := domain.NewResourceRecord("example.com", domain.RRTypeA, domain.RRClassIN, 300,
			domain.AData{Addr: [4]byte{192, 0, 2, 1}})
		require.NoError(t, err)
		return codec.EncodeMessage(domain.Message{
			Header:    domain.Header{ID: id, Response: true, RecursionAvailable: true},
			Questions: []domain.Question{testQuestion},
			Answers:   []domain.ResourceRecord{rr},
		})
	}
}

func newTestClient(t *testing.T, dial DialFunc, servers ...string) *Client {
	t.Helper()
	if len(servers) == 0 {
		servers = []string{"192.0.2.53:53"}
	}
	c, err := New(Options{
		Servers: servers,
		Timeout: time.Second,
		Codec:   wire.New(log.NewNoopLogger()),
		Logger:  log.NewNoopLogger(),
		Dial:    dial,
	})
	require.NoError(t, err)
	return c
}

func TestNewValidatesOptions(t *testing.T) {
	codec := wire.New(log.NewNoopLogger())

	_, err := New(Options{Codec: codec})
	assert.ErrorContains(t, err, "no upstream DNS servers")

	_, err = New(Options{Servers: []string{"1.1.1.1:53"}})
	assert.ErrorContains(t, err, "codec is required")
}

func TestResolveSuccess(t *testing.T) {
	codec := wire.New(log.NewNoopLogger())
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: answerWith(t, codec)}, nil
	}

	msg, err := newTestClient(t, dial).Resolve(context.Background(), testQuestion)
	require.NoError(t, err)
	require.Len(t, msg.Answers, 1)
	assert.Equal(t, "192.0.2.1", msg.Answers[0].Data.String())
	assert.True(t, msg.Header.Response)
}

func TestResolveFallsBackToSecondServer(t *testing.T) {
	codec := wire.New(log.NewNoopLogger())
	var dials []string
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		dials = append(dials, address)
		if address == "192.0.2.1:53" {
			return nil, errors.New("connection refused")
		}
		return &fakeConn{respond: answerWith(t, codec)}, nil
	}

	c := newTestClient(t, dial, "192.0.2.1:53", "192.0.2.2:53")
	_, err := c.Resolve(context.Background(), testQuestion)
	require.NoError(t, err)

	// the failing server is tried twice before moving on
	assert.Equal(t, []string{"192.0.2.1:53", "192.0.2.1:53", "192.0.2.2:53"}, dials)
}

func TestResolveAllServersFail(t *testing.T) {
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}
	_, err := newTestClient(t, dial).Resolve(context.Background(), testQuestion)
	assert.ErrorIs(t, err, ErrAllServersFailed)
}

func TestQueryServerRejectsWrongID(t *testing.T) {
	codec := wire.New(log.NewNoopLogger())
	c := newTestClient(t, func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: func(query []byte) ([]byte, error) {
			id, _ := wire.PeekID(query)
			return codec.EncodeMessage(domain.Message{
				Header:    domain.Header{ID: id + 1, Response: true},
				Questions: []domain.Question{testQuestion},
			})
		}}, nil
	})

	_, err := c.queryServer(context.Background(), "192.0.2.53:53", testQuestion)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestQueryServerRejectsNonResponse(t *testing.T) {
	c := newTestClient(t, func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: func(query []byte) ([]byte, error) {
			// echo the query back verbatim: right id, QR not set
			return query, nil
		}}, nil
	})

	_, err := c.queryServer(context.Background(), "192.0.2.53:53", testQuestion)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorContains(t, err, "QR flag")
}

func TestQueryServerRejectsGarbage(t *testing.T) {
	c := newTestClient(t, func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: func(query []byte) ([]byte, error) {
			return []byte{0x00, 0x01, 0x02}, nil
		}}, nil
	})

	_, err := c.queryServer(context.Background(), "192.0.2.53:53", testQuestion)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestQueryServerClassifiesTimeout(t *testing.T) {
	c := newTestClient(t, func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: func(query []byte) ([]byte, error) {
			return nil, timeoutError{}
		}}, nil
	})

	_, err := c.queryServer(context.Background(), "192.0.2.53:53", testQuestion)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestResolveHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return &fakeConn{respond: func(query []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}, nil
	}

	_, err := newTestClient(t, dial).Resolve(ctx, testQuestion)
	assert.Error(t, err)
}
