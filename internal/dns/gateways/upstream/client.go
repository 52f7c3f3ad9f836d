// Package upstream forwards queries to recursive DNS servers over UDP.
// Servers are tried in order with one retry each; every query carries a
// fresh random transaction id which the response must echo.
package upstream

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/gateways/wire"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

var (
	// ErrTimeout reports that no server answered within the deadline.
	ErrTimeout = errors.New("upstream query timed out")
	// ErrMalformed reports a response that could not be decoded or did not
	// match the query it answers.
	ErrMalformed = errors.New("malformed upstream response")
	// ErrAllServersFailed reports that every configured server was tried.
	ErrAllServersFailed = errors.New("all upstream servers failed")
)

// attemptsPerServer bounds tries per server: the initial query plus one retry.
const attemptsPerServer = 2

// DialFunc establishes a network connection. Injectable for tests.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Client.
type Options struct {
	Servers []string // upstream addresses, e.g. "1.1.1.1:53"
	Timeout time.Duration
	Codec   wire.Codec
	Logger  log.Logger

	// Dial overrides the network dialer, for tests.
	Dial DialFunc
}

// Client resolves questions against upstream servers serially.
type Client struct {
	servers []string
	timeout time.Duration
	codec   wire.Codec
	dial    DialFunc
	logger  log.Logger
}

// New validates options and returns a Client.
func New(opts Options) (*Client, error) {
	if len(opts.Servers) == 0 {
		return nil, errors.New("no upstream DNS servers provided")
	}
	if opts.Codec == nil {
		return nil, errors.New("DNS codec is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		servers: opts.Servers,
		timeout: opts.Timeout,
		codec:   opts.Codec,
		dial:    opts.Dial,
		logger:  opts.Logger,
	}, nil
}

// Resolve forwards the question to each server in turn, retrying once per
// server, and returns the first decodable response. The context deadline
// bounds the whole operation; without one the client's timeout applies.
func (c *Client) Resolve(ctx context.Context, q domain.Question) (domain.Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	for _, server := range c.servers {
		for attempt := 0; attempt < attemptsPerServer; attempt++ {
			msg, err := c.queryServer(ctx, server, q)
			if err == nil {
				return msg, nil
			}
			lastErr = err
			c.logger.Debug(map[string]any{
				"server":  server,
				"attempt": attempt + 1,
				"name":    q.Name,
				"error":   err.Error(),
			}, "Upstream query attempt failed")
			if ctx.Err() != nil {
				return domain.Message{}, fmt.Errorf("%w: %v", ErrTimeout, lastErr)
			}
		}
	}
	return domain.Message{}, fmt.Errorf("%w: %v", ErrAllServersFailed, lastErr)
}

// queryServer performs one query round trip against a single server.
func (c *Client) queryServer(ctx context.Context, server string, q domain.Question) (domain.Message, error) {
	id, err := randomID()
	if err != nil {
		return domain.Message{}, err
	}

	conn, err := c.dial(ctx, "udp", server)
	if err != nil {
		return domain.Message{}, fmt.Errorf("connect %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	query, err := c.codec.EncodeQuery(id, q, true)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode query: %w", err)
	}

	type result struct {
		msg domain.Message
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		if _, err := conn.Write(query); err != nil {
			resultChan <- result{err: classifyNetErr("write", err)}
			return
		}
		buffer := make([]byte, 512)
		n, err := conn.Read(buffer)
		if err != nil {
			resultChan <- result{err: classifyNetErr("read", err)}
			return
		}
		msg, err := c.decodeResponse(buffer[:n], id)
		resultChan <- result{msg: msg, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.msg, res.err
	case <-ctx.Done():
		return domain.Message{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// decodeResponse validates a raw upstream reply against the query id.
func (c *Client) decodeResponse(data []byte, id uint16) (domain.Message, error) {
	msg, err := c.codec.DecodeMessage(data)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Header.ID != id {
		return domain.Message{}, fmt.Errorf("%w: transaction id %#04x, want %#04x", ErrMalformed, msg.Header.ID, id)
	}
	if !msg.Header.Response {
		return domain.Message{}, fmt.Errorf("%w: QR flag not set", ErrMalformed)
	}
	return msg, nil
}

// classifyNetErr folds deadline expiries into ErrTimeout so callers can
// distinguish slow servers from broken ones.
func classifyNetErr(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// randomID draws a transaction id from the system CSPRNG. Predictable ids
// invite off-path spoofing of upstream answers.
func randomID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate transaction id: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

var _ resolver.UpstreamClient = (*Client)(nil)
