// Package transport binds the resolution engine to the network. The UDP
// transport owns socket lifecycle and packet framing; all DNS semantics stay
// behind the resolver.DNSResponder interface.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/gateways/wire"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

// maxUDPPacket is the classic DNS UDP payload limit (RFC 1035 §4.2.1).
const maxUDPPacket = 512

// UDPTransport serves DNS over UDP. Each received packet is handled on its
// own goroutine so one slow resolution cannot stall the read loop.
type UDPTransport struct {
	addr   string
	codec  wire.Codec
	logger log.Logger

	mu      sync.RWMutex
	conn    *net.UDPConn
	running bool
	stopCh  chan struct{}
}

// NewUDP creates a UDP transport bound to addr on Start.
func NewUDP(addr string, codec wire.Codec, logger log.Logger) *UDPTransport {
	return &UDPTransport{
		addr:   addr,
		codec:  codec,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start binds the socket and launches the read loop. It returns once the
// socket is listening.
func (t *UDPTransport) Start(ctx context.Context, handler resolver.DNSResponder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("resolve UDP address %s: %w", t.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind UDP socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   conn.LocalAddr().String(),
	}, "DNS transport started")

	go t.listenLoop(ctx, handler)
	return nil
}

// Stop closes the socket and ends the read loop.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	close(t.stopCh)
	t.running = false

	var closeErr error
	if t.conn != nil {
		closeErr = t.conn.Close()
	}

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")
	return closeErr
}

// Address returns the bound address, which differs from the configured one
// when listening on port 0.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

func (t *UDPTransport) listenLoop(ctx context.Context, handler resolver.DNSResponder) {
	buffer := make([]byte, maxUDPPacket)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		default:
		}

		n, clientAddr, err := t.conn.ReadFromUDP(buffer)
		if err != nil {
			t.mu.RLock()
			running := t.running
			t.mu.RUnlock()
			if !running {
				return
			}
			t.logger.Warn(map[string]any{"error": err.Error()}, "Failed to read UDP packet")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])
		go t.handlePacket(ctx, packet, clientAddr, handler)
	}
}

// handlePacket decodes one query, resolves it, and writes the response. A
// packet that cannot be decoded gets a FORMERR reply when it still carries a
// transaction id; anything shorter is dropped since no reply can be
// correlated to the sender's query.
func (t *UDPTransport) handlePacket(ctx context.Context, data []byte, clientAddr *net.UDPAddr, handler resolver.DNSResponder) {
	req, err := t.codec.DecodeMessage(data)
	if err != nil {
		id, ok := wire.PeekID(data)
		if !ok {
			t.logger.Debug(map[string]any{
				"client": clientAddr.String(),
				"size":   len(data),
			}, "Dropped runt packet")
			return
		}
		t.logger.Warn(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
		}, "Failed to decode DNS query")
		t.writeResponse(domain.Message{
			Header: domain.Header{ID: id, Response: true, RCode: domain.RCodeFormErr},
		}, clientAddr)
		return
	}

	resp := handler.HandleQuery(ctx, req, clientAddr)
	t.writeResponse(resp, clientAddr)
}

func (t *UDPTransport) writeResponse(resp domain.Message, clientAddr *net.UDPAddr) {
	data, err := t.codec.EncodeMessage(resp)
	if err != nil {
		t.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"id":     resp.Header.ID,
			"error":  err.Error(),
		}, "Failed to encode DNS response")
		return
	}
	if _, err := t.conn.WriteToUDP(data, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"id":     resp.Header.ID,
			"error":  err.Error(),
		}, "Failed to send DNS response")
		return
	}
	t.logger.Debug(map[string]any{
		"client":  clientAddr.String(),
		"id":      resp.Header.ID,
		"rcode":   resp.Header.RCode.String(),
		"answers": len(resp.Answers),
		"size":    len(data),
	}, "Sent DNS response")
}
