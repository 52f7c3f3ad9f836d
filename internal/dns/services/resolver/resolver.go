// Package resolver orchestrates query resolution. Every query walks the
// same precedence ladder: validation, blocklist, authoritative zone data,
// cache, and finally recursive resolution upstream. Earlier rungs are
// terminal; a blocked name is never forwarded and an authoritative answer is
// never overridden by cached or upstream data.
package resolver

import (
	"context"
	"net"
	"net/netip"

	"github.com/sentineldns/sentinel/internal/dns/common/clock"
	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
)

// DefaultMaxChainDepth bounds CNAME chains unless configured otherwise.
const DefaultMaxChainDepth = 8

// sinkTTL is the TTL on synthesized sink answers for blocked names. Short,
// so unblocking a name takes effect quickly in clients.
const sinkTTL = 60

// Options configures a Resolver. Zones is required; Blocklist, Cache, and
// Upstream may be nil to disable the corresponding rung.
type Options struct {
	Blocklist Blocklist
	Zones     ZoneStore
	Cache     Cache
	Upstream  UpstreamClient
	Clock     clock.Clock
	Logger    log.Logger

	// MaxChainDepth bounds CNAME chain expansion. Zero means the default.
	MaxChainDepth int

	// BlockedRCode is the response code for blocked names when no sink
	// address is set. Zero value means NXDOMAIN.
	BlockedRCode domain.RCode

	// NegativeRCode is the response code for a full miss when recursion is
	// unwanted or unavailable. Zero value means SERVFAIL.
	NegativeRCode domain.RCode

	// SinkAddress, when valid, answers blocked A/AAAA queries with this
	// address instead of an error response.
	SinkAddress netip.Addr
}

// Resolver is the resolution engine. It is safe for concurrent use.
type Resolver struct {
	blocklist     Blocklist
	zones         ZoneStore
	cache         Cache
	upstream      UpstreamClient
	clock         clock.Clock
	logger        log.Logger
	chaser        *chaser
	blockedRCode  domain.RCode
	negativeRCode domain.RCode
	sinkAddress   netip.Addr
}

// New constructs a Resolver from options, applying defaults.
func New(opts Options) *Resolver {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.MaxChainDepth <= 0 {
		opts.MaxChainDepth = DefaultMaxChainDepth
	}
	if opts.BlockedRCode == domain.RCodeNoError {
		opts.BlockedRCode = domain.RCodeNXDomain
	}
	if opts.NegativeRCode == domain.RCodeNoError {
		opts.NegativeRCode = domain.RCodeServFail
	}
	return &Resolver{
		blocklist:     opts.Blocklist,
		zones:         opts.Zones,
		cache:         opts.Cache,
		upstream:      opts.Upstream,
		clock:         opts.Clock,
		logger:        opts.Logger,
		blockedRCode:  opts.BlockedRCode,
		negativeRCode: opts.NegativeRCode,
		sinkAddress:   opts.SinkAddress,
		chaser: &chaser{
			zones:    opts.Zones,
			cache:    opts.Cache,
			upstream: opts.Upstream,
			logger:   opts.Logger,
			maxDepth: opts.MaxChainDepth,
		},
	}
}

// HandleQuery resolves one request message into a response message. It
// always returns a well-formed response; protocol errors surface as response
// codes, never as Go errors.
func (r *Resolver) HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) domain.Message {
	ra := r.upstream != nil

	if req.Header.Response {
		return domain.NewErrorResponse(req, domain.RCodeFormErr, ra)
	}
	if req.Header.Opcode != domain.OpcodeQuery {
		return domain.NewErrorResponse(req, domain.RCodeNotImp, ra)
	}
	if len(req.Questions) != 1 {
		return domain.NewErrorResponse(req, domain.RCodeFormErr, ra)
	}
	q := req.Questions[0]
	if err := q.Validate(); err != nil || q.Class != domain.RRClassIN {
		return domain.NewErrorResponse(req, domain.RCodeFormErr, ra)
	}

	r.logger.Debug(map[string]any{
		"client": addrString(clientAddr),
		"id":     req.Header.ID,
		"name":   q.Name,
		"type":   q.Type.String(),
	}, "Resolving query")

	if r.blocklist != nil && r.blocklist.IsBlocked(q.Name) {
		return r.blockedResponse(req, q, ra)
	}

	if origin, ok := r.zones.InZone(q.Name); ok {
		return r.authoritativeResponse(ctx, req, q, origin, ra)
	}

	if r.cache != nil {
		if records, found := r.cache.Get(q, r.clock.Now()); found {
			resp := domain.NewResponse(req, ra)
			resp.Answers = records
			resp.SyncCounts()
			return resp
		}
	}

	if !req.Header.RecursionDesired || r.upstream == nil {
		// Nothing local and recursion unwanted or unavailable. The configured
		// negative code, with no upstream traffic.
		return domain.NewErrorResponse(req, r.negativeRCode, ra)
	}

	return r.recursiveResponse(ctx, req, q)
}

// blockedResponse answers a query for a blocklisted name. With a sink
// address configured, address queries of the matching family get the sink;
// everything else gets an empty NOERROR. Without one, the configured
// negative code applies.
func (r *Resolver) blockedResponse(req domain.Message, q domain.Question, ra bool) domain.Message {
	r.logger.Info(map[string]any{
		"name": q.Name,
		"type": q.Type.String(),
	}, "Blocked query")

	if !r.sinkAddress.IsValid() {
		return domain.NewErrorResponse(req, r.blockedRCode, ra)
	}

	resp := domain.NewResponse(req, ra)
	if data, ok := r.sinkData(q.Type); ok {
		if rr, err := domain.NewResourceRecord(q.Name, q.Type, q.Class, sinkTTL, data); err == nil {
			resp.Answers = []domain.ResourceRecord{rr}
		}
	}
	resp.SyncCounts()
	return resp
}

// sinkData builds sink record data when the query type matches the sink
// address family.
func (r *Resolver) sinkData(t domain.RRType) (domain.RData, bool) {
	switch {
	case t == domain.RRTypeA && r.sinkAddress.Is4():
		return domain.AData{Addr: r.sinkAddress.As4()}, true
	case t == domain.RRTypeAAAA && r.sinkAddress.Is6() && !r.sinkAddress.Is4In6():
		return domain.AAAAData{Addr: r.sinkAddress.As16()}, true
	default:
		return nil, false
	}
}

// authoritativeResponse answers a query for a name inside a configured zone.
// Zone data is terminal: misses become authoritative negatives with the zone
// SOA in the authority section, never cache or upstream lookups.
func (r *Resolver) authoritativeResponse(ctx context.Context, req domain.Message, q domain.Question, origin string, ra bool) domain.Message {
	records, found := r.zones.Find(q)
	if !found && q.Type != domain.RRTypeCNAME && q.Type != domain.RRTypeANY {
		// The zone may hold a CNAME at this name instead of the queried type;
		// that record starts a chain, not a negative answer.
		records, found = r.zones.Find(domain.Question{Name: q.Name, Type: domain.RRTypeCNAME, Class: q.Class})
	}
	if found {
		if shouldChase(q, records) {
			useUpstream := req.Header.RecursionDesired && r.upstream != nil
			chain, err := r.chaser.chase(ctx, q, records, useUpstream, r.clock.Now())
			if err != nil {
				r.logger.Warn(map[string]any{
					"name":  q.Name,
					"error": err.Error(),
				}, "CNAME chain resolution failed")
				return domain.NewErrorResponse(req, domain.RCodeServFail, ra)
			}
			records = chain
		}
		resp := domain.NewResponse(req, ra)
		resp.Header.Authoritative = true
		resp.Answers = records
		resp.SyncCounts()
		return resp
	}

	resp := domain.NewResponse(req, ra)
	resp.Header.Authoritative = true
	if _, hasOtherTypes := r.zones.Find(domain.Question{Name: q.Name, Type: domain.RRTypeANY, Class: q.Class}); !hasOtherTypes {
		resp.Header.RCode = domain.RCodeNXDomain
	}
	if soa, ok := r.zones.SOA(origin); ok {
		resp.Authority = []domain.ResourceRecord{soa}
	}
	resp.SyncCounts()
	return resp
}

// recursiveResponse forwards the question upstream, caches positive answer
// sets, and relays the upstream response code. Upstream failures of any kind
// collapse to SERVFAIL.
func (r *Resolver) recursiveResponse(ctx context.Context, req domain.Message, q domain.Question) domain.Message {
	msg, err := r.upstream.Resolve(ctx, q)
	if err != nil {
		r.logger.Warn(map[string]any{
			"name":  q.Name,
			"type":  q.Type.String(),
			"error": err.Error(),
		}, "Upstream resolution failed")
		return domain.NewErrorResponse(req, domain.RCodeServFail, true)
	}

	if r.cache != nil && msg.Header.RCode == domain.RCodeNoError && len(msg.Answers) > 0 {
		r.cacheAnswers(msg.Answers)
	}

	resp := domain.NewResponse(req, true)
	resp.Header.RCode = msg.Header.RCode
	resp.Answers = msg.Answers
	resp.Authority = msg.Authority
	resp.SyncCounts()
	return resp
}

// cacheAnswers stores upstream answers grouped by record-set key, preserving
// answer order within each set.
func (r *Resolver) cacheAnswers(answers []domain.ResourceRecord) {
	now := r.clock.Now()
	groups := make(map[string][]domain.ResourceRecord)
	var order []string
	for _, rr := range answers {
		key := rr.CacheKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rr)
	}
	for _, key := range order {
		if err := r.cache.Put(groups[key], now); err != nil {
			r.logger.Debug(map[string]any{
				"key":   key,
				"error": err.Error(),
			}, "Failed to cache answer set")
		}
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

var _ DNSResponder = (*Resolver)(nil)
