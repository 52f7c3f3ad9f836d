package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentineldns/sentinel/internal/dns/common/dnsutil"
	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
)

var (
	// ErrChainDepthExceeded is returned when a CNAME chain is longer than the
	// configured maximum.
	ErrChainDepthExceeded = errors.New("cname chain depth exceeded")
	// ErrChainLoop is returned when an owner name reappears in a chain.
	ErrChainLoop = errors.New("cname chain loop detected")
	// ErrChainTargetInvalid indicates a CNAME record without a usable target.
	ErrChainTargetInvalid = errors.New("cname target invalid")
)

// chaser expands CNAME chains. Each target is resolved zone-first, then from
// cache, then upstream when recursion applies. The returned slice is the
// ordered list of CNAME hops followed by the terminal record set, if one was
// found; a chain that dead-ends returns just the hops gathered so far.
type chaser struct {
	zones    ZoneStore
	cache    Cache
	upstream UpstreamClient
	logger   log.Logger
	maxDepth int
}

// chase follows the chain starting at initial. useUpstream gates the final
// lookup fallback so non-recursive queries never cause upstream traffic.
func (c *chaser) chase(ctx context.Context, q domain.Question, initial []domain.ResourceRecord, useUpstream bool, now time.Time) ([]domain.ResourceRecord, error) {
	if !shouldChase(q, initial) {
		return initial, nil
	}

	var chain []domain.ResourceRecord
	visited := make(map[string]struct{})
	current := initial
	depth := 0

	for len(current) > 0 && current[0].Type == domain.RRTypeCNAME {
		head := current[0]
		depth++
		if depth > c.maxDepth {
			c.logger.Warn(map[string]any{
				"name":  q.Name,
				"depth": depth,
			}, "CNAME chain depth exceeded")
			return nil, fmt.Errorf("%w: %d hops from %s", ErrChainDepthExceeded, depth, q.Name)
		}

		owner := dnsutil.CanonicalName(head.Name)
		if _, seen := visited[owner]; seen {
			c.logger.Warn(map[string]any{
				"name":  q.Name,
				"owner": owner,
			}, "CNAME chain loop detected")
			return nil, fmt.Errorf("%w: %s revisited", ErrChainLoop, owner)
		}
		visited[owner] = struct{}{}
		chain = append(chain, head)

		cname, ok := head.Data.(domain.CNAMEData)
		if !ok || cname.Target == "" {
			return nil, fmt.Errorf("%w: record for %s", ErrChainTargetInvalid, head.Name)
		}

		next := domain.Question{Name: cname.Target, Type: q.Type, Class: q.Class}
		records, found := c.lookup(ctx, next, useUpstream, now)
		if !found {
			// Dead end. Return the hops gathered; the client can finish the
			// chase itself.
			return chain, nil
		}
		if records[0].Type != domain.RRTypeCNAME {
			return append(chain, records...), nil
		}
		current = records
	}
	return chain, nil
}

// lookup resolves one chain hop: zone data for the wanted type, then a zone
// CNAME at the same owner, then cache, then upstream.
func (c *chaser) lookup(ctx context.Context, q domain.Question, useUpstream bool, now time.Time) ([]domain.ResourceRecord, bool) {
	if records, found := c.zones.Find(q); found && len(records) > 0 {
		return records, true
	}
	cnameQ := domain.Question{Name: q.Name, Type: domain.RRTypeCNAME, Class: q.Class}
	if records, found := c.zones.Find(cnameQ); found && len(records) > 0 {
		return records, true
	}
	if c.cache != nil {
		if records, found := c.cache.Get(q, now); found && len(records) > 0 {
			return records, true
		}
		if records, found := c.cache.Get(cnameQ, now); found && len(records) > 0 {
			return records, true
		}
	}
	if useUpstream && c.upstream != nil {
		msg, err := c.upstream.Resolve(ctx, q)
		if err != nil {
			c.logger.Debug(map[string]any{
				"name":  q.Name,
				"error": err.Error(),
			}, "Upstream lookup during CNAME chase failed")
			return nil, false
		}
		if len(msg.Answers) > 0 {
			return msg.Answers, true
		}
	}
	return nil, false
}

// shouldChase reports whether the record set warrants chain expansion: a
// CNAME at the head and a query that did not ask for the CNAME itself.
func shouldChase(q domain.Question, records []domain.ResourceRecord) bool {
	return len(records) > 0 &&
		records[0].Type == domain.RRTypeCNAME &&
		q.Type != domain.RRTypeCNAME &&
		q.Type != domain.RRTypeANY
}
