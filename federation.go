package folio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Ranker selects the best result from a non-empty slice of successful
// results, given in insertion (query) order. Best returns the index of the
// winning result.
type Ranker interface {
	Best(results []QueryResult) int
}

// LongestAnswerRanker picks the result with the longest answer string, ties
// broken by insertion order. Answer length is a crude proxy for "most
// substantive answer" — it does no semantic scoring and is kept only for
// compatibility. Swap in a smarter Ranker via WithRanker when quality
// matters.
type LongestAnswerRanker struct{}

var _ Ranker = LongestAnswerRanker{}

// Best returns the index of the longest answer.
func (LongestAnswerRanker) Best(results []QueryResult) int {
	best := 0
	for i := 1; i < len(results); i++ {
		if len(results[i].Answer) > len(results[best].Answer) {
			best = i
		}
	}
	return best
}

// FederationOption configures a Federation.
type FederationOption func(*federationConfig)

type federationConfig struct {
	concurrency   int
	timeout       time.Duration
	ranker        Ranker
	logger        *slog.Logger
	retrieverOpts []RetrieverOption
}

// WithConcurrency sets how many collections are queried in parallel.
// Values <= 1 mean sequential querying. Default is sequential.
func WithConcurrency(n int) FederationOption {
	return func(c *federationConfig) { c.concurrency = n }
}

// WithCollectionTimeout bounds each collection's query. A collection that
// exceeds the timeout yields a failed QueryResult, the same as any other
// backend error, and does not hold up its siblings. Default is no timeout.
func WithCollectionTimeout(d time.Duration) FederationOption {
	return func(c *federationConfig) { c.timeout = d }
}

// WithRanker sets the best-answer selection policy for QueryBest.
// Default is LongestAnswerRanker.
func WithRanker(r Ranker) FederationOption {
	return func(c *federationConfig) { c.ranker = r }
}

// WithFederationLogger sets a structured logger. Initialization warnings for
// skipped collections are emitted through it. If not set, no logs are
// emitted.
func WithFederationLogger(l *slog.Logger) FederationOption {
	return func(c *federationConfig) { c.logger = l }
}

// WithRetrieverOptions passes options through to every constituent
// CollectionRetriever.
func WithRetrieverOptions(opts ...RetrieverOption) FederationOption {
	return func(c *federationConfig) { c.retrieverOpts = opts }
}

// Federation queries a set of collections as one logical unit. Member
// retrievers share no mutable state, so federated queries run sequentially
// or in parallel with identical results.
type Federation struct {
	retrievers []*CollectionRetriever
	names      []string
	cfg        federationConfig
}

// NewFederation builds a federation over the named collections, or over
// every collection known to the store when names is empty. Collections whose
// retriever fails to initialize are skipped with a warning. Construction
// fails with ErrNoCollections only when the requested set is empty or every
// member failed to initialize — a federation with zero usable members cannot
// answer queries.
func NewFederation(ctx context.Context, store Store, embedding EmbeddingProvider, provider Provider, names []string, opts ...FederationOption) (*Federation, error) {
	cfg := federationConfig{
		ranker: LongestAnswerRanker{},
		logger: nopLogger,
	}
	for _, o := range opts {
		o(&cfg)
	}

	if len(names) == 0 {
		var err error
		names, err = store.ListCollections(ctx)
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("federation: %w", ErrNoCollections)
	}

	f := &Federation{cfg: cfg}
	for _, name := range names {
		r, err := NewCollectionRetriever(ctx, store, embedding, provider, name, cfg.retrieverOpts...)
		if err != nil {
			cfg.logger.Warn("skipping collection", "collection", name, "error", err)
			continue
		}
		f.retrievers = append(f.retrievers, r)
		f.names = append(f.names, name)
	}
	if len(f.retrievers) == 0 {
		return nil, fmt.Errorf("federation: all %d collections failed to initialize: %w", len(names), ErrNoCollections)
	}

	cfg.logger.Info("federation initialized", "collections", len(f.retrievers))
	return f, nil
}

// Collections returns the usable member collection names in query order.
func (f *Federation) Collections() []string { return f.names }

// QueryAll issues queryText to every member collection and returns all
// results. Per-collection failures are isolated: one collection failing (or
// timing out) never affects its siblings' results.
func (f *Federation) QueryAll(ctx context.Context, queryText string) FederatedResult {
	fr := FederatedResult{
		order:   f.names,
		entries: make([]QueryResult, len(f.retrievers)),
	}

	if f.cfg.concurrency <= 1 {
		for i, r := range f.retrievers {
			fr.entries[i] = f.queryOne(ctx, r, queryText)
		}
		return fr
	}

	// Bounded worker pool. Each task writes only its own slice slot, so no
	// locking is needed and completion order cannot affect the result.
	sem := make(chan struct{}, f.cfg.concurrency)
	var wg sync.WaitGroup
	for i, r := range f.retrievers {
		wg.Add(1)
		go func(i int, r *CollectionRetriever) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			fr.entries[i] = f.queryOne(ctx, r, queryText)
		}(i, r)
	}
	wg.Wait()

	return fr
}

// queryOne runs a single member query under the per-collection timeout.
func (f *Federation) queryOne(ctx context.Context, r *CollectionRetriever, queryText string) QueryResult {
	if f.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.timeout)
		defer cancel()
	}
	return r.Query(ctx, queryText, 0)
}

// QueryBest queries every member and returns the best successful result
// according to the federation's Ranker. If no member succeeded, the first
// failed result (by query order) is returned so the caller always receives
// a value. QueryBest never returns an absent result.
func (f *Federation) QueryBest(ctx context.Context, queryText string) QueryResult {
	fr := f.QueryAll(ctx, queryText)

	var succeeded []QueryResult
	for _, r := range fr.entries {
		if r.Succeeded {
			succeeded = append(succeeded, r)
		}
	}
	if len(succeeded) == 0 {
		return fr.entries[0]
	}

	best := f.cfg.ranker.Best(succeeded)
	if best < 0 || best >= len(succeeded) {
		best = 0
	}
	return succeeded[best]
}
