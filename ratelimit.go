package folio

import (
	"context"
	"sync"
	"time"
)

// rateBudget is a sliding-window request and token budget shared by the
// rate-limited provider wrappers.
type rateBudget struct {
	mu sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// TPM state: sliding window of (timestamp, tokenCount) pairs.
	tpm       int
	tpmWindow []tpmEntry
}

type tpmEntry struct {
	at     time.Time
	tokens int
}

// RateLimitOption configures a rate-limited wrapper.
type RateLimitOption func(*rateBudget)

// RPM sets the maximum requests per minute.
func RPM(n int) RateLimitOption {
	return func(b *rateBudget) { b.rpm = n }
}

// TPM sets the maximum tokens per minute (input + output combined).
// Token counts are recorded after each request completes. This is a soft
// limit — the request that exceeds the budget completes, but subsequent
// requests block until the window slides.
func TPM(n int) RateLimitOption {
	return func(b *rateBudget) { b.tpm = n }
}

// rateLimitProvider wraps a Provider with proactive rate limiting.
// Requests block until the rate budget allows them to proceed.
type rateLimitProvider struct {
	inner  Provider
	budget rateBudget
}

// WithRateLimit wraps p with proactive rate limiting. Compose with other wrappers:
//
//	llm = folio.WithRateLimit(provider, folio.RPM(60))
//	llm = folio.WithRateLimit(folio.WithRetry(provider), folio.RPM(60), folio.TPM(100000))
func WithRateLimit(p Provider, opts ...RateLimitOption) Provider {
	r := &rateLimitProvider{inner: p}
	for _, opt := range opts {
		opt(&r.budget)
	}
	return r
}

var _ Provider = (*rateLimitProvider)(nil)

func (r *rateLimitProvider) Name() string { return r.inner.Name() }

func (r *rateLimitProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := r.budget.wait(ctx); err != nil {
		return ChatResponse{}, err
	}
	resp, err := r.inner.Chat(ctx, req)
	if err == nil {
		r.budget.record(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	}
	return resp, err
}

// rateLimitEmbedding wraps an EmbeddingProvider with the same budget
// mechanics. Embedding APIs report no usage, so the token cost of a batch is
// estimated from input length at roughly four characters per token.
type rateLimitEmbedding struct {
	inner  EmbeddingProvider
	budget rateBudget
}

// WithEmbeddingRateLimit wraps p with proactive rate limiting. Bulk ingestion
// is the usual reason: a large document can otherwise burn a minute's token
// budget in one burst of embedding batches.
func WithEmbeddingRateLimit(p EmbeddingProvider, opts ...RateLimitOption) EmbeddingProvider {
	r := &rateLimitEmbedding{inner: p}
	for _, opt := range opts {
		opt(&r.budget)
	}
	return r
}

var _ EmbeddingProvider = (*rateLimitEmbedding)(nil)

func (r *rateLimitEmbedding) Name() string    { return r.inner.Name() }
func (r *rateLimitEmbedding) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.budget.wait(ctx); err != nil {
		return nil, err
	}
	out, err := r.inner.Embed(ctx, texts)
	if err == nil {
		var chars int
		for _, t := range texts {
			chars += len(t)
		}
		r.budget.record(chars / 4)
	}
	return out, err
}

// wait blocks until both RPM and TPM budgets allow a request.
// Returns ctx.Err() if the context is cancelled while waiting.
func (b *rateBudget) wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		b.rpmWindow = pruneTime(b.rpmWindow, cutoff)
		b.tpmWindow = pruneTpm(b.tpmWindow, cutoff)

		rpmOK := b.rpm <= 0 || len(b.rpmWindow) < b.rpm

		tpmOK := true
		if b.tpm > 0 {
			var total int
			for _, e := range b.tpmWindow {
				total += e.tokens
			}
			tpmOK = total < b.tpm
		}

		if rpmOK && tpmOK {
			if b.rpm > 0 {
				b.rpmWindow = append(b.rpmWindow, now)
			}
			b.mu.Unlock()
			return nil
		}

		// Wait until the oldest entry in the blocking window expires.
		var wait time.Duration
		if !rpmOK && len(b.rpmWindow) > 0 {
			wait = b.rpmWindow[0].Add(time.Minute).Sub(now)
		}
		if !tpmOK && len(b.tpmWindow) > 0 {
			w := b.tpmWindow[0].at.Add(time.Minute).Sub(now)
			if wait == 0 || w < wait {
				wait = w
			}
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// record adds token counts to the TPM sliding window.
func (b *rateBudget) record(tokens int) {
	if b.tpm <= 0 || tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.tpmWindow = append(b.tpmWindow, tpmEntry{at: time.Now(), tokens: tokens})
	b.mu.Unlock()
}

// pruneTime removes entries older than cutoff from a sorted time slice.
func pruneTime(s []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(s) && s[i].Before(cutoff) {
		i++
	}
	return s[i:]
}

// pruneTpm removes entries older than cutoff from a sorted tpmEntry slice.
func pruneTpm(s []tpmEntry, cutoff time.Time) []tpmEntry {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}
