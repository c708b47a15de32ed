package folio

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyProvider fails with a canned error for the first n calls.
type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (p *flakyProvider) Chat(context.Context, ChatRequest) (ChatResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return ChatResponse{}, p.err
	}
	return ChatResponse{Content: "ok"}, nil
}

func (p *flakyProvider) Name() string { return "flaky" }

func TestWithRetryTransient(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: &ErrHTTP{Status: 429, Body: "slow down"}}
	p := WithRetry(inner, RetryMaxAttempts(3), RetryBaseDelay(time.Millisecond))

	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []ChatMessage{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	inner := &flakyProvider{failures: 10, err: &ErrHTTP{Status: 503, Body: "overloaded"}}
	p := WithRetry(inner, RetryMaxAttempts(2), RetryBaseDelay(time.Millisecond))

	_, err := p.Chat(context.Background(), ChatRequest{})
	var he *ErrHTTP
	if !errors.As(err, &he) || he.Status != 503 {
		t.Errorf("err = %v, want the last ErrHTTP", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestWithRetryNonTransient(t *testing.T) {
	inner := &flakyProvider{failures: 10, err: &ErrHTTP{Status: 401, Body: "bad key"}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want no retry on 401", inner.calls)
	}

	inner = &flakyProvider{failures: 10, err: errors.New("plain failure")}
	p = WithRetry(inner, RetryBaseDelay(time.Millisecond))
	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want no retry on non-HTTP error", inner.calls)
	}
}

func TestWithRetryContextCancel(t *testing.T) {
	inner := &flakyProvider{failures: 10, err: &ErrHTTP{Status: 429}}
	p := WithRetry(inner, RetryMaxAttempts(5), RetryBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Chat(ctx, ChatRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 before the backoff wait", inner.calls)
	}
}

func TestWithEmbeddingRetry(t *testing.T) {
	calls := 0
	inner := &funcEmbedding{
		dims: 2,
		fn: func() ([][]float32, error) {
			calls++
			if calls == 1 {
				return nil, &ErrHTTP{Status: 429}
			}
			return [][]float32{{1, 2}}, nil
		},
	}
	p := WithEmbeddingRetry(inner, RetryBaseDelay(time.Millisecond))

	vecs, err := p.Embed(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 1 || calls != 2 {
		t.Errorf("vecs = %v, calls = %d", vecs, calls)
	}
	if p.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d", p.Dimensions())
	}
}

type funcEmbedding struct {
	dims int
	fn   func() ([][]float32, error)
}

func (e *funcEmbedding) Embed(context.Context, []string) ([][]float32, error) { return e.fn() }
func (e *funcEmbedding) Dimensions() int                                      { return e.dims }
func (e *funcEmbedding) Name() string                                         { return "func" }

func TestRetryDelayRespectsRetryAfter(t *testing.T) {
	err := &ErrHTTP{Status: 429, RetryAfter: time.Minute}
	if d := retryDelay(time.Millisecond, 0, err); d < time.Minute {
		t.Errorf("delay = %v, want at least Retry-After", d)
	}

	err = &ErrHTTP{Status: 429}
	d := retryDelay(100*time.Millisecond, 1, err)
	if d < 200*time.Millisecond || d > 300*time.Millisecond {
		t.Errorf("delay = %v, want backoff in [200ms, 300ms]", d)
	}
}
