package folio

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// twoCollectionStore builds a store whose two collections return chunks
// carrying distinct markers, so the shared markerProvider answers each
// collection differently.
func twoCollectionStore() *fakeStore {
	return newFakeStore().
		add("alpha", &fakeCollection{
			info:    CollectionInfo{Chunks: 1},
			results: []ScoredChunk{{Chunk: Chunk{ID: "a1", Content: "alpha-marker text"}, Score: 0.9}},
		}).
		add("beta", &fakeCollection{
			info:    CollectionInfo{Chunks: 1},
			results: []ScoredChunk{{Chunk: Chunk{ID: "b1", Content: "beta-marker text"}, Score: 0.9}},
		})
}

func newTestFederation(t *testing.T, store *fakeStore, llm Provider, names []string, opts ...FederationOption) *Federation {
	t.Helper()
	f, err := NewFederation(context.Background(), store, &stubEmbedding{vec: []float32{1}}, llm, names, opts...)
	if err != nil {
		t.Fatalf("NewFederation() error = %v", err)
	}
	return f
}

func TestFederationQueryAll(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{
		"alpha-marker": "answer from alpha",
		"beta-marker":  "answer from beta",
	}}
	f := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"})

	fr := f.QueryAll(context.Background(), "question")
	if fr.Len() != 2 {
		t.Fatalf("Len() = %d", fr.Len())
	}
	if !reflect.DeepEqual(fr.Collections(), []string{"alpha", "beta"}) {
		t.Errorf("Collections() = %v", fr.Collections())
	}

	a, ok := fr.Get("alpha")
	if !ok || !a.Succeeded || a.Answer != "answer from alpha" {
		t.Errorf("alpha = %+v", a)
	}
	b, ok := fr.Get("beta")
	if !ok || !b.Succeeded || b.Answer != "answer from beta" {
		t.Errorf("beta = %+v", b)
	}
	if _, ok := fr.Get("gamma"); ok {
		t.Error("Get(unknown) should report absent")
	}
}

func TestFederationSkipsBrokenCollections(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{"alpha-marker": "ok"}}
	f := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "ghost"})

	if got := f.Collections(); !reflect.DeepEqual(got, []string{"alpha"}) {
		t.Errorf("Collections() = %v, want broken member skipped", got)
	}
	fr := f.QueryAll(context.Background(), "q")
	if fr.Len() != 1 {
		t.Errorf("Len() = %d", fr.Len())
	}
}

func TestFederationNoCollections(t *testing.T) {
	store := newFakeStore()

	// Empty explicit set discovered via ListCollections.
	_, err := NewFederation(context.Background(), store, &stubEmbedding{vec: []float32{1}}, &markerProvider{}, nil)
	if !errors.Is(err, ErrNoCollections) {
		t.Errorf("empty store: err = %v, want ErrNoCollections", err)
	}

	// All requested members fail to initialize.
	_, err = NewFederation(context.Background(), store, &stubEmbedding{vec: []float32{1}}, &markerProvider{}, []string{"ghost1", "ghost2"})
	if !errors.Is(err, ErrNoCollections) {
		t.Errorf("all broken: err = %v, want ErrNoCollections", err)
	}
}

func TestFederationDiscoversCollections(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{"-marker": "ok"}}
	f := newTestFederation(t, twoCollectionStore(), llm, nil)
	if len(f.Collections()) != 2 {
		t.Errorf("Collections() = %v, want both discovered", f.Collections())
	}
}

func TestFederationFailureIsolation(t *testing.T) {
	store := twoCollectionStore()
	store.collections["beta"].searchErr = errors.New("shard offline")
	llm := &markerProvider{replies: map[string]string{"alpha-marker": "alpha answer"}}

	f := newTestFederation(t, store, llm, []string{"alpha", "beta"})
	fr := f.QueryAll(context.Background(), "q")

	a, _ := fr.Get("alpha")
	if !a.Succeeded {
		t.Errorf("alpha should be unaffected: %+v", a)
	}
	b, _ := fr.Get("beta")
	if b.Succeeded {
		t.Error("beta should fail")
	}
	if !strings.Contains(b.Err, "shard offline") {
		t.Errorf("beta.Err = %q", b.Err)
	}
}

func TestFederationQueryBestLongestAnswer(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{
		"alpha-marker": "short",
		"beta-marker":  strings.Repeat("a much longer answer ", 3),
	}}
	f := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"})

	best := f.QueryBest(context.Background(), "q")
	if best.Collection != "beta" {
		t.Errorf("best = %q, want the longer answer's collection", best.Collection)
	}
}

func TestFederationQueryBestTieBreaksByOrder(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{
		"alpha-marker": "same-size",
		"beta-marker":  "same-size",
	}}
	f := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"})

	best := f.QueryBest(context.Background(), "q")
	if best.Collection != "alpha" {
		t.Errorf("best = %q, want first by query order on ties", best.Collection)
	}
}

func TestFederationQueryBestAllFailed(t *testing.T) {
	store := twoCollectionStore()
	store.collections["alpha"].searchErr = errors.New("down")
	store.collections["beta"].searchErr = errors.New("down")

	f := newTestFederation(t, store, &markerProvider{}, []string{"alpha", "beta"})
	best := f.QueryBest(context.Background(), "q")

	if best.Succeeded {
		t.Error("no member succeeded, result must be a failure")
	}
	if best.Collection != "alpha" {
		t.Errorf("Collection = %q, want first failed result", best.Collection)
	}
}

type fixedRanker struct{ idx int }

func (r fixedRanker) Best(results []QueryResult) int { return r.idx }

func TestFederationCustomRanker(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{
		"alpha-marker": "a very very long alpha answer",
		"beta-marker":  "b",
	}}
	f := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"},
		WithRanker(fixedRanker{idx: 1}))

	best := f.QueryBest(context.Background(), "q")
	if best.Collection != "beta" {
		t.Errorf("best = %q, want the ranker's pick", best.Collection)
	}

	// An out-of-bounds ranker falls back to the first success.
	f = newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"},
		WithRanker(fixedRanker{idx: 99}))
	best = f.QueryBest(context.Background(), "q")
	if best.Collection != "alpha" {
		t.Errorf("best = %q, want fallback to first", best.Collection)
	}
}

func TestFederationConcurrentMatchesSequential(t *testing.T) {
	llm := &markerProvider{replies: map[string]string{
		"alpha-marker": "answer from alpha",
		"beta-marker":  "answer from beta",
	}}

	seq := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"})
	par := newTestFederation(t, twoCollectionStore(), llm, []string{"alpha", "beta"},
		WithConcurrency(4))

	a := seq.QueryAll(context.Background(), "q")
	b := par.QueryAll(context.Background(), "q")

	if !reflect.DeepEqual(a.Results(), b.Results()) {
		t.Errorf("concurrent results differ:\nseq: %+v\npar: %+v", a.Results(), b.Results())
	}
	if !reflect.DeepEqual(a.Collections(), b.Collections()) {
		t.Errorf("order differs: %v vs %v", a.Collections(), b.Collections())
	}
}

func TestLongestAnswerRankerBounds(t *testing.T) {
	r := LongestAnswerRanker{}
	results := []QueryResult{
		{Answer: "aa"},
		{Answer: "aaaa"},
		{Answer: "aaa"},
	}
	if got := r.Best(results); got != 1 {
		t.Errorf("Best = %d, want 1", got)
	}
	if got := r.Best([]QueryResult{{Answer: "only"}}); got != 0 {
		t.Errorf("Best single = %d", got)
	}
}
