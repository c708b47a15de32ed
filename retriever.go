package folio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultTopK is the number of chunks retrieved per query when no override
// is given.
const DefaultTopK = 6

// RetrieverOption configures a CollectionRetriever.
type RetrieverOption func(*retrieverConfig)

type retrieverConfig struct {
	topK        int
	mergeParent bool
	logger      *slog.Logger
}

// WithTopK sets the default number of chunks retrieved per query.
func WithTopK(k int) RetrieverOption {
	return func(c *retrieverConfig) { c.topK = k }
}

// WithParentMerge controls hierarchical (auto-merging) retrieval. It only
// takes effect on collections that were ingested with parent-child chunking;
// flat collections always use standard retrieval. Default is on.
func WithParentMerge(enabled bool) RetrieverOption {
	return func(c *retrieverConfig) { c.mergeParent = enabled }
}

// WithRetrieverLogger sets a structured logger. If not set, no logs are
// emitted.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(c *retrieverConfig) { c.logger = l }
}

// CollectionRetriever executes queries against one collection's index and
// returns structured results. Failures from the backend are captured in the
// QueryResult rather than raised: failures are data, not control flow.
//
// The retriever is read-only after construction and safe for concurrent use.
type CollectionRetriever struct {
	store      Store
	embedding  EmbeddingProvider
	provider   Provider
	collection string
	topK       int
	merging    bool
	logger     *slog.Logger
}

// NewCollectionRetriever creates a retriever for one collection. It verifies
// the collection exists and detects at construction time whether the
// collection supports hierarchical retrieval (parent-child chunks): when it
// does, retrieved child chunks are replaced by their larger parent units,
// which reduces source fragmentation in citations.
func NewCollectionRetriever(ctx context.Context, store Store, embedding EmbeddingProvider, provider Provider, collection string, opts ...RetrieverOption) (*CollectionRetriever, error) {
	cfg := retrieverConfig{
		topK:        DefaultTopK,
		mergeParent: true,
		logger:      nopLogger,
	}
	for _, o := range opts {
		o(&cfg)
	}

	info, err := store.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("load collection %q: %w", collection, err)
	}

	r := &CollectionRetriever{
		store:      store,
		embedding:  embedding,
		provider:   provider,
		collection: collection,
		topK:       cfg.topK,
		merging:    cfg.mergeParent && info.HasParents,
		logger:     cfg.logger,
	}

	mode := "standard"
	if r.merging {
		mode = "auto-merging"
	}
	r.logger.Info("retriever initialized", "collection", collection, "mode", mode, "chunks", info.Chunks)

	return r, nil
}

// Collection returns the name of the collection this retriever queries.
func (r *CollectionRetriever) Collection() string { return r.collection }

// Query runs one retrieval round trip: embed the query, search the
// collection, optionally merge child chunks into parents, and synthesize an
// answer from the retrieved context. topK overrides the retriever default
// when positive.
//
// Query never returns an error: any backend failure produces a QueryResult
// with Succeeded=false and the failure message in Err.
func (r *CollectionRetriever) Query(ctx context.Context, queryText string, topK int) QueryResult {
	if strings.TrimSpace(queryText) == "" {
		return r.fail("empty query")
	}
	k := r.topK
	if topK > 0 {
		k = topK
	}

	embs, err := r.embedding.Embed(ctx, []string{queryText})
	if err != nil {
		return r.fail(fmt.Sprintf("embed query: %v", err))
	}
	if len(embs) == 0 {
		return r.fail("embed query: no embedding returned")
	}

	scored, err := r.store.SearchChunks(ctx, r.collection, embs[0], k)
	if err != nil {
		return r.fail(fmt.Sprintf("search: %v", err))
	}

	if r.merging {
		scored = r.mergeParents(ctx, scored)
	}

	chunks := make([]Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}

	answer, err := r.synthesize(ctx, queryText, chunks)
	if err != nil {
		return r.fail(fmt.Sprintf("synthesize: %v", err))
	}

	r.logger.Info("query ok", "collection", r.collection, "chunks", len(chunks), "answer_len", len(answer))

	return QueryResult{
		Answer:     answer,
		Chunks:     chunks,
		Collection: r.collection,
		Succeeded:  true,
	}
}

// fail wraps a failure message into a QueryResult.
func (r *CollectionRetriever) fail(msg string) QueryResult {
	r.logger.Warn("query failed", "collection", r.collection, "error", msg)
	return QueryResult{Collection: r.collection, Err: msg}
}

// mergeParents replaces child chunks with their parent's richer content.
// If multiple children map to the same parent, the highest-scored child
// wins. Errors are non-fatal — on failure, results pass through unmodified.
func (r *CollectionRetriever) mergeParents(ctx context.Context, results []ScoredChunk) []ScoredChunk {
	if len(results) == 0 {
		return results
	}

	parentIDs := make(map[string]bool)
	var pIDs []string
	for _, sc := range results {
		if sc.ParentID != "" && !parentIDs[sc.ParentID] {
			parentIDs[sc.ParentID] = true
			pIDs = append(pIDs, sc.ParentID)
		}
	}
	if len(pIDs) == 0 {
		return results
	}

	parents, err := r.store.GetChunksByIDs(ctx, r.collection, pIDs)
	if err != nil {
		return results // degrade gracefully
	}
	parentMap := make(map[string]Chunk, len(parents))
	for _, p := range parents {
		parentMap[p.ID] = p
	}

	seen := make(map[string]bool)
	var merged []ScoredChunk

	for _, sc := range results {
		if sc.ParentID == "" {
			merged = append(merged, sc)
			continue
		}
		if seen[sc.ParentID] {
			continue
		}
		seen[sc.ParentID] = true

		parent, ok := parentMap[sc.ParentID]
		if !ok {
			merged = append(merged, sc)
			continue
		}
		merged = append(merged, ScoredChunk{Chunk: parent, Score: sc.Score})
	}

	return merged
}

const synthesisSystemPrompt = "You are a document assistant. Answer the question using only the provided context. If the context does not contain the answer, say so."

// synthesize asks the LLM to answer queryText from the retrieved chunks.
func (r *CollectionRetriever) synthesize(ctx context.Context, queryText string, chunks []Chunk) (string, error) {
	var docs strings.Builder
	for i, c := range chunks {
		if page, ok := PageOf(c); ok {
			fmt.Fprintf(&docs, "[%d] (p.%d) %s\n\n", i+1, page, c.Content)
		} else {
			fmt.Fprintf(&docs, "[%d] %s\n\n", i+1, c.Content)
		}
	}

	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", docs.String(), queryText)

	resp, err := r.provider.Chat(ctx, ChatRequest{
		Messages: []ChatMessage{
			SystemMessage(synthesisSystemPrompt),
			UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
