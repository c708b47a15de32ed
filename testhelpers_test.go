package folio

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeCollection holds the canned state for one collection in a fakeStore.
type fakeCollection struct {
	info      CollectionInfo
	results   []ScoredChunk
	byID      map[string]Chunk
	searchErr error
}

// fakeStore satisfies Store with canned per-collection data.
type fakeStore struct {
	collections map[string]*fakeCollection
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string]*fakeCollection)}
}

func (s *fakeStore) add(name string, c *fakeCollection) *fakeStore {
	c.info.Name = name
	if c.byID == nil {
		c.byID = make(map[string]Chunk)
	}
	s.collections[name] = c
	return s
}

func (s *fakeStore) CreateCollection(_ context.Context, name string) error {
	s.add(name, &fakeCollection{})
	return nil
}

func (s *fakeStore) ListCollections(_ context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var names []string
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) CollectionInfo(_ context.Context, name string) (CollectionInfo, error) {
	c, ok := s.collections[name]
	if !ok {
		return CollectionInfo{}, fmt.Errorf("collection %q not found", name)
	}
	return c.info, nil
}

func (s *fakeStore) StoreDocument(_ context.Context, name string, _ Document, chunks []Chunk) error {
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %q not found", name)
	}
	for _, ch := range chunks {
		c.byID[ch.ID] = ch
	}
	c.info.Chunks += len(chunks)
	c.info.Documents++
	return nil
}

func (s *fakeStore) SearchChunks(_ context.Context, name string, _ []float32, topK int) ([]ScoredChunk, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", name)
	}
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	results := c.results
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *fakeStore) GetChunksByIDs(_ context.Context, name string, ids []string) ([]Chunk, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", name)
	}
	var out []Chunk
	for _, id := range ids {
		if ch, ok := c.byID[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

var _ Store = (*fakeStore)(nil)

// stubEmbedding returns the same vector for every text.
type stubEmbedding struct {
	vec []float32
	err error
}

func (e *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e *stubEmbedding) Dimensions() int { return len(e.vec) }
func (e *stubEmbedding) Name() string    { return "stub" }

// markerProvider answers based on which marker string appears in the prompt,
// so different collections (whose chunks carry different markers) get
// different answers from one shared provider.
type markerProvider struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (p *markerProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return ChatResponse{}, p.err
	}
	prompt := req.Messages[len(req.Messages)-1].Content
	for marker, reply := range p.replies {
		if strings.Contains(prompt, marker) {
			return ChatResponse{Content: reply}, nil
		}
	}
	return ChatResponse{Content: "no relevant context found"}, nil
}

func (p *markerProvider) Name() string { return "marker" }

// chunkWithPage builds a chunk with full citation metadata.
func chunkWithPage(id string, page int, filename, filePath string) Chunk {
	return Chunk{
		ID:      id,
		Content: "content of " + id,
		Meta:    ChunkMeta{Page: page, Filename: filename, FilePath: filePath},
	}
}
