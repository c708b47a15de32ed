package folio

import "context"

// CollectionInfo describes one collection's contents. HasParents reports
// whether the collection was ingested with parent-child chunking, which is
// the signal that hierarchical (auto-merging) retrieval is available.
type CollectionInfo struct {
	Name       string `json:"name"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	HasParents bool   `json:"has_parents"`
}

// Store abstracts collection-scoped persistence with vector search.
// A collection is a named, independently queryable partition of the index,
// typically one per source document.
type Store interface {
	// --- Collections ---
	CreateCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionInfo(ctx context.Context, name string) (CollectionInfo, error)

	// --- Documents + chunks ---
	StoreDocument(ctx context.Context, collection string, doc Document, chunks []Chunk) error
	SearchChunks(ctx context.Context, collection string, embedding []float32, topK int) ([]ScoredChunk, error)
	GetChunksByIDs(ctx context.Context, collection string, ids []string) ([]Chunk, error)

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}
