// Package postgres implements folio.Store using PostgreSQL with pgvector for
// native vector similarity search.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor injection.
// The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	folio "github.com/rindra/folio"
)

// Store implements folio.Store backed by PostgreSQL with pgvector.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node). Higher
// values improve recall at the cost of memory. Default: pgvector's 16.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter. Higher values
// improve index quality at the cost of slower builds. Default: pgvector's 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default:
// pgvector's 40. Applied during Init().
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

var _ folio.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents(collection)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			document_id TEXT NOT NULL,
			parent_id TEXT,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding %s,
			metadata JSONB
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS chunks_collection_idx ON chunks(collection)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}

	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SET hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	return nil
}

// CreateCollection registers a collection. Creating an existing collection is
// a no-op.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("postgres: create collection: empty name")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, folio.NowUnix())
	if err != nil {
		return fmt.Errorf("postgres: create collection: %w", err)
	}
	return nil
}

// ListCollections returns all collection names sorted alphabetically.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("postgres: scan collection: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// CollectionInfo returns counts for a collection; unknown names are an error.
func (s *Store) CollectionInfo(ctx context.Context, name string) (folio.CollectionInfo, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("postgres: collection info: %w", err)
	}
	if !exists {
		return folio.CollectionInfo{}, fmt.Errorf("postgres: collection %q not found", name)
	}

	info := folio.CollectionInfo{Name: name}
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE collection = $1),
			(SELECT COUNT(*) FROM chunks WHERE collection = $1),
			(SELECT EXISTS(SELECT 1 FROM chunks WHERE collection = $1 AND parent_id IS NOT NULL))`,
		name).Scan(&info.Documents, &info.Chunks, &info.HasParents)
	if err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("postgres: collection info: %w", err)
	}
	return info, nil
}

// StoreDocument inserts a document and its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, collection string, doc folio.Document, chunks []folio.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, collection, title, source, content, page_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			collection = EXCLUDED.collection,
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			content = EXCLUDED.content,
			page_count = EXCLUDED.page_count`,
		doc.ID, collection, doc.Title, doc.Source, doc.Content, doc.PageCount, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}

	for _, chunk := range chunks {
		var emb any
		if len(chunk.Embedding) > 0 {
			emb = serializeEmbedding(chunk.Embedding)
		}
		var parentID any
		if chunk.ParentID != "" {
			parentID = chunk.ParentID
		}
		metaData, _ := json.Marshal(chunk.Meta)
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, collection, document_id, parent_id, content, chunk_index, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			chunk.ID, collection, chunk.DocumentID, parentID, chunk.Content, chunk.ChunkIndex, emb, metaData)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// SearchChunks performs pgvector cosine similarity search within a collection.
func (s *Store) SearchChunks(ctx context.Context, collection string, embedding []float32, topK int) ([]folio.ScoredChunk, error) {
	embStr := serializeEmbedding(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, parent_id, content, chunk_index, metadata,
		        1 - (embedding <=> $1::vector) AS score
		 FROM chunks
		 WHERE collection = $2 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $3`,
		embStr, collection, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []folio.ScoredChunk
	for rows.Next() {
		var sc folio.ScoredChunk
		var parentID *string
		var metaData []byte
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &parentID, &sc.Content, &sc.ChunkIndex, &metaData, &sc.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if parentID != nil {
			sc.ParentID = *parentID
		}
		if len(metaData) > 0 {
			_ = json.Unmarshal(metaData, &sc.Meta)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// GetChunksByIDs returns the chunks matching ids within a collection.
func (s *Store) GetChunksByIDs(ctx context.Context, collection string, ids []string) ([]folio.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, parent_id, content, chunk_index, metadata
		 FROM chunks WHERE collection = $1 AND id = ANY($2)`,
		collection, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get chunks by ids: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Close is a no-op; the caller owns the pool.
func (s *Store) Close() error { return nil }

func scanChunks(rows pgx.Rows) ([]folio.Chunk, error) {
	var chunks []folio.Chunk
	for rows.Next() {
		var c folio.Chunk
		var parentID *string
		var metaData []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &parentID, &c.Content, &c.ChunkIndex, &metaData); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if parentID != nil {
			c.ParentID = *parentID
		}
		if len(metaData) > 0 {
			_ = json.Unmarshal(metaData, &c.Meta)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// serializeEmbedding converts []float32 to pgvector's "[0.1,0.2,...]" text form.
func serializeEmbedding(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
