// Package sqlite implements folio.Store using pure-Go SQLite with in-process
// brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	folio "github.com/rindra/folio"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including timing,
// row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements folio.Store backed by a local SQLite file. Every document
// and chunk row carries a collection column; embeddings are stored as JSON
// text and vector search is done in-process with brute-force cosine
// similarity, which is fine at the per-document collection sizes this store
// is built for.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ folio.Store = (*Store)(nil)

var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// A single shared connection serializes writers, eliminating SQLITE_BUSY
// errors from concurrent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			document_id TEXT NOT NULL,
			parent_id TEXT,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding TEXT,
			metadata TEXT
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// CreateCollection registers a collection. Creating an existing collection is
// a no-op.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("create collection: empty name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`,
		name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// ListCollections returns all collection names sorted alphabetically.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// CollectionInfo returns counts for a collection. Unknown collections are an
// error, which doubles as the existence check.
func (s *Store) CollectionInfo(ctx context.Context, name string) (folio.CollectionInfo, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("collection info: %w", err)
	}
	if exists == 0 {
		return folio.CollectionInfo{}, fmt.Errorf("collection %q not found", name)
	}

	info := folio.CollectionInfo{Name: name}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, name).Scan(&info.Documents); err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("collection info: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, name).Scan(&info.Chunks); err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("collection info: %w", err)
	}
	var parents int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ? AND parent_id IS NOT NULL`, name).Scan(&parents); err != nil {
		return folio.CollectionInfo{}, fmt.Errorf("collection info: %w", err)
	}
	info.HasParents = parents > 0
	return info, nil
}

// StoreDocument inserts a document and all its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, collection string, doc folio.Document, chunks []folio.Chunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: store document", "collection", collection, "id", doc.ID, "title", doc.Title, "chunks", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, collection, title, source, content, page_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, collection, doc.Title, doc.Source, doc.Content, doc.PageCount, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: insert document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("insert document: %w", err)
	}

	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		var parentID *string
		if chunk.ParentID != "" {
			parentID = &chunk.ParentID
		}
		metaData, _ := json.Marshal(chunk.Meta)
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, collection, document_id, parent_id, content, chunk_index, embedding, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, collection, chunk.DocumentID, parentID, chunk.Content, chunk.ChunkIndex, embJSON, string(metaData),
		)
		if err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", chunk.ID, "error", err)
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: store document ok", "id", doc.ID, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// SearchChunks performs brute-force cosine similarity search over a
// collection's embedded chunks.
func (s *Store) SearchChunks(ctx context.Context, collection string, embedding []float32, topK int) ([]folio.ScoredChunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search chunks", "collection", collection, "top_k", topK, "embedding_dim", len(embedding))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, parent_id, content, chunk_index, embedding, metadata
		 FROM chunks WHERE collection = ? AND embedding IS NOT NULL`, collection)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []folio.ScoredChunk
	scanned := 0
	for rows.Next() {
		c, embJSON, err := scanChunk(rows, true)
		if err != nil {
			return nil, err
		}
		scanned++
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, folio.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search chunks ok", "collection", collection, "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// GetChunksByIDs returns the chunks matching ids within a collection.
func (s *Store) GetChunksByIDs(ctx context.Context, collection string, ids []string) ([]folio.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{collection}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`SELECT id, document_id, parent_id, content, chunk_index, metadata
		 FROM chunks WHERE collection = ? AND id IN (%s)`,
		strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", err)
	}
	defer rows.Close()

	var chunks []folio.Chunk
	for rows.Next() {
		c, _, err := scanChunk(rows, false)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	return s.db.Close()
}

// scanChunk reads one chunk row. withEmbedding selects the column layout used
// by SearchChunks (embedding included) versus GetChunksByIDs.
func scanChunk(rows *sql.Rows, withEmbedding bool) (folio.Chunk, string, error) {
	var c folio.Chunk
	var parentID, metaJSON sql.NullString
	var embJSON string

	var err error
	if withEmbedding {
		err = rows.Scan(&c.ID, &c.DocumentID, &parentID, &c.Content, &c.ChunkIndex, &embJSON, &metaJSON)
	} else {
		err = rows.Scan(&c.ID, &c.DocumentID, &parentID, &c.Content, &c.ChunkIndex, &metaJSON)
	}
	if err != nil {
		return folio.Chunk{}, "", fmt.Errorf("scan chunk: %w", err)
	}
	if parentID.Valid {
		c.ParentID = parentID.String
	}
	if metaJSON.Valid {
		_ = json.Unmarshal([]byte(metaJSON.String), &c.Meta)
	}
	return c, embJSON, nil
}

// --- Vector math ---

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
