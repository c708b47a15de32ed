package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	folio "github.com/rindra/folio"
)

// ChunkStrategy selects how documents are chunked.
type ChunkStrategy int

const (
	// StrategyFlat produces a single level of embedded chunks.
	StrategyFlat ChunkStrategy = iota
	// StrategyParentChild produces large parent chunks (stored without
	// embeddings) and small embedded child chunks linked via ParentID.
	// Retrieval can then substitute the parent for its matched children.
	StrategyParentChild
)

// IngestResult holds the outcome of one ingest operation.
type IngestResult struct {
	DocumentID string
	Document   folio.Document
	Collection string
	ChunkCount int
	PageCount  int
}

// Ingestor runs the extract, chunk, embed, store pipeline into a collection.
// Page-structured inputs go through IngestPages so every chunk carries the
// page, filename, and file path needed for citations; everything else falls
// back to IngestFile and produces chunks without page metadata.
type Ingestor struct {
	store      folio.Store
	embedding  folio.EmbeddingProvider
	chunker    Chunker
	extractors map[ContentType]Extractor
	strategy   ChunkStrategy
	batchSize  int
	logger     *slog.Logger

	parentChunker Chunker
	childChunker  Chunker
}

// NewIngestor creates an Ingestor with defaults: flat strategy, recursive
// chunking, plain text / HTML / markdown extractors, batches of 64.
func NewIngestor(store folio.Store, emb folio.EmbeddingProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		embedding: emb,
		chunker:   NewRecursiveChunker(),
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      HTMLExtractor{},
			TypeMarkdown:  MarkdownExtractor{},
		},
		strategy:      StrategyFlat,
		batchSize:     64,
		logger:        slog.New(discardHandler{}),
		parentChunker: NewRecursiveChunker(WithMaxTokens(1024)),
		childChunker:  NewRecursiveChunker(WithMaxTokens(256)),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestText ingests plain text into a collection.
func (ing *Ingestor) IngestText(ctx context.Context, collection, text, source, title string) (IngestResult, error) {
	doc := folio.Document{
		ID:        folio.NewID(),
		Title:     title,
		Source:    source,
		Content:   text,
		CreatedAt: folio.NowUnix(),
	}
	chunks, err := ing.chunkAndEmbed(ctx, text, doc.ID, folio.ChunkMeta{})
	if err != nil {
		return IngestResult{}, err
	}
	return ing.finish(ctx, collection, doc, chunks, 0)
}

// IngestFile ingests file content into a collection, detecting the format
// from the filename extension. Extractors that support pages (PageExtractor)
// get the page-aware path automatically.
func (ing *Ingestor) IngestFile(ctx context.Context, collection string, content []byte, filename string) (IngestResult, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	ct := ContentTypeFromExtension(ext)

	extractor, ok := ing.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}

	if pe, ok := extractor.(PageExtractor); ok {
		pages, err := pe.ExtractPages(content)
		if err != nil {
			return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
		}
		return ing.IngestPages(ctx, collection, pages, filename, filename)
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
	}

	doc := folio.Document{
		ID:        folio.NewID(),
		Title:     filepath.Base(filename),
		Source:    filename,
		Content:   text,
		CreatedAt: folio.NowUnix(),
	}
	meta := folio.ChunkMeta{
		Filename: filepath.Base(filename),
		FilePath: filename,
	}
	chunks, err := ing.chunkAndEmbed(ctx, text, doc.ID, meta)
	if err != nil {
		return IngestResult{}, err
	}
	return ing.finish(ctx, collection, doc, chunks, 0)
}

// IngestReader reads everything from r and ingests it as filename.
func (ing *Ingestor) IngestReader(ctx context.Context, collection string, r io.Reader, filename string) (IngestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read: %w", err)
	}
	return ing.IngestFile(ctx, collection, data, filename)
}

// IngestPages ingests page-structured content. Every chunk produced from a
// page carries that page's number plus the filename and path, which is the
// only place citation metadata enters the system — chunks stored without it
// simply render as "no page information" later, never as an error.
func (ing *Ingestor) IngestPages(ctx context.Context, collection string, pages []Page, filename, filePath string) (IngestResult, error) {
	if len(pages) == 0 {
		return IngestResult{}, fmt.Errorf("ingest %s: no pages extracted", filename)
	}

	var full strings.Builder
	for _, p := range pages {
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(p.Text)
	}

	doc := folio.Document{
		ID:        folio.NewID(),
		Title:     filepath.Base(filename),
		Source:    filePath,
		Content:   full.String(),
		PageCount: pages[len(pages)-1].Number,
		CreatedAt: folio.NowUnix(),
	}

	var chunks []folio.Chunk
	for _, page := range pages {
		meta := folio.ChunkMeta{
			Page:     page.Number,
			Filename: filepath.Base(filename),
			FilePath: filePath,
		}
		pageChunks, err := ing.chunkAndEmbed(ctx, page.Text, doc.ID, meta)
		if err != nil {
			return IngestResult{}, fmt.Errorf("page %d: %w", page.Number, err)
		}
		for i := range pageChunks {
			pageChunks[i].ChunkIndex = len(chunks) + i
		}
		chunks = append(chunks, pageChunks...)
	}

	return ing.finish(ctx, collection, doc, chunks, len(pages))
}

func (ing *Ingestor) finish(ctx context.Context, collection string, doc folio.Document, chunks []folio.Chunk, pageCount int) (IngestResult, error) {
	if err := ing.store.CreateCollection(ctx, collection); err != nil {
		return IngestResult{}, fmt.Errorf("create collection %q: %w", collection, err)
	}
	if err := ing.store.StoreDocument(ctx, collection, doc, chunks); err != nil {
		return IngestResult{}, fmt.Errorf("store: %w", err)
	}

	ing.logger.Info("document ingested",
		"collection", collection,
		"document", doc.Title,
		"chunks", len(chunks),
		"pages", pageCount)

	return IngestResult{
		DocumentID: doc.ID,
		Document:   doc,
		Collection: collection,
		ChunkCount: len(chunks),
		PageCount:  pageCount,
	}, nil
}

// chunkAndEmbed chunks text per the configured strategy and embeds the
// chunks that need embeddings. meta is stamped onto every produced chunk.
func (ing *Ingestor) chunkAndEmbed(ctx context.Context, text, docID string, meta folio.ChunkMeta) ([]folio.Chunk, error) {
	if ing.strategy == StrategyParentChild {
		return ing.chunkParentChild(ctx, text, docID, meta)
	}
	return ing.chunkFlat(ctx, text, docID, meta)
}

func (ing *Ingestor) chunkFlat(ctx context.Context, text, docID string, meta folio.ChunkMeta) ([]folio.Chunk, error) {
	texts := ing.chunker.Chunk(text)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]folio.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = folio.Chunk{
			ID:         folio.NewID(),
			DocumentID: docID,
			Content:    t,
			ChunkIndex: i,
			Meta:       meta,
		}
	}
	if err := ing.batchEmbed(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// chunkParentChild builds two levels: parents stored without embeddings,
// children embedded and linked back via ParentID. Both levels carry the same
// citation metadata so parent substitution at query time keeps pages intact.
func (ing *Ingestor) chunkParentChild(ctx context.Context, text, docID string, meta folio.ChunkMeta) ([]folio.Chunk, error) {
	parentTexts := ing.parentChunker.Chunk(text)
	if len(parentTexts) == 0 {
		return nil, nil
	}

	var all, children []folio.Chunk
	idx := 0
	for _, pt := range parentTexts {
		parent := folio.Chunk{
			ID:         folio.NewID(),
			DocumentID: docID,
			Content:    pt,
			ChunkIndex: idx,
			Meta:       meta,
		}
		all = append(all, parent)
		idx++

		for _, ct := range ing.childChunker.Chunk(pt) {
			children = append(children, folio.Chunk{
				ID:         folio.NewID(),
				DocumentID: docID,
				ParentID:   parent.ID,
				Content:    ct,
				ChunkIndex: idx,
				Meta:       meta,
			})
			idx++
		}
	}

	if err := ing.batchEmbed(ctx, children); err != nil {
		return nil, err
	}
	return append(all, children...), nil
}

// batchEmbed embeds chunk contents in batches of batchSize.
func (ing *Ingestor) batchEmbed(ctx context.Context, chunks []folio.Chunk) error {
	for i := 0; i < len(chunks); i += ing.batchSize {
		end := min(i+ing.batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		embeddings, err := ing.embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		for j := range batch {
			if j < len(embeddings) {
				chunks[i+j].Embedding = embeddings[j]
			}
		}
	}
	return nil
}
