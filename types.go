package folio

// --- Domain types ---

// Document is a source document stored in a collection.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	PageCount int    `json:"page_count,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// ChunkMeta carries citation metadata for a chunk. Zero values mean the
// field is absent; pages are 1-based.
type ChunkMeta struct {
	Page      int    `json:"page,omitempty"`
	StartPage int    `json:"start_page,omitempty"`
	Filename  string `json:"filename,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
}

// Chunk is a retrieved unit of document content plus citation metadata.
// Chunks are produced by the ingest pipeline and owned by the store; the
// retrieval layer only reads them.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
	Meta       ChunkMeta `json:"meta"`
}

// ScoredChunk pairs a chunk with its similarity score in [0, 1].
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// PageRange is an inclusive run of consecutive page numbers.
// Start <= End always holds for ranges produced by this package.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CitationSet is the merged, per-document set of page ranges derived from a
// batch of chunks. It is built once per retrieval via ResolveCitations and
// consumed by the Formatter.
type CitationSet struct {
	Filename string      `json:"filename"`
	FilePath string      `json:"file_path,omitempty"`
	Ranges   []PageRange `json:"ranges"`
}

// QueryResult is the outcome of querying one collection.
// When Succeeded is false, Answer is empty, Chunks is nil, and Err carries
// the failure message; Err is empty otherwise.
type QueryResult struct {
	Answer     string  `json:"answer"`
	Chunks     []Chunk `json:"chunks,omitempty"`
	Collection string  `json:"collection"`
	Succeeded  bool    `json:"succeeded"`
	Err        string  `json:"error,omitempty"`
}

// FederatedResult holds per-collection results in query (insertion) order.
// Each query task writes exactly one entry it alone owns, so the value is
// safe to read as soon as QueryAll returns.
type FederatedResult struct {
	order   []string
	entries []QueryResult
}

// Collections returns collection names in the order they were queried.
func (fr FederatedResult) Collections() []string { return fr.order }

// Len returns the number of per-collection results.
func (fr FederatedResult) Len() int { return len(fr.entries) }

// Get returns the result for the named collection.
func (fr FederatedResult) Get(name string) (QueryResult, bool) {
	for i, n := range fr.order {
		if n == name {
			return fr.entries[i], true
		}
	}
	return QueryResult{}, false
}

// Results returns all results in query order.
func (fr FederatedResult) Results() []QueryResult { return fr.entries }

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}
