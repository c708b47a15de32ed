// Package folio is a retrieval and citation library for document Q&A in Go.
//
// It provides the pieces between a vector index and a user-facing answer:
// per-collection retrieval with answer synthesis, federated queries across
// many collections, and citation resolution that turns retrieved chunks into
// human-readable, clickable page references.
//
// # Quick Start
//
// Query a single collection and print its sources:
//
//	store := sqlite.New("folio.db")
//	embedding := openaicompat.NewEmbedding(apiKey, model, baseURL)
//	llm := openaicompat.NewProvider(apiKey, model, baseURL)
//
//	retriever, err := folio.NewCollectionRetriever(ctx, store, embedding, llm, "handbook")
//	if err != nil {
//		return err
//	}
//	result := retriever.Query(ctx, "How do I file an expense report?", 0)
//
//	formatter := folio.NewFormatter()
//	fmt.Println(result.Answer)
//	fmt.Println(formatter.Styled(result.Chunks))
//
// Or fan a question out across every collection and keep the best answer:
//
//	fed, err := folio.NewFederation(ctx, store, embedding, llm, nil,
//		folio.WithConcurrency(4))
//	if err != nil {
//		return err
//	}
//	best := fed.QueryBest(ctx, "What is the refund policy?")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Store] — collection-scoped persistence with vector search
//   - [Provider] — LLM backend used for answer synthesis
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [Ranker] — replaceable best-answer selection policy
//
// # Included Implementations
//
// Storage: store/sqlite (local, pure Go), store/postgres (pgvector).
// Providers: provider/openaicompat (OpenAI-compatible APIs, including Azure).
// Ingestion: ingest (chunking + embedding pipeline), ingest/pdf (page-aware
// PDF extraction). Observability: observer (OpenTelemetry wrappers).
//
// See cmd/folio for a complete reference CLI.
package folio
