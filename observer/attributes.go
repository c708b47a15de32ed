package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for observability spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrEmbedTextCount  = attribute.Key("llm.embed.text_count")
	AttrEmbedDimensions = attribute.Key("llm.embed.dimensions")

	AttrCollection   = attribute.Key("retrieval.collection")
	AttrTopK         = attribute.Key("retrieval.top_k")
	AttrChunkCount   = attribute.Key("retrieval.chunk_count")
	AttrAnswerLength = attribute.Key("retrieval.answer_length")
)
