package observer

import (
	"context"
	"errors"
	"time"

	folio "github.com/rindra/folio"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	foliolog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Querier is the retrieval surface the observer instruments. It is satisfied
// by *folio.CollectionRetriever.
type Querier interface {
	Collection() string
	Query(ctx context.Context, queryText string, topK int) folio.QueryResult
}

var _ Querier = (*folio.CollectionRetriever)(nil)

// ObservedRetriever wraps a Querier with OTEL instrumentation.
//
// Query never returns an error by contract; a failed QueryResult is still
// recorded as an error span so retrieval failures show up in traces.
type ObservedRetriever struct {
	inner Querier
	inst  *Instruments
}

// WrapRetriever returns an instrumented retriever.
func WrapRetriever(inner Querier, inst *Instruments) *ObservedRetriever {
	return &ObservedRetriever{inner: inner, inst: inst}
}

var _ Querier = (*ObservedRetriever)(nil)

func (o *ObservedRetriever) Collection() string { return o.inner.Collection() }

func (o *ObservedRetriever) Query(ctx context.Context, queryText string, topK int) folio.QueryResult {
	collection := o.inner.Collection()
	ctx, span := o.inst.Tracer.Start(ctx, "retrieval.query", trace.WithAttributes(
		AttrCollection.String(collection),
		AttrTopK.Int(topK),
	))
	defer span.End()
	start := time.Now()

	res := o.inner.Query(ctx, queryText, topK)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if !res.Succeeded {
		status = "error"
		span.RecordError(errors.New(res.Err))
		span.SetStatus(codes.Error, res.Err)
	}

	span.SetAttributes(
		AttrChunkCount.Int(len(res.Chunks)),
		AttrAnswerLength.Int(len(res.Answer)),
	)

	o.inst.RetrievalQueries.Add(ctx, 1, metric.WithAttributes(
		AttrCollection.String(collection),
		attribute.String("status", status),
	))
	o.inst.RetrievalDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrCollection.String(collection),
	))

	// Structured log
	var rec foliolog.Record
	rec.SetSeverity(foliolog.SeverityInfo)
	if !res.Succeeded {
		rec.SetSeverity(foliolog.SeverityWarn)
	}
	rec.SetBody(foliolog.StringValue("retrieval completed"))
	rec.AddAttributes(
		foliolog.String("retrieval.collection", collection),
		foliolog.Int("retrieval.chunk_count", len(res.Chunks)),
		foliolog.Int("retrieval.answer_length", len(res.Answer)),
		foliolog.Float64("retrieval.duration_ms", durationMs),
		foliolog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)

	return res
}
