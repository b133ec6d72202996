package executive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/knowledge"
	"github.com/loglattice/orchestrator/llm"
	"github.com/loglattice/orchestrator/types"
)

// Worker is the Executive Worker (C4): bound to an LLM provider/model and a
// Knowledge Tools contract, it runs one evaluation per call to Evaluate,
// moving through retrieving -> reasoning -> writing-back before returning to
// idle.
type Worker struct {
	Provider llm.Provider
	Model    string
	Tools    *knowledge.Tools
	Logger   *zap.Logger
}

// New creates an Executive worker. logger may be nil (defaults to a no-op).
func New(provider llm.Provider, model string, tools *knowledge.Tools, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Provider: provider, Model: model, Tools: tools, Logger: logger}
}

// Evaluate runs one Executive evaluation cycle (§4.4): retrieve relevant
// knowledge, produce a verdict, and best-effort write the exchange back into
// the graph. The KnowledgeDocument it retrieved is returned alongside the
// verdict; the Orchestrator does not use it (its Prefetch runs its own
// vector search).
func (w *Worker) Evaluate(ctx context.Context, userQuery string, conversation []types.Message, currentSpeakerOutput string) (EvalVerdict, KnowledgeDocument) {
	doc := w.retrieve(ctx, userQuery)
	if err := ctx.Err(); err != nil {
		return defaultVerdict(doc), doc
	}

	v := w.verdict(ctx, conversation, currentSpeakerOutput, doc)

	if err := ctx.Err(); err != nil {
		// Cancellation observed after the verdict was produced: the caller
		// superseded or disconnected, so the graph must not be mutated (§5
		// cancellation semantics).
		return v, doc
	}
	w.writeback(detach(ctx), userQuery, currentSpeakerOutput)

	return v, doc
}

// detach strips ctx's cancellation while keeping its values, for the
// best-effort writeback path that must finish even after the caller's
// context is cancelled (§4.6.4: "in-flight writebacks complete on a
// best-effort background path").
func detach(ctx context.Context) context.Context {
	return detachedContext{ctx}
}

type detachedContext struct{ context.Context }

func (detachedContext) Deadline() (deadline time.Time, ok bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}                   { return nil }
func (detachedContext) Err() error                              { return nil }
