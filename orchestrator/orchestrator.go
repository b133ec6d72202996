// Package orchestrator is the Dual-Worker Orchestrator (C6): it launches
// the Speaker and Executive workers concurrently, races their completion,
// splices Executive interjections into the Speaker's output stream, and
// enforces the ordering and cancellation contract the client observes
// (spec.md §4.6).
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/graphstore"
	"github.com/loglattice/orchestrator/knowledge"
	"github.com/loglattice/orchestrator/sse"
	"github.com/loglattice/orchestrator/types"
	"github.com/loglattice/orchestrator/worker/executive"
	"github.com/loglattice/orchestrator/worker/speaker"
)

// defaultReevalStride is the character count between successive Executive
// evaluations within a single request, absent config (§9 resolved Open
// Question).
const defaultReevalStride = 100

// DefaultTimeout bounds an Orchestrator request end to end (§5).
const DefaultTimeout = 120 * time.Second

// Request is a normalized chat request (§4.6.1).
type Request struct {
	Model        string
	Messages     []types.Message
	Temperature  float32
	TopP         float32
	MaxTokens    int
	Tools        []types.ToolSchema
	ToolChoice   string
	Stop         []string
	Stream       bool
	JSONResponse bool // response_format.type == "json_object"
}

// Orchestrator wires one Speaker, one Executive, and the shared Knowledge
// Tools handle.
type Orchestrator struct {
	Speaker      *speaker.Worker
	Executive    *executive.Worker
	Tools        *knowledge.Tools
	ReevalStride int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// New creates an Orchestrator. reevalStride <= 0 falls back to the 100
// character default; timeout <= 0 falls back to 120s. logger may be nil.
func New(spk *speaker.Worker, exec *executive.Worker, tools *knowledge.Tools, reevalStride int, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if reevalStride <= 0 {
		reevalStride = defaultReevalStride
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{Speaker: spk, Executive: exec, Tools: tools, ReevalStride: reevalStride, Timeout: timeout, Logger: logger}
}

// executiveTask is one evaluation in the Executive chain: a cancellable
// handle plus a buffered result slot, consumed at most once (§5: "a chain
// of Executive evaluations, of which exactly one is 'latest'").
type executiveTask struct {
	cancel context.CancelFunc
	result chan executiveResult
}

type executiveResult struct {
	verdict executive.EvalVerdict
	doc     executive.KnowledgeDocument
}

func (o *Orchestrator) spawnExecutive(parent context.Context, userQuery string, conversation []types.Message, speakerOutput string) *executiveTask {
	ctx, cancel := context.WithCancel(parent)
	result := make(chan executiveResult, 1)
	go func() {
		v, doc := o.Executive.Evaluate(ctx, userQuery, conversation, speakerOutput)
		result <- executiveResult{verdict: v, doc: doc}
	}()
	return &executiveTask{cancel: cancel, result: result}
}

// lastUserContent returns the content of the last RoleUser message, or "".
func lastUserContent(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// prefetch runs §4.6.2 step 1: vectorSearch(Knowledge, userQuery, k=3,
// minScore=0.6), rendered as a single text block. Failures are logged and
// treated as zero results (`PrefetchFailed` -> log, proceed).
func (o *Orchestrator) prefetch(ctx context.Context, userQuery string) string {
	res, err := knowledge.Dispatch(ctx, o.Tools, knowledge.VectorSearchCall{
		Kind: graphstore.Knowledge, Text: userQuery, K: 3, MinScore: 0.6,
	})
	if err != nil {
		o.Logger.Warn("orchestrator: prefetch failed, proceeding without knowledge context", zap.Error(err))
		return ""
	}
	hits := res.([]graphstore.VectorHit)
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s — %s (score=%.2f)\n", h.Name, h.Description, h.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

// interruptionContent frames an Executive interruption per §4.6.2 step 3.5.
func interruptionContent(document string) string {
	return fmt.Sprintf("\n\n[Executive Interruption: %s]", document)
}

// toolCallInProgress reports whether d carries tool-call fragments without
// a finish reason, i.e. the client is still assembling a tool call the
// Orchestrator must not interleave an interruption chunk into (§4.6.3).
func toolCallInProgress(d speaker.Delta) bool {
	return len(d.ToolCallChunks) > 0 && d.FinishReason == ""
}

func toSSEToolCalls(calls []types.ToolCall) []sse.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]sse.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = sse.ToolCall{ID: c.ID}
		out[i].Function.Name = c.Name
		out[i].Function.Arguments = string(c.Arguments)
	}
	return out
}

// newRequestID is a seam for deterministic IDs in tests.
var newRequestID = func() string { return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano()) }

// runBothWorkers runs Speaker.Completion and Executive.Evaluate
// concurrently (§4.6.5: "Both workers run concurrently").
func (o *Orchestrator) runBothWorkers(ctx context.Context, req Request, userQuery, knowledgeText string) (string, string, error, executive.EvalVerdict) {
	augmented := speaker.AugmentMessages(req.Messages, knowledgeText)
	opts := speaker.ChatOptions{
		Temperature: req.Temperature, TopP: req.TopP, MaxTokens: req.MaxTokens,
		Tools: req.Tools, ToolChoice: req.ToolChoice, Stop: req.Stop,
	}

	var wg sync.WaitGroup
	var content, finishReason string
	var speakerErr error
	var verdict executive.EvalVerdict

	wg.Add(2)
	go func() {
		defer wg.Done()
		content, finishReason, speakerErr = o.Speaker.Completion(ctx, augmented, opts)
	}()
	go func() {
		defer wg.Done()
		verdict, _ = o.Executive.Evaluate(ctx, userQuery, req.Messages, "")
	}()
	wg.Wait()

	return content, finishReason, speakerErr, verdict
}

// Complete runs the non-streaming path (§4.6.5).
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*sse.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	userQuery := lastUserContent(req.Messages)
	knowledgeText := o.prefetch(ctx, userQuery)

	content, finishReason, speakerErr, verdict := o.runBothWorkers(ctx, req, userQuery, knowledgeText)
	if speakerErr != nil {
		return nil, fmt.Errorf("orchestrator: speaker failed: %w", speakerErr)
	}
	if verdict.Action == executive.ActionInterrupt {
		content += interruptionContent(verdict.Document)
	}
	if finishReason == "" {
		finishReason = "stop"
	}

	return &sse.Completion{
		ID: newRequestID(), Object: "chat.completion", Created: time.Now().Unix(), Model: req.Model,
		Choices: []sse.CompletionChoice{{Index: 0, Message: sse.Delta{Role: "assistant", Content: content}, FinishReason: finishReason}},
	}, nil
}

// Stream runs the streaming path (§4.6.2-§4.6.7), writing framed chunks to
// w and returning when the stream has terminated (normally, on a fatal
// Speaker error, or on ctx cancellation).
func (o *Orchestrator) Stream(ctx context.Context, req Request, w *sse.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	userQuery := lastUserContent(req.Messages)
	knowledgeText := o.prefetch(ctx, userQuery)
	augmented := speaker.AugmentMessages(req.Messages, knowledgeText)

	opts := speaker.ChatOptions{
		Temperature: req.Temperature, TopP: req.TopP, MaxTokens: req.MaxTokens,
		Tools: req.Tools, ToolChoice: req.ToolChoice, Stop: req.Stop,
	}
	deltas, err := o.Speaker.Stream(ctx, augmented, opts)
	if err != nil {
		_ = w.WriteError(err.Error())
		_ = w.Done()
		return fmt.Errorf("orchestrator: speaker failed to start: %w", err)
	}

	latest := o.spawnExecutive(ctx, userQuery, req.Messages, "")
	defer func() { latest.cancel() }()
	latestConsumed := false

	var accumulated strings.Builder
	lastStrideCrossed := 0
	interruptedOnce := false
	var pendingDocument *string
	finishReason := ""
	jsonSuppress := req.JSONResponse && req.Stream

	applyVerdict := func(v executive.EvalVerdict, inProgress bool) error {
		if v.Action != executive.ActionInterrupt || interruptedOnce {
			return nil
		}
		if inProgress {
			doc := v.Document
			pendingDocument = &doc
			return nil
		}
		interruptedOnce = true
		if jsonSuppress {
			return nil
		}
		return w.WriteDelta(0, sse.Delta{Content: interruptionContent(v.Document)}, "")
	}

loop:
	for {
		select {
		case <-ctx.Done():
			latest.cancel()
			return ctx.Err()
		case d, ok := <-deltas:
			if !ok {
				break loop
			}
			if d.Err != nil {
				o.Logger.Warn("orchestrator: speaker stream error", zap.Error(d.Err))
				_ = w.WriteError(d.Err.Error())
				_ = w.Done()
				return fmt.Errorf("orchestrator: speaker failed: %w", d.Err)
			}

			accumulated.WriteString(d.Content)

			if pendingDocument != nil && !toolCallInProgress(d) {
				doc := *pendingDocument
				pendingDocument = nil
				interruptedOnce = true
				if !jsonSuppress {
					if err := w.WriteDelta(0, sse.Delta{Content: interruptionContent(doc)}, ""); err != nil {
						return err
					}
				}
			}

			if !jsonSuppress && (d.Content != "" || len(d.ToolCallChunks) > 0) {
				if err := w.WriteDelta(0, sse.Delta{Content: d.Content, ToolCalls: toSSEToolCalls(d.ToolCallChunks)}, ""); err != nil {
					return err
				}
			}

			if n := accumulated.Len(); n/o.ReevalStride > lastStrideCrossed/o.ReevalStride {
				lastStrideCrossed = n
				latest.cancel()
				latest = o.spawnExecutive(ctx, userQuery, req.Messages, accumulated.String())
				latestConsumed = false
			}

			select {
			case res := <-latest.result:
				latestConsumed = true
				if err := applyVerdict(res.verdict, toolCallInProgress(d)); err != nil {
					return err
				}
			default:
			}

			if d.FinishReason != "" {
				finishReason = d.FinishReason
			}
		}
	}

	if pendingDocument != nil {
		interruptedOnce = true
		if !jsonSuppress {
			if err := w.WriteDelta(0, sse.Delta{Content: interruptionContent(*pendingDocument)}, ""); err != nil {
				return err
			}
		}
	}

	if !interruptedOnce && !latestConsumed {
		select {
		case res := <-latest.result:
			if err := applyVerdict(res.verdict, false); err != nil {
				return err
			}
		case <-ctx.Done():
		}
	}

	if jsonSuppress {
		if err := writeJSONModeResult(w, accumulated.String()); err != nil {
			return err
		}
	}

	if finishReason == "" {
		finishReason = "stop"
	}
	if err := w.WriteFinish(finishReason); err != nil {
		return err
	}
	return w.Done()
}
