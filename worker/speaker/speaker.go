// Package speaker is the Speaker Worker (C5): it streams the user-facing
// token sequence from the configured Speaker LLM, optionally augmented with
// retrieved knowledge context.
package speaker

import (
	"context"
	"fmt"

	"github.com/loglattice/orchestrator/llm"
	"github.com/loglattice/orchestrator/types"
)

// Delta is one item of the Speaker's observable output sequence: finite,
// non-restartable, and must be fully drained unless cancelled.
type Delta struct {
	Content        string
	ToolCallChunks []types.ToolCall
	FinishReason   string // empty until the final delta
	Err            error
}

// Worker wraps an llm.Provider configured with SPEAKER_MODEL.
type Worker struct {
	Provider llm.Provider
	Model    string
}

// New creates a Speaker worker bound to provider/model.
func New(provider llm.Provider, model string) *Worker {
	return &Worker{Provider: provider, Model: model}
}

// ChatOptions carries the request fields the Speaker forwards unchanged to
// the underlying LLM (spec.md §6.1).
type ChatOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	Tools       []types.ToolSchema
	ToolChoice  string
	Stop        []string
}

// AugmentMessages inserts a system message carrying knowledgeText
// immediately before the last user message, per §4.6.2 step 1 / §4.5. A
// blank knowledgeText leaves messages unchanged.
func AugmentMessages(messages []types.Message, knowledgeText string) []types.Message {
	if knowledgeText == "" {
		return messages
	}
	lastUser := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser == -1 {
		return append(messages, types.Message{Role: types.RoleSystem, Content: knowledgeText})
	}

	out := make([]types.Message, 0, len(messages)+1)
	out = append(out, messages[:lastUser]...)
	out = append(out, types.Message{Role: types.RoleSystem, Content: knowledgeText})
	out = append(out, messages[lastUser:]...)
	return out
}

// Stream starts the Speaker's token stream. The returned channel is closed
// after the final Delta (FinishReason set) or after an Err Delta.
func (w *Worker) Stream(ctx context.Context, messages []types.Message, opts ChatOptions) (<-chan Delta, error) {
	req := &llm.ChatRequest{
		Model:       w.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Tools:       opts.Tools,
		ToolChoice:  opts.ToolChoice,
		Stop:        opts.Stop,
	}

	chunks, err := w.Provider.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("speaker: start stream: %w", err)
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunks:
				if !ok {
					return
				}
				if chunk.Err != nil {
					select {
					case out <- Delta{Err: chunk.Err}:
					case <-ctx.Done():
					}
					return
				}
				d := Delta{
					Content:        chunk.Delta.Content,
					ToolCallChunks: chunk.Delta.ToolCalls,
					FinishReason:   chunk.FinishReason,
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
				if chunk.FinishReason != "" {
					return
				}
			}
		}
	}()
	return out, nil
}

// Completion runs a non-streaming completion for non-streaming mode (§4.6.5).
func (w *Worker) Completion(ctx context.Context, messages []types.Message, opts ChatOptions) (string, string, error) {
	req := &llm.ChatRequest{
		Model:       w.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Tools:       opts.Tools,
		ToolChoice:  opts.ToolChoice,
		Stop:        opts.Stop,
	}
	resp, err := w.Provider.Completion(ctx, req)
	if err != nil {
		return "", "", fmt.Errorf("speaker: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("speaker: completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, resp.Choices[0].FinishReason, nil
}
