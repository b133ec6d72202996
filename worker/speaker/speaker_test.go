package speaker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglattice/orchestrator/llm"
	"github.com/loglattice/orchestrator/types"
)

// fakeStreamProvider replays a fixed sequence of chunks for Stream and
// returns a canned completion for Completion.
type fakeStreamProvider struct {
	chunks []llm.StreamChunk
}

func (p *fakeStreamProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.ChatChoice{{Index: 0, FinishReason: "stop", Message: types.NewAssistantMessage("hello")}},
	}, nil
}
func (p *fakeStreamProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	out := make(chan llm.StreamChunk, len(p.chunks))
	for _, c := range p.chunks {
		out <- c
	}
	close(out)
	return out, nil
}
func (p *fakeStreamProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}
func (p *fakeStreamProvider) Name() string                       { return "fake" }
func (p *fakeStreamProvider) SupportsNativeFunctionCalling() bool { return false }
func (p *fakeStreamProvider) ListModels(ctx context.Context) ([]llm.Model, error) {
	return nil, nil
}

func TestStreamForwardsDeltasInOrder(t *testing.T) {
	provider := &fakeStreamProvider{chunks: []llm.StreamChunk{
		{Delta: types.Message{Content: "The "}},
		{Delta: types.Message{Content: "capital "}},
		{Delta: types.Message{Content: "is Paris."}, FinishReason: "stop"},
	}}
	w := New(provider, "speaker-test-model")

	out, err := w.Stream(context.Background(), []types.Message{types.NewUserMessage("capital of France?")}, ChatOptions{})
	require.NoError(t, err)

	var got string
	var finish string
	for d := range out {
		require.NoError(t, d.Err)
		got += d.Content
		if d.FinishReason != "" {
			finish = d.FinishReason
		}
	}
	assert.Equal(t, "The capital is Paris.", got)
	assert.Equal(t, "stop", finish)
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	provider := &fakeStreamProvider{chunks: []llm.StreamChunk{
		{Delta: types.Message{Content: "a"}},
		{Delta: types.Message{Content: "b"}, FinishReason: "stop"},
	}}
	w := New(provider, "speaker-test-model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := w.Stream(ctx, nil, ChatOptions{})
	require.NoError(t, err)

	// The consumer goroutine must exit promptly on a cancelled context
	// rather than blocking forever trying to deliver a Delta.
	select {
	case _, ok := <-out:
		_ = ok
	case <-context.Background().Done():
		t.Fatal("unreachable")
	}
}

func TestCompletionReturnsContentAndFinishReason(t *testing.T) {
	provider := &fakeStreamProvider{}
	w := New(provider, "speaker-test-model")

	content, finish, err := w.Completion(context.Background(), []types.Message{types.NewUserMessage("hi")}, ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "stop", finish)
}

func TestAugmentMessagesInsertsBeforeLastUser(t *testing.T) {
	msgs := []types.Message{
		types.NewSystemMessage("base directive"),
		types.NewUserMessage("what is rust?"),
	}
	out := AugmentMessages(msgs, "Rust is a systems language.")
	require.Len(t, out, 3)
	assert.Equal(t, types.RoleSystem, out[1].Role)
	assert.Equal(t, "Rust is a systems language.", out[1].Content)
	assert.Equal(t, types.RoleUser, out[2].Role)
}

func TestAugmentMessagesNoOpOnEmptyKnowledge(t *testing.T) {
	msgs := []types.Message{types.NewUserMessage("hi")}
	out := AugmentMessages(msgs, "")
	assert.Equal(t, msgs, out)
}

func TestAugmentMessagesAppendsWhenNoUserMessage(t *testing.T) {
	msgs := []types.Message{types.NewSystemMessage("base")}
	out := AugmentMessages(msgs, "extra context")
	require.Len(t, out, 2)
	assert.Equal(t, "extra context", out[1].Content)
}
