package executive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/llm"
	"github.com/loglattice/orchestrator/types"
)

// evaluationDirective is the fixed system directive the Executive prompts
// its LLM with, per §4.4's verdict protocol.
const evaluationDirective = `You are the Executive worker in a dual-worker assistant. You observe the ` +
	`conversation and the user-facing Speaker's output so far, alongside retrieved knowledge. Decide ` +
	`whether the Speaker's output requires a correction. Respond with a JSON object containing exactly ` +
	`the keys "action" (either "none" or "interrupt"), "reason" (a short explanation), and "document" ` +
	`(corrective content to show the user when action is "interrupt", otherwise empty).`

// defaultVerdict is returned whenever the Executive's LLM response cannot be
// parsed as a verdict (§4.4: "on parse failure the verdict defaults to
// {action:none, reason:"parse failure", document:KnowledgeDocument.text}").
func defaultVerdict(doc KnowledgeDocument) EvalVerdict {
	return EvalVerdict{Action: ActionNone, Reason: "parse failure", Document: doc.Text}
}

// verdict runs the verdict protocol: prompt the Executive's LLM with the
// fixed directive, the conversation, the current Speaker output, and the
// retrieved KnowledgeDocument, then parse the JSON response.
func (w *Worker) verdict(ctx context.Context, conversation []types.Message, currentSpeakerOutput string, doc KnowledgeDocument) EvalVerdict {
	messages := make([]types.Message, 0, len(conversation)+2)
	messages = append(messages, types.NewSystemMessage(evaluationDirective))
	messages = append(messages, conversation...)
	messages = append(messages, types.NewUserMessage(fmt.Sprintf(
		"Speaker output so far:\n%s\n\nRetrieved knowledge:\n%s", currentSpeakerOutput, doc.Text)))

	resp, err := w.Provider.Completion(ctx, &llm.ChatRequest{Model: w.Model, Messages: messages})
	if err != nil {
		w.Logger.Warn("executive: verdict completion failed", zap.Error(err))
		return defaultVerdict(doc)
	}
	if len(resp.Choices) == 0 {
		w.Logger.Warn("executive: verdict completion returned no choices")
		return defaultVerdict(doc)
	}

	v, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		w.Logger.Warn("executive: verdict parse failed", zap.Error(err))
		return defaultVerdict(doc)
	}
	return v
}

// parseVerdict parses raw as an EvalVerdict, tolerating a fenced code block
// (```json ... ``` or ``` ... ```) wrapping the JSON object.
func parseVerdict(raw string) (EvalVerdict, error) {
	var v EvalVerdict
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, nil
	}

	body := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		return v, nil
	}

	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &v); err == nil {
			return v, nil
		}
	}

	return EvalVerdict{}, fmt.Errorf("executive: could not parse verdict from response")
}

// stripCodeFence removes a single leading/trailing markdown code fence,
// with or without a language tag, leaving the fenced body untouched.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
