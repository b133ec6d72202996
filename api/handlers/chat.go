package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/api"
	"github.com/loglattice/orchestrator/orchestrator"
	"github.com/loglattice/orchestrator/sse"
	"github.com/loglattice/orchestrator/types"
)

// ChatHandler serves POST /v1/chat/completions against the Dual-Worker
// Orchestrator, in place of the teacher's direct llm.Provider pass-through
// (spec.md §6.1).
type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
}

// NewChatHandler creates a chat completions handler.
func NewChatHandler(o *orchestrator.Orchestrator, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{orchestrator: o, logger: logger}
}

// HandleCompletion dispatches to the streaming or non-streaming path
// depending on the request's "stream" field.
func (h *ChatHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if apiErr := h.validateChatRequest(&req); apiErr != nil {
		writeOpenAIError(w, apiErr)
		return
	}

	orchReq := h.convertToOrchestratorRequest(&req)

	if req.Stream {
		h.handleStream(w, r, orchReq)
		return
	}
	h.handleComplete(w, r, orchReq)
}

func (h *ChatHandler) handleComplete(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	resp, err := h.orchestrator.Complete(r.Context(), req)
	if err != nil {
		h.logger.Error("chat completion failed", zap.Error(err))
		writeOpenAIError(w, &openAIError{
			status: http.StatusBadGateway, errType: "upstream_error", code: "speaker_failed", message: err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	writer, err := sse.NewWriter(w, id, req.Model)
	if err != nil {
		writeOpenAIError(w, &openAIError{
			status: http.StatusInternalServerError, errType: "internal_error", code: "streaming_unsupported", message: err.Error(),
		})
		return
	}

	if err := h.orchestrator.Stream(r.Context(), req, writer); err != nil {
		h.logger.Warn("chat stream ended with error", zap.Error(err))
	}
}

// validateChatRequest applies spec.md §6.1's request validation: a missing
// or empty "messages" array is rejected with the OpenAI-shaped
// invalid_request_error / invalid_messages / "messages" triple.
func (h *ChatHandler) validateChatRequest(req *api.ChatRequest) *openAIError {
	if len(req.Messages) == 0 {
		return &openAIError{
			status: http.StatusBadRequest, errType: "invalid_request_error",
			code: "invalid_messages", param: "messages", message: "messages is required and must not be empty",
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return &openAIError{
			status: http.StatusBadRequest, errType: "invalid_request_error",
			code: "invalid_temperature", param: "temperature", message: "temperature must be between 0 and 2",
		}
	}
	if req.TopP < 0 || req.TopP > 1 {
		return &openAIError{
			status: http.StatusBadRequest, errType: "invalid_request_error",
			code: "invalid_top_p", param: "top_p", message: "top_p must be between 0 and 1",
		}
	}
	return nil
}

func (h *ChatHandler) convertToOrchestratorRequest(req *api.ChatRequest) orchestrator.Request {
	messages := make([]types.Message, len(req.Messages))
	for i, m := range req.Messages {
		toolCalls := make([]types.ToolCall, len(m.ToolCalls))
		for j, tc := range m.ToolCalls {
			toolCalls[j] = types.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		}
		messages[i] = types.Message{
			Role:       types.Role(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCalls:  toolCalls,
			ToolCallID: m.ToolCallID,
		}
	}
	tools := make([]types.ToolSchema, len(req.Tools))
	for i, t := range req.Tools {
		tools[i] = types.ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}

	jsonResponse := req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object"

	return orchestrator.Request{
		Model: req.Model, Messages: messages,
		Temperature: req.Temperature, TopP: req.TopP, MaxTokens: req.MaxTokens,
		Tools: tools, ToolChoice: req.ToolChoice, Stop: req.Stop,
		Stream: req.Stream, JSONResponse: jsonResponse,
	}
}

// openAIError is the internal representation of an OpenAI-shaped error
// response body, kept local to this handler rather than folded into
// types.Error: spec.md's external interface speaks OpenAI's
// {"error":{"message","type","param","code"}} envelope, which is a
// different shape than the framework-wide Response/ErrorInfo envelope
// used by the ambient health/debug endpoints.
type openAIError struct {
	status  int
	errType string
	code    string
	param   string
	message string
}

func writeOpenAIError(w http.ResponseWriter, e *openAIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	body := map[string]any{"error": map[string]any{
		"message": e.message, "type": e.errType, "param": e.param, "code": e.code,
	}}
	_ = json.NewEncoder(w).Encode(body)
}
