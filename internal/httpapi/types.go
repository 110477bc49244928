package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"modelmesh/internal/entity"
)

// InvokePayload is the JSON body accepted by POST /api/invoke/{kind}/{name}:
// a generic entity map plus optional per-call config.
type InvokePayload struct {
	Data   map[string][]entity.Value `json:"data"`
	Config map[string]entity.Value   `json:"config,omitempty"`
	Stream bool                      `json:"stream,omitempty"`
}

// messagesFromInvokePayload reads a chat payload under "message" and an
// embed payload under "input". Both keys are checked explicitly rather
// than guessed from the actor kind, so a caller using either name works.
func messagesFromInvokePayload(p InvokePayload) ([]entity.Value, error) {
	if v, ok := p.Data["message"]; ok {
		return v, nil
	}
	if v, ok := p.Data["input"]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("request data must contain a %q or %q column", "message", "input")
}

// chatCompletionsRequest is the canonical OpenAI chat-completions request
// schema. model is "{kind}/{name}"; every sampling and tool-related field
// is forwarded into InvokeRequest.Config verbatim.
type chatCompletionsRequest struct {
	Model            string           `json:"model"`
	Messages         []chatMessage    `json:"messages"`
	Stream           bool             `json:"stream,omitempty"`
	MaxTokens        *int             `json:"max_tokens,omitempty"`
	Temperature      *float64         `json:"temperature,omitempty"`
	TopP             *float64         `json:"top_p,omitempty"`
	TopK             *int             `json:"top_k,omitempty"`
	Stop             []string         `json:"stop,omitempty"`
	PresencePenalty  *float64         `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64         `json:"frequency_penalty,omitempty"`
	Tools            json.RawMessage  `json:"tools,omitempty"`
	ToolChoice       json.RawMessage  `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// splitModel splits "{kind}/{name}" into its two parts.
func splitModel(model string) (kind, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("model must be of the form kind/name, got %q", model)
	}
	return parts[0], parts[1], nil
}

// toConfig carries every forwarded sampling/tool field into the generic
// config map the runner and dispatch layer consume, skipping unset
// pointers so the worker's defaults apply.
func (r chatCompletionsRequest) toConfig() map[string]entity.Value {
	cfg := make(map[string]entity.Value)
	if r.MaxTokens != nil {
		cfg["max_tokens"] = entity.I32(int32(*r.MaxTokens))
	}
	if r.Temperature != nil {
		cfg["temperature"] = entity.F64(*r.Temperature)
	}
	if r.TopP != nil {
		cfg["top_p"] = entity.F64(*r.TopP)
	}
	if r.TopK != nil {
		cfg["top_k"] = entity.I32(int32(*r.TopK))
	}
	if len(r.Stop) > 0 {
		arr := make([]entity.Value, len(r.Stop))
		for i, s := range r.Stop {
			arr[i] = entity.String(s)
		}
		cfg["stop"] = entity.Array(arr)
	}
	if r.PresencePenalty != nil {
		cfg["presence_penalty"] = entity.F64(*r.PresencePenalty)
	}
	if r.FrequencyPenalty != nil {
		cfg["frequency_penalty"] = entity.F64(*r.FrequencyPenalty)
	}
	if len(r.Tools) > 0 {
		cfg["tools"] = entity.String(string(r.Tools))
	}
	if len(r.ToolChoice) > 0 {
		cfg["tool_choice"] = entity.String(string(r.ToolChoice))
	}
	return cfg
}

func (r chatCompletionsRequest) toMessageValues() []entity.Value {
	out := make([]entity.Value, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = entity.FromMessage(m.Role, m.Content)
	}
	return out
}

// chatCompletionChunk is one OpenAI-shaped streaming SSE frame.
type chatCompletionChunk struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
}

type chatCompletionChoice struct {
	Index        int               `json:"index"`
	Delta        *chatMessageDelta `json:"delta,omitempty"`
	Message      *chatMessage      `json:"message,omitempty"`
	FinishReason *string           `json:"finish_reason"`
}

type chatMessageDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

func newChunk(taskID, model, delta string, finished bool) chatCompletionChunk {
	var reason *string
	if finished {
		r := "stop"
		reason = &r
	}
	return chatCompletionChunk{
		ID:     "chatcmpl-" + taskID,
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Delta:        &chatMessageDelta{Content: delta},
			FinishReason: reason,
		}},
	}
}

// chatCompletionResponse is the non-streaming OpenAI-shaped response.
type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
}

func newResponse(taskID, model, content string) chatCompletionResponse {
	reason := "stop"
	return chatCompletionResponse{
		ID:     "chatcmpl-" + taskID,
		Object: "chat.completion",
		Model:  model,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      &chatMessage{Role: "assistant", Content: content},
			FinishReason: &reason,
		}},
	}
}

// embeddingsRequest is the OpenAI-compatible embeddings request body.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Object string          `json:"object"`
	Model  string           `json:"model"`
	Data   []embeddingDatum `json:"data"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}
