package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
)

func TestSplitModel(t *testing.T) {
	kind, name, err := splitModel("chat/mistral-7b")
	require.NoError(t, err)
	assert.Equal(t, "chat", kind)
	assert.Equal(t, "mistral-7b", name)

	_, _, err = splitModel("no-slash")
	assert.Error(t, err)

	_, _, err = splitModel("/missing-kind")
	assert.Error(t, err)
}

func TestMessagesFromInvokePayload_ChecksMessageThenInput(t *testing.T) {
	chat := InvokePayload{Data: map[string][]entity.Value{
		"message": {entity.FromMessage("user", "hi")},
	}}
	v, err := messagesFromInvokePayload(chat)
	require.NoError(t, err)
	require.Len(t, v, 1)

	embed := InvokePayload{Data: map[string][]entity.Value{
		"input": {entity.String("hello")},
	}}
	v, err = messagesFromInvokePayload(embed)
	require.NoError(t, err)
	require.Len(t, v, 1)

	_, err = messagesFromInvokePayload(InvokePayload{Data: map[string][]entity.Value{}})
	assert.Error(t, err)
}

func TestChatCompletionsRequest_ToConfig_ForwardsSetFieldsOnly(t *testing.T) {
	temp := 0.5
	topK := 40
	req := chatCompletionsRequest{
		Temperature: &temp,
		TopK:        &topK,
		Stop:        []string{"</s>"},
		Tools:       json.RawMessage(`[{"type":"function"}]`),
		ToolChoice:  json.RawMessage(`"auto"`),
	}
	cfg := req.toConfig()

	require.Contains(t, cfg, "temperature")
	assert.Equal(t, 0.5, cfg["temperature"].F64)
	require.Contains(t, cfg, "top_k")
	assert.Equal(t, int32(40), cfg["top_k"].I32)
	require.Contains(t, cfg, "stop")
	require.Contains(t, cfg, "tools")
	assert.JSONEq(t, `[{"type":"function"}]`, cfg["tools"].Str)
	require.Contains(t, cfg, "tool_choice")
	assert.Equal(t, `"auto"`, cfg["tool_choice"].Str)

	assert.NotContains(t, cfg, "max_tokens")
	assert.NotContains(t, cfg, "top_p")
	assert.NotContains(t, cfg, "presence_penalty")
	assert.NotContains(t, cfg, "frequency_penalty")
}

func TestChatCompletionsRequest_ToMessageValues(t *testing.T) {
	req := chatCompletionsRequest{Messages: []chatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}}
	values := req.toMessageValues()
	require.Len(t, values, 2)
	m0, err := values[0].AsMessage()
	require.NoError(t, err)
	assert.Equal(t, "user", m0.Role)
	assert.Equal(t, "hi", m0.Content)
}

func TestNewChunkAndNewResponse(t *testing.T) {
	chunk := newChunk("task-1", "chat/model", "hel", false)
	assert.Equal(t, "chatcmpl-task-1", chunk.ID)
	assert.Nil(t, chunk.Choices[0].FinishReason)
	assert.Equal(t, "hel", chunk.Choices[0].Delta.Content)

	done := newChunk("task-1", "chat/model", "", true)
	require.NotNil(t, done.Choices[0].FinishReason)
	assert.Equal(t, "stop", *done.Choices[0].FinishReason)

	resp := newResponse("task-2", "chat/model", "full reply")
	assert.Equal(t, "chat.completion", resp.Object)
	assert.Equal(t, "full reply", resp.Choices[0].Message.Content)
}
