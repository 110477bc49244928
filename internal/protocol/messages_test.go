package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
)

func TestInvokeResponseRoundTrip(t *testing.T) {
	cases := []InvokeResponse{
		NewSuccess("t1", []entity.Value{entity.String("partial")}),
		NewFinish("t1"),
		NewFailure("t1", BadRequest("missing field")),
	}
	for _, r := range cases {
		b, err := json.Marshal(r)
		require.NoError(t, err)

		var out InvokeResponse
		require.NoError(t, json.Unmarshal(b, &out))
		assert.Equal(t, r.Kind, out.Kind)
		assert.Equal(t, r.TaskID, out.TaskID)
		assert.Equal(t, r.IsTerminal(), out.IsTerminal())
	}
}

func TestInvokeResponseRejectsUnknownKind(t *testing.T) {
	raw := []byte(`{"task_id":"t1","kind":"BOGUS"}`)
	var out InvokeResponse
	err := json.Unmarshal(raw, &out)
	assert.Error(t, err)
}

func TestInvokeResponseFailureRequiresError(t *testing.T) {
	raw := []byte(`{"task_id":"t1","kind":"FAILURE"}`)
	var out InvokeResponse
	err := json.Unmarshal(raw, &out)
	assert.Error(t, err)
}

func TestActorErrorMessage(t *testing.T) {
	err := NetworkError("connection reset")
	assert.Contains(t, err.Error(), "NETWORK_ERROR")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestActorMetadataJSONFields(t *testing.T) {
	m := ActorMetadata{
		Name:      "llama-70b",
		Kind:      "chat",
		ActorHost: "worker-1:7000",
		ActorID:   "abc-123",
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"actor_host"`)
	assert.NotContains(t, string(b), `"seed_host"`)
}
