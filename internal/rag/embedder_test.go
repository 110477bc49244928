package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
)

// successThenFinish mimics coordinator.Coordinator.StartInvoke's contract: a
// Success chunk carrying the embedding, followed by a terminal Finish.
func successThenFinish(vec []float32) Dispatcher {
	return func(ctx context.Context, kind, name string, req protocol.InvokeRequest, deliver func(protocol.InvokeResponse)) error {
		deliver(protocol.NewSuccess(req.TaskID, []entity.Value{entity.Float32Array(vec)}))
		deliver(protocol.NewFinish(req.TaskID))
		return nil
	}
}

func failingDispatch(msg string) Dispatcher {
	return func(ctx context.Context, kind, name string, req protocol.InvokeRequest, deliver func(protocol.InvokeResponse)) error {
		deliver(protocol.NewFailure(req.TaskID, protocol.FatalError(msg)))
		return nil
	}
}

func TestWorkerEmbedder_Embed_AccumulatesSuccessThenResolvesOnFinish(t *testing.T) {
	e := NewWorkerEmbedder(successThenFinish([]float32{0.1, 0.2, 0.3}), "embed", "e5")

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestWorkerEmbedder_Embed_PropagatesActorFailure(t *testing.T) {
	e := NewWorkerEmbedder(failingDispatch("model not loaded"), "embed", "e5")

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestWorkerEmbedder_Embed_PropagatesDispatchError(t *testing.T) {
	dispatchErr := fmt.Errorf("no actor registered")
	e := NewWorkerEmbedder(func(ctx context.Context, kind, name string, req protocol.InvokeRequest, deliver func(protocol.InvokeResponse)) error {
		return dispatchErr
	}, "embed", "e5")

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
}
