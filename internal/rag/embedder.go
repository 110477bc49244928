package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
)

// Dispatcher is the subset of *coordinator.Coordinator's StartInvoke this
// package depends on; kept as a function type so rag has no import-time
// dependency on the coordinator package.
type Dispatcher func(ctx context.Context, kind, name string, req protocol.InvokeRequest, deliver func(protocol.InvokeResponse)) error

// WorkerEmbedder implements Embedder by dispatching a non-streaming
// invocation to a registered embedding-kind actor and decoding its single
// FLOAT32ARRAY result. The prompt travels as a single user MESSAGE value
// in the request's data.
type WorkerEmbedder struct {
	Dispatch Dispatcher
	Kind     string
	Name     string
}

func NewWorkerEmbedder(dispatch Dispatcher, kind, name string) *WorkerEmbedder {
	return &WorkerEmbedder{Dispatch: dispatch, Kind: kind, Name: name}
}

// Embed dispatches prompt as a single-message invocation to the configured
// embedding actor and waits for its terminal response.
func (e *WorkerEmbedder) Embed(ctx context.Context, prompt string) ([]float32, error) {
	req := protocol.InvokeRequest{
		TaskID: uuid.NewString(),
		Stream: false,
		Data:   []entity.Value{entity.FromMessage("user", prompt)},
	}

	var chunks []entity.Value
	done := make(chan *protocol.ActorError, 1)
	deliver := func(resp protocol.InvokeResponse) {
		switch resp.Kind {
		case protocol.ResponseSuccess:
			chunks = append(chunks, resp.Success...)
		case protocol.ResponseFinish:
			select {
			case done <- nil:
			default:
			}
		case protocol.ResponseFailure:
			select {
			case done <- resp.Error:
			default:
			}
		}
	}

	if err := e.Dispatch(ctx, e.Kind, e.Name, req, deliver); err != nil {
		return nil, fmt.Errorf("rag: dispatch embed invocation: %w", err)
	}

	select {
	case actorErr := <-done:
		if actorErr != nil {
			return nil, fmt.Errorf("rag: embed actor error: %s", actorErr.Message)
		}
		return decodeEmbedding(chunks)
	case <-ctx.Done():
		return nil, fmt.Errorf("rag: embed invocation: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("rag: embed invocation timed out")
	}
}

func decodeEmbedding(chunks []entity.Value) ([]float32, error) {
	for _, v := range chunks {
		if vec, err := v.AsFloat32Array(); err == nil {
			return vec, nil
		}
	}
	return nil, fmt.Errorf("rag: embed response contained no FLOAT32ARRAY")
}
