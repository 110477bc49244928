package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
)

// handleEmbeddings implements POST /v1/embeddings: each input string is
// dispatched as its own non-streaming invocation to the embedding actor
// named by "model", and the resulting FLOAT32ARRAY values are assembled
// into the OpenAI-shaped embeddings response.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var body embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	kind, name, err := splitModel(body.Model)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.Input) == 0 {
		respondError(w, http.StatusBadRequest, errMissingInput)
		return
	}

	ctx := r.Context()
	data := make([]embeddingDatum, len(body.Input))
	for i, text := range body.Input {
		vec, err := s.embedOne(ctx, kind, name, text)
		if err != nil {
			writeDispatchError(w, err)
			return
		}
		data[i] = embeddingDatum{Object: "embedding", Index: i, Embedding: vec}
	}

	respondJSON(w, http.StatusOK, embeddingsResponse{Object: "list", Model: body.Model, Data: data})
}

var errMissingInput = chatError("embeddings request requires at least one input")

func (s *Server) embedOne(ctx context.Context, kind, name, text string) ([]float32, error) {
	req := protocol.InvokeRequest{
		TaskID: uuid.NewString(),
		Stream: false,
		Data:   []entity.Value{entity.FromMessage("user", text)},
	}

	var vec []float32
	done := make(chan *protocol.ActorError, 1)
	err := s.Coordinator.StartInvoke(ctx, kind, name, req, func(resp protocol.InvokeResponse) {
		switch resp.Kind {
		case protocol.ResponseSuccess:
			for _, v := range resp.Success {
				if arr, err := v.AsFloat32Array(); err == nil {
					vec = arr
				}
			}
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
	})
	if err != nil {
		return nil, err
	}

	actorErr := <-done
	if actorErr != nil {
		return nil, *actorErr
	}
	return vec, nil
}
