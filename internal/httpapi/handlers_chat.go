package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
	"modelmesh/internal/rag"
)

// handleChatCompletions implements POST /v1/chat/completions: split
// "model" into kind/name, translate messages into MESSAGE entity values,
// forward every sampling/tool field verbatim as config, then either await
// one aggregated response or bridge an SSE stream.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var body chatCompletionsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	kind, name, err := splitModel(body.Model)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(body.Messages) == 0 {
		respondError(w, http.StatusBadRequest, errMissingMessages)
		return
	}

	if s.RAG != nil {
		if err := s.applyRAG(r.Context(), &body); err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
	}

	req := protocol.InvokeRequest{
		TaskID: uuid.NewString(),
		Stream: body.Stream,
		Data:   body.toMessageValues(),
		Config: body.toConfig(),
	}

	if !body.Stream {
		s.dispatchChatSync(w, r, kind, name, body.Model, req)
		return
	}
	s.dispatchStream(w, r, kind, name, req, func(taskID string, chunk protocol.InvokeResponse) any {
		if chunk.Kind == protocol.ResponseFinish {
			return newChunk(taskID, body.Model, "", true)
		}
		delta := ""
		for _, v := range chunk.Success {
			if s, err := v.AsString(); err == nil {
				delta += s
			}
		}
		return newChunk(taskID, body.Model, delta, false)
	})
}

var errMissingMessages = chatError("chat completion request requires at least one message")

type chatError string

func (e chatError) Error() string { return string(e) }

func (s *Server) dispatchChatSync(w http.ResponseWriter, r *http.Request, kind, name, model string, req protocol.InvokeRequest) {
	ctx := r.Context()
	var content string
	done := make(chan *protocol.ActorError, 1)

	err := s.Coordinator.StartInvoke(ctx, kind, name, req, func(resp protocol.InvokeResponse) {
		switch resp.Kind {
		case protocol.ResponseSuccess:
			for _, v := range resp.Success {
				if str, err := v.AsString(); err == nil {
					content += str
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
		writeDispatchError(w, err)
		return
	}

	select {
	case actorErr := <-done:
		if actorErr != nil {
			respondActorError(w, *actorErr)
			return
		}
		respondJSON(w, http.StatusOK, newResponse(req.TaskID, model, content))
	case <-ctx.Done():
		s.Coordinator.Pending.Cancel(req.TaskID)
	}
}

// applyRAG embeds the last user message, finds retrieval context, and
// replaces that message's content with the spliced template.
func (s *Server) applyRAG(ctx context.Context, body *chatCompletionsRequest) error {
	if len(body.Messages) == 0 {
		return nil
	}
	last := body.Messages[len(body.Messages)-1]
	messages := make([]entity.Message, len(body.Messages))
	for i, m := range body.Messages {
		messages[i] = entity.Message{Role: m.Role, Content: m.Content}
	}

	augmented, err := s.RAG.Augment(ctx, last.Content)
	if err != nil {
		return err
	}
	spliced := rag.SpliceLastMessage(messages, augmented)
	for i, m := range spliced {
		body.Messages[i].Content = m.Content
	}
	return nil
}
