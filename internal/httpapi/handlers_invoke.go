package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"modelmesh/internal/coordinator"
	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
)

// handleInvoke implements POST /api/invoke/{kind}/{name}: the generic
// dispatch surface. An unregistered actor yields 404; a timed-out
// invocation yields 504.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	name := r.PathValue("name")

	var payload InvokePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	messages, err := messagesFromInvokePayload(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req := protocol.InvokeRequest{
		TaskID: uuid.NewString(),
		Stream: payload.Stream,
		Data:   messages,
		Config: payload.Config,
	}

	if payload.Stream {
		s.dispatchStream(w, r, kind, name, req, nil)
		return
	}
	s.dispatchSync(w, r, kind, name, req)
}

// dispatchSync awaits exactly one terminal response and writes it as a
// single JSON body, matching scenario 1's
// {"content":[{"STRING":"<reply>"}]} shape.
func (s *Server) dispatchSync(w http.ResponseWriter, r *http.Request, kind, name string, req protocol.InvokeRequest) {
	ctx := r.Context()
	var chunks []entity.Value
	done := make(chan *protocol.ActorError, 1)

	err := s.Coordinator.StartInvoke(ctx, kind, name, req, func(resp protocol.InvokeResponse) {
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
	})
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	timeout := s.InvokeTimeout
	if timeout <= 0 {
		timeout = coordinator.DefaultTimeout
	}
	select {
	case actorErr := <-done:
		if actorErr != nil {
			respondActorError(w, *actorErr)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"content": chunks})
	case <-ctx.Done():
		s.Coordinator.Pending.Cancel(req.TaskID)
	case <-time.After(timeout + time.Second):
		s.Coordinator.Pending.Cancel(req.TaskID)
		respondFixed(w, http.StatusGatewayTimeout, "invocation timed out")
	}
}

func writeDispatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, coordinator.ErrNotFound) {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondError(w, http.StatusBadGateway, err)
}

func respondActorError(w http.ResponseWriter, ae protocol.ActorError) {
	switch ae.Kind {
	case protocol.ErrorBadRequest:
		respondError(w, http.StatusBadRequest, ae)
	case protocol.ErrorNetwork:
		respondError(w, http.StatusBadGateway, ae)
	default:
		if ae.Message == "timeout" {
			respondFixed(w, http.StatusGatewayTimeout, "invocation timed out")
			return
		}
		respondError(w, http.StatusInternalServerError, ae)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func respondFixed(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
