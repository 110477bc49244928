package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"modelmesh/internal/protocol"
)

// sseWriter wraps an http.ResponseWriter with SSE framing and a flush
// after every frame.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, true
}

func (s *sseWriter) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpapi: marshal SSE frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("httpapi: write SSE frame: %w", err)
	}
	s.f.Flush()
	return nil
}

// formatDelta renders one streamed delta into whatever JSON shape the
// caller's SSE surface expects (OpenAI chunk form, or a raw entity
// envelope for the generic /api/invoke surface).
type formatDelta func(taskID string, chunk protocol.InvokeResponse) any

// dispatchStream drains a streaming invocation's Success* (Finish|Failure)
// sequence onto an SSE response, flushing after every frame. If the client
// disconnects mid-stream, the write fails and the pending-task entry is
// canceled rather than left to time out.
func (s *Server) dispatchStream(w http.ResponseWriter, r *http.Request, kind, name string, req protocol.InvokeRequest, format formatDelta) {
	sse, ok := newSSEWriter(w)
	if !ok {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("httpapi: streaming not supported by response writer"))
		return
	}
	if format == nil {
		format = func(_ string, chunk protocol.InvokeResponse) any {
			return map[string]any{"content": chunk.Success}
		}
	}

	ctx := r.Context()
	frames := make(chan protocol.InvokeResponse, 16)
	done := make(chan struct{})

	err := s.Coordinator.StartInvoke(ctx, kind, name, req, func(resp protocol.InvokeResponse) {
		select {
		case frames <- resp:
		case <-done:
		}
		if resp.IsTerminal() {
			close(done)
		}
	})
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	for {
		select {
		case resp := <-frames:
			switch resp.Kind {
			case protocol.ResponseSuccess:
				if werr := sse.send(format(resp.TaskID, resp)); werr != nil {
					s.Coordinator.Pending.Cancel(req.TaskID)
					return
				}
			case protocol.ResponseFinish:
				_ = sse.send(format(resp.TaskID, resp))
				return
			case protocol.ResponseFailure:
				_ = sse.send(map[string]any{"error": resp.Error})
				return
			}
		case <-ctx.Done():
			s.Coordinator.Pending.Cancel(req.TaskID)
			return
		}
	}
}
