package cluster

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"modelmesh/internal/protocol"
)

// Dial connects to a coordinator's cluster endpoint and announces the
// local actor's metadata via a JOIN frame before returning. This is the
// worker side of the transport.
func Dial(url string, meta protocol.ActorMetadata) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("cluster: dial %s: %w", url, err)
	}

	conn := NewConn(meta.ActorID, ws)
	join, err := EncodeJoin(meta)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Send(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cluster: send JOIN: %w", err)
	}
	return conn, nil
}

// Handler returns an http.HandlerFunc suitable for registering on a
// ServeMux at the coordinator's cluster endpoint.
func Handler(s *Server, handle func(peerID string, frame Frame)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ServeHTTP(w, r, handle)
	}
}
