package cluster

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts worker connections on a single HTTP endpoint, wrapping
// each one in a fresh *Conn that ServeHTTP registers and reads from. It is
// the coordinator side of the transport.
type Server struct {
	mu    sync.Mutex
	peers map[string]*Conn

	events chan MembershipEvent
}

func NewServer() *Server {
	return &Server{
		peers:  make(map[string]*Conn),
		events: make(chan MembershipEvent, 64),
	}
}

// Events delivers NewMember/MemberLeft notifications as they happen.
func (s *Server) Events() <-chan MembershipEvent { return s.events }

// ServeHTTP upgrades the request to a websocket connection, reads the peer's
// JOIN frame to learn its metadata, registers it, and then blocks pumping
// inbound frames to handle until the connection drops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request, handle func(peerID string, frame Frame)) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("cluster: upgrade failed")
		return
	}

	peerID := uuid.NewString()
	conn := NewConn(peerID, ws)

	joinFrame, err := conn.Recv()
	if err != nil || joinFrame.Kind != FrameJoin {
		log.Warn().Str("peer_id", peerID).Msg("cluster: peer did not send JOIN first")
		conn.Close()
		return
	}
	meta, err := joinFrame.DecodeJoin()
	if err != nil {
		log.Warn().Err(err).Str("peer_id", peerID).Msg("cluster: malformed JOIN")
		conn.Close()
		return
	}

	s.mu.Lock()
	s.peers[peerID] = conn
	s.mu.Unlock()

	s.events <- MembershipEvent{Kind: EventNewMember, PeerID: peerID, Metadata: meta}

	defer func() {
		s.mu.Lock()
		delete(s.peers, peerID)
		s.mu.Unlock()
		conn.Close()
		s.events <- MembershipEvent{Kind: EventMemberLeft, PeerID: peerID, Metadata: meta}
	}()

	for {
		frame, err := conn.Recv()
		if err != nil {
			return
		}
		handle(peerID, frame)
	}
}

// Send delivers a frame to a specific connected peer.
func (s *Server) Send(peerID string, frame Frame) error {
	s.mu.Lock()
	conn, ok := s.peers[peerID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cluster: peer %s not connected", peerID)
	}
	return conn.Send(frame)
}

// Peers returns the currently connected peer IDs.
func (s *Server) Peers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.peers))
	for id := range s.peers {
		out = append(out, id)
	}
	return out
}
