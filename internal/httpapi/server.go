// Package httpapi implements the coordinator's HTTP surface: request
// intake, the OpenAI-compatible chat/embeddings translation, SSE
// streaming, and the small set of operator endpoints (/api/actors,
// /api/invoke, /api/user). Routes are registered with Go 1.22's
// method-and-pattern ServeMux syntax.
package httpapi

import (
	"net/http"
	"time"

	"modelmesh/internal/auth"
	"modelmesh/internal/coordinator"
	"modelmesh/internal/rag"
)

// Server wires the coordinator, auth surface, and optional retrieval
// augmentation to a ServeMux.
type Server struct {
	Coordinator   *coordinator.Coordinator
	Auth          *auth.Middleware
	SessionStore  *auth.Store
	PAT           *auth.PATIssuer
	OIDC          *auth.OIDC          // nil in single-token mode
	SingleToken   *auth.SingleToken   // nil in OIDC mode
	RAG           *rag.Augmenter      // nil if retrieval augmentation is disabled
	InvokeTimeout time.Duration

	mux *http.ServeMux
}

// NewServer builds a Server and registers every route.
func NewServer(s *Server) *Server {
	s.mux = http.NewServeMux()
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler, applying request logging and the auth
// guard ahead of routing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Auth.Require(withRequestLog(s.mux)).ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", handleHealth)
	s.mux.HandleFunc("GET /healthz", handleHealth)

	if s.OIDC != nil {
		s.mux.HandleFunc("GET /auth", s.OIDC.BeginHandler())
		s.mux.HandleFunc("GET /auth/callback", s.OIDC.CallbackHandler())
	}
	if s.SingleToken != nil {
		s.mux.HandleFunc("GET /login", s.SingleToken.LoginHandler())
	}

	s.mux.HandleFunc("GET /api/actors", s.handleListActors)
	s.mux.HandleFunc("POST /api/invoke/{kind}/{name}", s.handleInvoke)
	s.mux.HandleFunc("GET /api/user", s.handleUser)
	s.mux.HandleFunc("POST /api/user/personal-token", s.handlePersonalToken)

	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("POST /v1/embeddings", s.handleEmbeddings)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
