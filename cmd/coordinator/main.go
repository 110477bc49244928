// Command coordinator runs the cluster coordinator: it accepts worker
// joins over the cluster transport, exposes the HTTP API (including the
// OpenAI-compatible surface), and correlates invocation responses back to
// waiting HTTP handlers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"modelmesh/internal/audit"
	"modelmesh/internal/auth"
	"modelmesh/internal/cluster"
	"modelmesh/internal/config"
	"modelmesh/internal/coordinator"
	"modelmesh/internal/httpapi"
	"modelmesh/internal/logging"
	"modelmesh/internal/notify"
	"modelmesh/internal/rag"
	"modelmesh/internal/retrycache"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.LoadCoordinator(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "coordinator: config:", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	coord := coordinator.New(cfg.InvokeTimeout)

	if cfg.RedisURL != "" {
		cache, err := retrycache.New(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("coordinator: connect retry cache")
		}
		coord.RetryCache = cache
	}
	if cfg.PostgresDSN != "" {
		auditLog, err := audit.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("coordinator: connect audit log")
		}
		coord.Audit = auditLog
	}

	var bus *notify.Bus
	if cfg.KafkaBrokers != "" {
		bus, err = notify.NewBus(cfg.KafkaBrokers, "modelmesh.membership")
		if err != nil {
			log.Warn().Err(err).Msg("coordinator: kafka membership bus disabled")
			bus = nil
		}
	}

	sessionStore := auth.NewStore(cfg.SessionKey)
	patIssuer := auth.NewPATIssuer(cfg.PersonalAccessTokenSecret)
	middleware := auth.NewMiddleware(sessionStore, patIssuer)

	httpSrv := &httpapi.Server{
		Coordinator:   coord,
		Auth:          middleware,
		SessionStore:  sessionStore,
		PAT:           patIssuer,
		InvokeTimeout: cfg.InvokeTimeout,
	}

	// OIDC/SingleToken and RAG must be set before NewServer registers
	// routes, since registerRoutes only wires /auth or /login when the
	// corresponding field is already non-nil.
	if cfg.OIDCEnabled {
		oidcClient, err := auth.NewOIDC(context.Background(), cfg.OIDCIssuerURL, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL, sessionStore)
		if err != nil {
			log.Fatal().Err(err).Msg("coordinator: configure OIDC")
		}
		httpSrv.OIDC = oidcClient
	} else {
		httpSrv.SingleToken = auth.NewSingleToken(cfg.SingleToken, sessionStore)
	}

	if cfg.QdrantAddr != "" {
		store, err := rag.NewQdrantStore(cfg.QdrantAddr, 6334, "modelmesh_context")
		if err != nil {
			log.Warn().Err(err).Msg("coordinator: retrieval augmentation disabled")
		} else {
			embedder := rag.NewWorkerEmbedder(coord.StartInvoke, "embed", "e5")
			httpSrv.RAG = rag.New(embedder, store, defaultRAGTemplate)
		}
	}

	server := httpapi.NewServer(httpSrv)

	mux := http.NewServeMux()
	mux.HandleFunc("/cluster", cluster.Handler(coord.Transport, coord.HandleFrame))
	mux.Handle("/", server)

	stop := make(chan struct{})
	go coord.WatchMembership(stop)
	go coord.Pending.Run(stop)
	if bus != nil {
		go forwardMembershipToKafka(coord, bus, stop)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("coordinator: listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("coordinator: serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	close(stop)
	_ = httpServer.Shutdown(context.Background())
}

// defaultRAGTemplate is a plain-text instruction splice; the
// prompt_format enum on the runner applies the actor's own template at
// decode time, so this only needs to carry {context}/{question}.
const defaultRAGTemplate = "Context information is below.\n{context}\nGiven the context information, answer the question: {question}"

func forwardMembershipToKafka(coord *coordinator.Coordinator, bus *notify.Bus, stop <-chan struct{}) {
	for {
		select {
		case ev, ok := <-coord.Transport.Events():
			if !ok {
				return
			}
			event := "left"
			if ev.Kind == cluster.EventNewMember {
				event = "joined"
			}
			msg := notify.MembershipMessage{
				Event:   event,
				ActorID: ev.Metadata.ActorID,
				Kind:    ev.Metadata.Kind,
				Name:    ev.Metadata.Name,
			}
			if err := bus.Publish(context.Background(), msg); err != nil {
				log.Warn().Err(err).Msg("coordinator: publish membership event")
			}
		case <-stop:
			return
		}
	}
}
