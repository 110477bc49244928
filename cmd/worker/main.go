// Command worker runs one actor: it fetches its model artifacts, announces
// itself to a coordinator over the cluster transport, and serves decode
// invocations through a single-goroutine dispatcher until the connection
// drops or the process is signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"modelmesh/internal/config"
	"modelmesh/internal/logging"
	"modelmesh/internal/modelhub"
	"modelmesh/internal/protocol"
	"modelmesh/internal/runner"
	"modelmesh/internal/worker"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: worker <spawn|init> [flags]")
		os.Exit(1)
	}

	config.LoadDotEnv()

	switch os.Args[1] {
	case "spawn":
		runSpawn(os.Args[2:])
	case "init":
		runInit(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "worker: unknown subcommand %q (want spawn or init)\n", os.Args[1])
		os.Exit(1)
	}
}

// runInit pre-fetches an actor's model artifacts into the hub cache without
// starting any transport, so a deployment can warm a node's cache ahead of
// time.
func runInit(args []string) {
	cfg, err := config.LoadWorkerSpawn(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker init: config:", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	spec, hub, err := resolveSpec(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("worker init: resolve actor spec")
	}

	ctx := context.Background()
	if _, err := fetchModelFiles(ctx, hub, spec, cfg.HFToken); err != nil {
		log.Fatal().Err(err).Msg("worker init: fetch model artifacts")
	}
	log.Info().Str("kind", spec.Kind).Str("name", spec.Name).Msg("worker init: artifacts cached")
}

// runSpawn fetches an actor's model artifacts, builds its runner, announces
// it to the coordinator, and pumps invocations until the connection drops
// or the process receives SIGINT/SIGTERM.
func runSpawn(args []string) {
	cfg, err := config.LoadWorkerSpawn(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker spawn: config:", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	spec, hub, err := resolveSpec(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("worker spawn: resolve actor spec")
	}

	ctx := context.Background()
	modelPath, tokenizerPath, err := fetchModelFiles(ctx, hub, spec, cfg.HFToken)
	if err != nil {
		log.Fatal().Err(err).Msg("worker spawn: fetch model artifacts")
	}

	backend, tokenizer, err := buildBackend(spec, modelPath, tokenizerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("worker spawn: build model backend")
	}

	runnerSpec := runnerSpecFromActorSpec(spec)
	r := runner.New(backend, tokenizer, runnerSpec)

	meta := actorMetadata(cfg, spec)
	node := worker.NewNode(meta, r)

	conn, err := worker.Announce(cfg.CoordinatorURL, meta)
	if err != nil {
		log.Fatal().Err(err).Msg("worker spawn: announce to coordinator")
	}
	defer conn.Close()

	stop := make(chan struct{})
	go node.Run(stop)

	pumpErr := make(chan error, 1)
	go func() { pumpErr <- worker.Pump(conn, node) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-pumpErr:
		log.Warn().Err(err).Msg("worker spawn: cluster connection closed")
	case <-sig:
		log.Info().Msg("worker spawn: shutting down")
	}
	close(stop)
}

func resolveSpec(cfg *config.Worker) (config.ActorSpec, *modelhub.Client, error) {
	spec, err := config.LoadActorSpec(cfg.SpecSource)
	if err != nil {
		return spec, nil, err
	}
	cacheDir := os.Getenv("MODELMESH_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = ".cache/modelmesh"
	}
	hub := modelhub.New(cacheDir, "")
	return spec, hub, nil
}

func fetchModelFiles(ctx context.Context, hub *modelhub.Client, spec config.ActorSpec, token string) (modelPath, tokenizerPath string, err error) {
	if modelhub.IsShardedIndex(spec.ModelFile) {
		paths, err := hub.GetSharded(ctx, spec.ModelRepo, spec.ModelFile, spec.Revision, token)
		if err != nil {
			return "", "", fmt.Errorf("worker: fetch sharded model: %w", err)
		}
		if len(paths) == 0 {
			return "", "", fmt.Errorf("worker: sharded model index named no shards")
		}
		modelPath = paths[0]
	} else {
		modelPath, err = hub.Get(ctx, spec.ModelRepo, spec.ModelFile, spec.Revision, token)
		if err != nil {
			return "", "", fmt.Errorf("worker: fetch model: %w", err)
		}
	}

	tokenizerRepo := spec.TokenizerRepo
	if tokenizerRepo == "" {
		tokenizerRepo = spec.ModelRepo
	}
	tokenizerPath, err = hub.Get(ctx, tokenizerRepo, spec.TokenizerFile, spec.Revision, token)
	if err != nil {
		return "", "", fmt.Errorf("worker: fetch tokenizer: %w", err)
	}
	return modelPath, tokenizerPath, nil
}

func runnerSpecFromActorSpec(spec config.ActorSpec) runner.Spec {
	out := runner.DefaultSpec()
	if spec.Seed != nil {
		out.Seed = *spec.Seed
	}
	if spec.RepeatLastN != nil {
		out.RepeatLastN = *spec.RepeatLastN
	}
	if spec.RepeatPenalty != nil {
		out.RepeatPenalty = *spec.RepeatPenalty
	}
	if spec.Temperature != nil {
		out.Temperature = *spec.Temperature
	}
	if spec.TopP != nil {
		out.TopP = spec.TopP
	}
	if spec.TopK != nil {
		out.TopK = spec.TopK
	}
	if spec.SampleLen != nil {
		out.SampleLen = *spec.SampleLen
	}
	if format, err := runner.ParsePromptFormat(spec.PromptFormat); err == nil {
		out.PromptFormat = format
	} else {
		log.Warn().Err(err).Str("prompt_format", spec.PromptFormat).Msg("worker: unknown prompt format, defaulting to none")
	}
	return out
}

func actorMetadata(cfg *config.Worker, spec config.ActorSpec) protocol.ActorMetadata {
	actorID := cfg.ActorID
	if actorID == "" {
		actorID = uuid.NewString()
	}
	return protocol.ActorMetadata{
		Name:      spec.Name,
		Kind:      spec.Kind,
		Features:  spec.Features,
		ActorHost: cfg.ActorHost,
		SeedHost:  cfg.SeedHost,
		ActorID:   actorID,
		SidecarID: cfg.SidecarID,
	}
}
