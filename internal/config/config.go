// Package config loads CLI flags with environment-variable overrides for
// the coordinator and worker binaries.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads a local .env file if present; its absence is not an
// error, matching cmd/agentd's best-effort dotenv load.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// Coordinator holds the coordinator process's full CLI/env surface.
type Coordinator struct {
	ActorHost     string
	Host          string
	Port          int
	LogLevel      string
	Workers       int
	InvokeTimeout time.Duration

	SessionKey                []byte
	PersonalAccessTokenSecret []byte

	OIDCEnabled      bool
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	SingleToken string

	// Optional domain integrations; empty disables the feature.
	RedisURL      string
	PostgresDSN   string
	KafkaBrokers  string
	QdrantAddr    string
	HFToken       string
}

// LoadCoordinator parses args (typically os.Args[1:]) into a Coordinator,
// applying environment-variable overrides afterward so `FLAG=value ./bin`
// works the same as `./bin --flag=value`.
func LoadCoordinator(args []string) (*Coordinator, error) {
	fs := flag.NewFlagSet("coordinator", flag.ContinueOnError)

	c := &Coordinator{}
	fs.StringVar(&c.ActorHost, "actor-host", "127.0.0.1:8000", "this node's ip:port")
	fs.StringVar(&c.Host, "host", "0.0.0.0", "HTTP bind host")
	fs.IntVar(&c.Port, "port", 8080, "HTTP bind port")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level")
	fs.IntVar(&c.Workers, "workers", 4, "I/O thread count")
	invokeTimeoutSec := fs.Int("invoke-timeout", 60, "invocation timeout in seconds")
	sessionKeyFlag := fs.String("session-key", "", "base64-encoded 64-byte session signing key")
	patSecretFlag := fs.String("personal-access-token-secret", "", "base64-encoded PAT HMAC secret")
	fs.BoolVar(&c.OIDCEnabled, "oidc", false, "enable OIDC login (mutually exclusive with single-token)")
	fs.StringVar(&c.OIDCIssuerURL, "oidc-issuer-url", "", "OIDC issuer URL")
	fs.StringVar(&c.OIDCClientID, "oidc-client-id", "", "OIDC client ID")
	fs.StringVar(&c.OIDCClientSecret, "oidc-client-secret", "", "OIDC client secret")
	fs.StringVar(&c.OIDCRedirectURL, "oidc-redirect-url", "", "OIDC redirect URL")
	fs.StringVar(&c.SingleToken, "auth-token", "", "single-token login mode secret")
	fs.StringVar(&c.RedisURL, "redis-url", "", "optional retry-cache Redis URL")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", "", "optional audit log Postgres DSN")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "optional comma-separated Kafka brokers for membership events")
	fs.StringVar(&c.QdrantAddr, "qdrant-addr", "", "optional Qdrant address for retrieval augmentation")
	fs.StringVar(&c.HFToken, "hf-token", "", "Hugging Face Hub token")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	applyStringEnvOverride(&c.ActorHost, "ACTOR_HOST")
	applyStringEnvOverride(&c.Host, "HOST")
	applyStringEnvOverride(&c.LogLevel, "LOG_LEVEL")
	applyStringEnvOverride(&c.OIDCIssuerURL, "OIDC_ISSUER_URL")
	applyStringEnvOverride(&c.OIDCClientID, "OIDC_CLIENT_ID")
	applyStringEnvOverride(&c.OIDCClientSecret, "OIDC_CLIENT_SECRET")
	applyStringEnvOverride(&c.OIDCRedirectURL, "OIDC_REDIRECT_URL")
	applyStringEnvOverride(&c.SingleToken, "AUTH_TOKEN")
	applyStringEnvOverride(&c.RedisURL, "REDIS_URL")
	applyStringEnvOverride(&c.PostgresDSN, "POSTGRES_DSN")
	applyStringEnvOverride(&c.KafkaBrokers, "KAFKA_BROKERS")
	applyStringEnvOverride(&c.QdrantAddr, "QDRANT_ADDR")
	applyStringEnvOverride(&c.HFToken, "HF_TOKEN")
	if v := os.Getenv("SESSION_KEY"); v != "" {
		*sessionKeyFlag = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		*patSecretFlag = v
	}

	c.InvokeTimeout = time.Duration(*invokeTimeoutSec) * time.Second

	key, err := decodeOrGenerateKey(*sessionKeyFlag, 64)
	if err != nil {
		return nil, fmt.Errorf("config: session key: %w", err)
	}
	c.SessionKey = key

	patSecret, err := decodeOrGenerateKey(*patSecretFlag, 32)
	if err != nil {
		return nil, fmt.Errorf("config: personal access token secret: %w", err)
	}
	c.PersonalAccessTokenSecret = patSecret

	if c.OIDCEnabled && c.SingleToken != "" {
		return nil, fmt.Errorf("config: --oidc and --auth-token are mutually exclusive")
	}
	if !c.OIDCEnabled && c.SingleToken == "" {
		return nil, fmt.Errorf("config: exactly one of --oidc or --auth-token must be set")
	}

	return c, nil
}

func applyStringEnvOverride(dst *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*dst = v
	}
}

// decodeOrGenerateKey base64-decodes a provided key, or generates a fresh
// random key of the requested length when raw is empty.
func decodeOrGenerateKey(raw string, length int) ([]byte, error) {
	if raw == "" {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate random key: %w", err)
		}
		return buf, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64 key: %w", err)
	}
	return decoded, nil
}

// Worker holds the worker process's spawn-time configuration.
type Worker struct {
	ActorHost      string
	CoordinatorURL string
	ActorID        string
	SeedHost       string
	SidecarID      string
	LogLevel       string
	HFToken        string

	// SpecSource carries exactly one of the -f/-t/-y/-j forms; the caller
	// resolves it into the actor spec payload.
	SpecSource SpecSource
}

// SpecSource identifies which of the four spawn-time spec encodings
// (-f/-t/-y/-j) was given.
type SpecSource struct {
	FilePath    string // -f
	TOMLPath    string // -t
	YAMLBase64  string // -y
	JSONBase64  string // -j
}

func (s SpecSource) Empty() bool {
	return s.FilePath == "" && s.TOMLPath == "" && s.YAMLBase64 == "" && s.JSONBase64 == ""
}

// LoadWorkerSpawn parses the `spawn` subcommand's flags.
func LoadWorkerSpawn(args []string) (*Worker, error) {
	fs := flag.NewFlagSet("worker spawn", flag.ContinueOnError)

	w := &Worker{}
	fs.StringVar(&w.ActorHost, "actor-host", "127.0.0.1:9000", "this worker's ip:port")
	fs.StringVar(&w.CoordinatorURL, "coordinator-url", "ws://127.0.0.1:8080/cluster", "coordinator cluster endpoint")
	fs.StringVar(&w.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&w.HFToken, "hf-token", "", "Hugging Face Hub token")
	fs.StringVar(&w.SpecSource.FilePath, "f", "", "actor spec file (JSON)")
	fs.StringVar(&w.SpecSource.TOMLPath, "t", "", "actor spec file (TOML)")
	fs.StringVar(&w.SpecSource.YAMLBase64, "y", "", "base64-encoded YAML actor spec")
	fs.StringVar(&w.SpecSource.JSONBase64, "j", "", "base64-encoded JSON actor spec")
	metaBase64 := fs.String("m", "", "base64-encoded YAML metadata block")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	applyStringEnvOverride(&w.HFToken, "HF_TOKEN")

	if w.SpecSource.Empty() {
		return nil, fmt.Errorf("config: spawn requires exactly one of -f, -t, -y, -j")
	}
	if *metaBase64 != "" {
		meta, err := decodeMetadataYAML(*metaBase64)
		if err != nil {
			return nil, fmt.Errorf("config: decode -m metadata: %w", err)
		}
		w.ActorID = meta.ActorID
		w.SeedHost = meta.SeedHost
		w.SidecarID = meta.SidecarID
		if meta.ActorHost != "" {
			w.ActorHost = meta.ActorHost
		}
	}
	return w, nil
}

type spawnMetadata struct {
	ActorHost string `yaml:"actor_host"`
	SeedHost  string `yaml:"seed_host"`
	ActorID   string `yaml:"actor_id"`
	SidecarID string `yaml:"sidecar_id"`
}

func decodeMetadataYAML(b64 string) (spawnMetadata, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return spawnMetadata{}, err
	}
	var meta spawnMetadata
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return spawnMetadata{}, err
	}
	return meta, nil
}
