package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ActorSpec is the static, operator-authored description of one worker
// actor: its registry identity, its sampling/prompt configuration, and
// where to fetch its model and tokenizer files from the hub.
type ActorSpec struct {
	Kind     string   `json:"kind" yaml:"kind" toml:"kind"`
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty" toml:"features,omitempty"`

	ModelRepo     string `json:"model_repo" yaml:"model_repo" toml:"model_repo"`
	ModelFile     string `json:"model_file" yaml:"model_file" toml:"model_file"`
	TokenizerRepo string `json:"tokenizer_repo" yaml:"tokenizer_repo" toml:"tokenizer_repo"`
	TokenizerFile string `json:"tokenizer_file" yaml:"tokenizer_file" toml:"tokenizer_file"`
	Revision      string `json:"revision,omitempty" yaml:"revision,omitempty" toml:"revision,omitempty"`

	PromptFormat string `json:"prompt_format,omitempty" yaml:"prompt_format,omitempty" toml:"prompt_format,omitempty"`

	Seed          *uint64  `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
	RepeatLastN   *int     `json:"repeat_last_n,omitempty" yaml:"repeat_last_n,omitempty" toml:"repeat_last_n,omitempty"`
	RepeatPenalty *float32 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	SampleLen     *int     `json:"sample_len,omitempty" yaml:"sample_len,omitempty" toml:"sample_len,omitempty"`
}

// LoadActorSpec resolves exactly one of a SpecSource's four forms into an
// ActorSpec: -f a JSON file, -t a TOML file, -y base64-encoded YAML, -j
// base64-encoded JSON.
func LoadActorSpec(src SpecSource) (ActorSpec, error) {
	var spec ActorSpec
	switch {
	case src.FilePath != "":
		raw, err := os.ReadFile(src.FilePath)
		if err != nil {
			return spec, fmt.Errorf("config: read actor spec %s: %w", src.FilePath, err)
		}
		if err := json.Unmarshal(raw, &spec); err != nil {
			return spec, fmt.Errorf("config: decode actor spec %s: %w", src.FilePath, err)
		}
	case src.TOMLPath != "":
		raw, err := os.ReadFile(src.TOMLPath)
		if err != nil {
			return spec, fmt.Errorf("config: read actor spec %s: %w", src.TOMLPath, err)
		}
		if err := toml.Unmarshal(raw, &spec); err != nil {
			return spec, fmt.Errorf("config: decode actor spec %s: %w", src.TOMLPath, err)
		}
	case src.YAMLBase64 != "":
		raw, err := decodeBase64(src.YAMLBase64)
		if err != nil {
			return spec, fmt.Errorf("config: decode -y: %w", err)
		}
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return spec, fmt.Errorf("config: decode YAML actor spec: %w", err)
		}
	case src.JSONBase64 != "":
		raw, err := decodeBase64(src.JSONBase64)
		if err != nil {
			return spec, fmt.Errorf("config: decode -j: %w", err)
		}
		if err := json.Unmarshal(raw, &spec); err != nil {
			return spec, fmt.Errorf("config: decode JSON actor spec: %w", err)
		}
	default:
		return spec, fmt.Errorf("config: no actor spec source provided")
	}

	spec.Kind = strings.TrimSpace(spec.Kind)
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Kind == "" || spec.Name == "" {
		return spec, fmt.Errorf("config: actor spec requires both kind and name")
	}
	return spec, nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
