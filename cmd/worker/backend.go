package main

import (
	"fmt"

	"modelmesh/internal/config"
	"modelmesh/internal/runner"
)

// buildBackend resolves an ActorSpec's model/tokenizer cache paths into the
// runner.ModelBackend/runner.Tokenizer pair the decode loop drives.
//
// The numeric model backend (weight format, quantization, device
// placement) is an explicit black box at the runner seam: this module
// implements the decode loop, sampling, and prompt formatting, not a GGUF
// or safetensors inference kernel. buildBackend is the one place that gap
// is surfaced, so every other part of the spawn path (spec parsing, hub
// fetch, cluster announce, FIFO dispatch) stays fully wired and testable
// against runner.ModelBackend/runner.Tokenizer fakes, exactly as
// internal/runner's tests already do.
func buildBackend(spec config.ActorSpec, modelPath, tokenizerPath string) (runner.ModelBackend, runner.Tokenizer, error) {
	return nil, nil, fmt.Errorf(
		"cmd/worker: no in-process numeric backend registered for kind %q (model=%s, tokenizer=%s); "+
			"plug a runner.ModelBackend/runner.Tokenizer pair into buildBackend for this kind",
		spec.Kind, modelPath, tokenizerPath,
	)
}
