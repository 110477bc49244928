// Package runner implements the autoregressive decode loop shared by every
// chat actor: tokenize, run the model a token at a time, apply a repetition
// penalty, sample, check for end-of-sequence, and incrementally detokenize.
package runner

import (
	"fmt"

	"modelmesh/internal/entity"
)

// Spec is the per-actor decode configuration, mirroring QuantizedSpec's
// tunables.
type Spec struct {
	Seed           uint64
	RepeatLastN    int
	RepeatPenalty  float32
	Temperature    float64
	TopP           *float64
	TopK           *int
	SampleLen      int
	PromptFormat   PromptFormat
}

// DefaultSpec returns the chat engine's baseline sampling defaults.
func DefaultSpec() Spec {
	return Spec{
		Seed:          299792458,
		RepeatLastN:   64,
		RepeatPenalty: 1.1,
		Temperature:   0.8,
		SampleLen:     1000,
		PromptFormat:  PromptNone,
	}
}

// Runner drives one backend+tokenizer pair through the decode loop. It is
// not safe for concurrent use; callers serialize invocations (the worker
// dispatcher does this with a single-goroutine mailbox).
type Runner struct {
	Backend   ModelBackend
	Tokenizer Tokenizer
	Spec      Spec
}

func New(backend ModelBackend, tokenizer Tokenizer, spec Spec) *Runner {
	return &Runner{Backend: backend, Tokenizer: tokenizer, Spec: spec}
}

// MapRequest renders a chat message list into the single prompt string the
// model consumes, using the actor's configured template.
func (r *Runner) MapRequest(messages []entity.Message) string {
	return FormatMessages(r.Spec.PromptFormat, messages)
}

type decodeState struct {
	promptLen int
	allTokens []uint32
	proc      *LogitsProcessor
}

// prepare tokenizes the prompt, runs the first forward pass over the full
// prompt, and samples the first continuation token.
func (r *Runner) prepare(prompt string) (*decodeState, error) {
	promptTokens, err := r.Tokenizer.Encode(prompt)
	if err != nil {
		return nil, fmt.Errorf("runner: encode prompt: %w", err)
	}

	proc := NewLogitsProcessor(SamplingConfig{
		Seed:        r.Spec.Seed,
		Temperature: r.Spec.Temperature,
		TopK:        r.Spec.TopK,
		TopP:        r.Spec.TopP,
	})

	logits, err := r.Backend.Forward(promptTokens, 0)
	if err != nil {
		return nil, fmt.Errorf("runner: forward prompt: %w", err)
	}
	next, err := proc.Sample(logits)
	if err != nil {
		return nil, fmt.Errorf("runner: sample first token: %w", err)
	}

	return &decodeState{
		promptLen: len(promptTokens),
		allTokens: []uint32{next},
		proc:      proc,
	}, nil
}

// step returns the full decoded text so far after one more sampled token.
// Step 0 reports the token prepare already sampled from the full-prompt
// pass; every later step runs one continuation forward pass for the token
// most recently appended to state, applies the repetition penalty, and
// samples the next token. SampleLen steps therefore yield at most
// SampleLen tokens. It returns ok=false once EOS is sampled, at which
// point no further steps should run.
func (r *Runner) step(state *decodeState, index int) (text string, ok bool, err error) {
	if index == 0 {
		if state.allTokens[0] == r.Tokenizer.EOSToken() {
			return "", false, nil
		}
		text, err = r.Tokenizer.Decode(state.allTokens)
		if err != nil {
			return "", false, fmt.Errorf("runner: decode step %d: %w", index, err)
		}
		return text, true, nil
	}

	last := state.allTokens[len(state.allTokens)-1]

	logits, err := r.Backend.Forward([]uint32{last}, state.promptLen+index-1)
	if err != nil {
		return "", false, fmt.Errorf("runner: forward step %d: %w", index, err)
	}

	if r.Spec.RepeatPenalty != 1.0 {
		start := len(state.allTokens) - r.Spec.RepeatLastN
		if start < 0 {
			start = 0
		}
		logits = ApplyRepeatPenalty(logits, r.Spec.RepeatPenalty, state.allTokens[start:])
	}

	next, err := state.proc.Sample(logits)
	if err != nil {
		return "", false, fmt.Errorf("runner: sample step %d: %w", index, err)
	}
	state.allTokens = append(state.allTokens, next)

	if next == r.Tokenizer.EOSToken() {
		return "", false, nil
	}

	text, err = r.Tokenizer.Decode(state.allTokens)
	if err != nil {
		return "", false, fmt.Errorf("runner: decode step %d: %w", index, err)
	}
	return text, true, nil
}

// Invoke runs the full decode loop and returns the final generated text.
func (r *Runner) Invoke(prompt string) (string, error) {
	state, err := r.prepare(prompt)
	if err != nil {
		return "", err
	}

	var last string
	for i := 0; i < r.Spec.SampleLen; i++ {
		text, ok, err := r.step(state, i)
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		last = text
	}
	return last, nil
}

// InvokeStream runs the decode loop and calls emit once per step with only
// the newly generated suffix, matching invoke_stream's previous_text diff.
func (r *Runner) InvokeStream(prompt string, emit func(delta string) error) error {
	state, err := r.prepare(prompt)
	if err != nil {
		return err
	}

	previous := ""
	for i := 0; i < r.Spec.SampleLen; i++ {
		text, ok, err := r.step(state, i)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		delta := text[len(previous):]
		previous = text
		if err := emit(delta); err != nil {
			return err
		}
	}
	return nil
}
