// Package runnertest provides deterministic fakes for the runner package's
// ModelBackend and Tokenizer seams, used by runner tests and by the worker
// package's tests, which need a decode loop without real weights.
package runnertest

import (
	"fmt"
	"strings"
)

// FakeModelBackend emits a fixed token script regardless of its input,
// ending with EOS. It records every call for assertions.
type FakeModelBackend struct {
	Script   []uint32
	EOS      uint32
	VocabLen int
	calls    int
}

func NewFakeModelBackend(script []uint32, eos uint32) *FakeModelBackend {
	maxTok := eos
	for _, t := range script {
		if t > maxTok {
			maxTok = t
		}
	}
	return &FakeModelBackend{Script: script, EOS: eos, VocabLen: int(maxTok) + 1}
}

// Forward returns a one-hot logits vector favoring the next scripted token.
// After the script is exhausted it always favors EOS.
func (f *FakeModelBackend) Forward(tokens []uint32, startPos int) ([]float32, error) {
	logits := make([]float32, f.VocabLen)
	idx := f.calls
	f.calls++

	var want uint32
	if idx < len(f.Script) {
		want = f.Script[idx]
	} else {
		want = f.EOS
	}
	for i := range logits {
		logits[i] = -10
	}
	logits[want] = 10
	return logits, nil
}

func (f *FakeModelBackend) Calls() int { return f.calls }

// FakeTokenizer maps whitespace-separated words to the token IDs fixed with
// Intern (an un-interned word is an Encode error), decoding by joining words
// with a single space and skipping EOS.
type FakeTokenizer struct {
	vocab    map[string]uint32
	reverse  map[uint32]string
	eosToken uint32
}

func NewFakeTokenizer(eos uint32) *FakeTokenizer {
	return &FakeTokenizer{
		vocab:    map[string]uint32{},
		reverse:  map[uint32]string{},
		eosToken: eos,
	}
}

// Intern assigns a fixed token ID to a word, for building deterministic
// test scripts that must agree with a FakeModelBackend's Script.
func (t *FakeTokenizer) Intern(word string, id uint32) {
	t.vocab[word] = id
	t.reverse[id] = word
}

func (t *FakeTokenizer) Encode(text string) ([]uint32, error) {
	words := strings.Fields(text)
	out := make([]uint32, 0, len(words))
	for _, w := range words {
		id, ok := t.vocab[w]
		if !ok {
			return nil, fmt.Errorf("runnertest: unknown word %q", w)
		}
		out = append(out, id)
	}
	return out, nil
}

func (t *FakeTokenizer) Decode(tokens []uint32) (string, error) {
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == t.eosToken {
			continue
		}
		w, ok := t.reverse[tok]
		if !ok {
			return "", fmt.Errorf("runnertest: unknown token %d", tok)
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), nil
}

func (t *FakeTokenizer) EOSToken() uint32 { return t.eosToken }
