package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
	"modelmesh/internal/runner/runnertest"
)

func newFixture(t *testing.T) (*runnertest.FakeModelBackend, *runnertest.FakeTokenizer) {
	t.Helper()
	const eos = 99
	tok := runnertest.NewFakeTokenizer(eos)
	tok.Intern("hello", 1)
	tok.Intern("there", 2)
	tok.Intern("friend", 3)

	backend := runnertest.NewFakeModelBackend([]uint32{1, 2, 3}, eos)
	return backend, tok
}

func TestRunnerInvokeStopsAtEOS(t *testing.T) {
	backend, tok := newFixture(t)
	spec := DefaultSpec()
	spec.Temperature = 0 // argmax, deterministic regardless of seed
	spec.SampleLen = 10

	r := New(backend, tok, spec)
	out, err := r.Invoke("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello there friend", out)
}

func TestRunnerInvokeStreamEmitsOnlyDeltas(t *testing.T) {
	backend, tok := newFixture(t)
	spec := DefaultSpec()
	spec.Temperature = 0
	spec.SampleLen = 10

	r := New(backend, tok, spec)
	var deltas []string
	err := r.InvokeStream("hello", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, deltas, 3)
	assert.Equal(t, "hello", deltas[0])
	assert.Equal(t, " there", deltas[1])
	assert.Equal(t, " friend", deltas[2])
}

func TestRunnerRespectsSampleLenCap(t *testing.T) {
	const eos = 99
	tok := runnertest.NewFakeTokenizer(eos)
	tok.Intern("hello", 1)
	tok.Intern("there", 2)
	tok.Intern("friend", 3)
	tok.Intern("again", 4)

	// Script never reaches EOS within SampleLen.
	backend := runnertest.NewFakeModelBackend([]uint32{1, 2, 3, 4}, eos)
	spec := DefaultSpec()
	spec.Temperature = 0
	spec.SampleLen = 2

	r := New(backend, tok, spec)
	out, err := r.Invoke("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestMapRequestAppliesPromptFormat(t *testing.T) {
	r := New(nil, nil, Spec{PromptFormat: PromptMistral})
	got := r.MapRequest([]entity.Message{{Role: "user", Content: "hi"}})
	assert.Equal(t, "<s>[INST] hi [/INST]", got)
}

func TestParsePromptFormatRejectsUnknown(t *testing.T) {
	_, err := ParsePromptFormat("not-a-format")
	assert.Error(t, err)

	f, err := ParsePromptFormat("")
	require.NoError(t, err)
	assert.Equal(t, PromptNone, f)
}
