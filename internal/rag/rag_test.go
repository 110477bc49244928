package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, prompt string) ([]float32, error) {
	return f.vec, f.err
}

type fakeStore struct {
	best string
	ok   bool
	err  error
}

func (f fakeStore) SimilaritySearch(ctx context.Context, vector []float32, k int) (string, bool, error) {
	return f.best, f.ok, f.err
}

func TestAugment_SplicesTemplateOnHit(t *testing.T) {
	a := New(fakeEmbedder{vec: []float32{1, 2, 3}}, fakeStore{best: "paris is the capital of france", ok: true}, "Context: {context}\nQ: {question}")

	out, err := a.Augment(context.Background(), "what is the capital of france?")
	require.NoError(t, err)
	assert.Equal(t, "Context: paris is the capital of france\nQ: what is the capital of france?", out)
}

func TestAugment_FallsBackToOriginalPromptOnMiss(t *testing.T) {
	a := New(fakeEmbedder{vec: []float32{1}}, fakeStore{ok: false}, "Context: {context}\nQ: {question}")

	out, err := a.Augment(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestSpliceLastMessage_ReplacesOnlyLastMessage(t *testing.T) {
	messages := []entity.Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "original question"},
	}
	out := SpliceLastMessage(messages, "augmented question")

	require.Len(t, out, 2)
	assert.Equal(t, "be nice", out[0].Content)
	assert.Equal(t, "augmented question", out[1].Content)
	// original slice is untouched
	assert.Equal(t, "original question", messages[1].Content)
}

func TestSpliceLastMessage_EmptyInputIsNoop(t *testing.T) {
	out := SpliceLastMessage(nil, "anything")
	assert.Nil(t, out)
}
