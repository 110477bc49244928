// Package rag implements the optional retrieval-augmentation step: embed
// the user's prompt through an embedding worker, look up the nearest rows
// in a vector store, and splice the best row's content into a configured
// prompt template before the chat request reaches the runner.
//
// The embed/nearest/{context}-{question}-replace flow runs over a worker
// dispatch instead of an in-process embedding model, and over Qdrant
// instead of an embedded vector index.
package rag

import (
	"context"
	"fmt"
	"strings"

	"modelmesh/internal/entity"
)

// TopK matches the spec's fixed top-k=2 nearest-neighbor lookup.
const TopK = 2

// VectorStore is the nearest-neighbor lookup surface this package needs;
// internal/cluster-delivered embeddings are searched against it.
// Satisfied by a Qdrant-backed implementation in this package.
type VectorStore interface {
	SimilaritySearch(ctx context.Context, vector []float32, k int) (best string, ok bool, err error)
}

// Embedder performs the embed step; in production this dispatches an
// invocation to a registered embedding worker actor and extracts the
// resulting FLOAT32ARRAY. It is an interface so tests can supply a fake.
type Embedder interface {
	Embed(ctx context.Context, prompt string) ([]float32, error)
}

// Augmenter wires an Embedder and VectorStore to a prompt template to
// produce the spliced prompt that replaces the user's last chat message.
type Augmenter struct {
	Embed    Embedder
	Store    VectorStore
	Template string // contains literal {context} and {question} placeholders
}

func New(embed Embedder, store VectorStore, template string) *Augmenter {
	return &Augmenter{Embed: embed, Store: store, Template: template}
}

// Augment embeds prompt, finds the best matching row's "item" content, and
// returns the template with {context} and {question} substituted. If no
// row is found, it returns the original prompt content unmodified so a
// cold or empty vector store degrades to a plain chat call rather than
// failing the request.
func (a *Augmenter) Augment(ctx context.Context, prompt string) (string, error) {
	vec, err := a.Embed.Embed(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("rag: embed prompt: %w", err)
	}

	best, ok, err := a.Store.SimilaritySearch(ctx, vec, TopK)
	if err != nil {
		return "", fmt.Errorf("rag: similarity search: %w", err)
	}
	if !ok {
		return prompt, nil
	}

	out := strings.ReplaceAll(a.Template, "{context}", best)
	out = strings.ReplaceAll(out, "{question}", prompt)
	return out, nil
}

// SpliceLastMessage replaces the content of the last message in messages
// (the user's current turn) with the retrieval-augmented prompt.
func SpliceLastMessage(messages []entity.Message, augmented string) []entity.Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]entity.Message, len(messages))
	copy(out, messages)
	out[len(out)-1].Content = augmented
	return out
}
