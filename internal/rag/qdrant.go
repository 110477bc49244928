package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// itemPayloadField is the payload column holding retrievable text.
const itemPayloadField = "item"

// QdrantStore is a VectorStore backed by Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore connects to a Qdrant instance at host:port.
func NewQdrantStore(host string, port int, collection string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("rag: create qdrant client: %w", err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

// SimilaritySearch returns the "item" payload field of the single
// best-scoring row among the top-k nearest neighbors.
func (q *QdrantStore) SimilaritySearch(ctx context.Context, vector []float32, k int) (string, bool, error) {
	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("rag: qdrant query: %w", err)
	}
	if len(hits) == 0 {
		return "", false, nil
	}
	best := hits[0]
	if best.Payload == nil {
		return "", false, nil
	}
	item, ok := best.Payload[itemPayloadField]
	if !ok {
		return "", false, nil
	}
	return item.GetStringValue(), true, nil
}

// Close releases the underlying gRPC connection.
func (q *QdrantStore) Close() error {
	return q.client.Close()
}
