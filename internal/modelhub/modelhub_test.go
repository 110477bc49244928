package modelhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, body := range files {
			if strings.HasSuffix(r.URL.Path, name) {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestClient_Get_FetchesAndCaches(t *testing.T) {
	srv := newTestServer(t, map[string]string{"tokenizer.json": `{"vocab":{}}`})
	defer srv.Close()

	dir := t.TempDir()
	c := New(dir, srv.URL)

	path, err := c.Get(context.Background(), "org/model", "tokenizer.json", "", "")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vocab":{}}`, string(data))
	assert.Equal(t, filepath.Join(dir, "org/model", "main", "tokenizer.json"), path)
}

func TestClient_Get_DoesNotRefetchCachedFile(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("weights"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(dir, srv.URL)

	_, err := c.Get(context.Background(), "org/model", "model.bin", "", "")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "org/model", "model.bin", "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestClient_Get_Returns404AsError(t *testing.T) {
	srv := newTestServer(t, map[string]string{})
	defer srv.Close()

	c := New(t.TempDir(), srv.URL)
	_, err := c.Get(context.Background(), "org/model", "missing.bin", "", "")
	assert.Error(t, err)
}

func TestClient_GetSharded_DedupsAndFetchesEveryShard(t *testing.T) {
	index, err := json.Marshal(safetensorsIndex{WeightMap: map[string]string{
		"layer.0": "shard-0.safetensors",
		"layer.1": "shard-1.safetensors",
		"layer.2": "shard-0.safetensors",
	}})
	require.NoError(t, err)

	files := map[string]string{
		"model.safetensors.index.json": string(index),
		"shard-0.safetensors":          "shard0",
		"shard-1.safetensors":          "shard1",
	}
	srv := newTestServer(t, files)
	defer srv.Close()

	c := New(t.TempDir(), srv.URL)
	paths, err := c.GetSharded(context.Background(), "org/model", "model.safetensors.index.json", "", "")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestIsShardedIndex(t *testing.T) {
	assert.True(t, IsShardedIndex("model.safetensors.index.json"))
	assert.False(t, IsShardedIndex("model.safetensors"))
}
