// Package modelhub fetches model artifacts from a model hub into a
// process-local cache: a thin read-only HTTP client over the hub's
// resolve API, with multi-shard safetensors index support. The actual
// weight format and memory-mapping live in the numeric model backend,
// out of scope here.
package modelhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultEndpoint = "https://huggingface.co"

// Client fetches files from a model hub repo into a local cache directory,
// stored under CacheDir by (repo, revision, filename). The endpoint and
// token are not part of the cache path.
type Client struct {
	Endpoint string
	CacheDir string
	HTTP     *http.Client
}

// New builds a Client rooted at cacheDir; an empty endpoint defaults to
// the public Hugging Face Hub.
func New(cacheDir, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{Endpoint: endpoint, CacheDir: cacheDir, HTTP: http.DefaultClient}
}

func (c *Client) cachePath(repoID, revision, filename string) string {
	if revision == "" {
		revision = "main"
	}
	return filepath.Join(c.CacheDir, filepath.FromSlash(repoID), revision, filepath.FromSlash(filename))
}

func (c *Client) resolveURL(repoID, revision, filename string) string {
	if revision == "" {
		revision = "main"
	}
	return fmt.Sprintf("%s/%s/resolve/%s/%s", c.Endpoint, repoID, revision, filename)
}

// Get downloads filename from repoID at the given revision (empty means
// "main"), returning the local cache path. A file already present in the
// cache is not re-fetched.
func (c *Client) Get(ctx context.Context, repoID, filename, revision, token string) (string, error) {
	dest := c.cachePath(repoID, revision, filename)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("modelhub: create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(repoID, revision, filename), nil)
	if err != nil {
		return "", fmt.Errorf("modelhub: build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("modelhub: fetch %s/%s: %w", repoID, filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("modelhub: fetch %s/%s: status %d", repoID, filename, resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("modelhub: create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("modelhub: write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("modelhub: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("modelhub: finalize %s: %w", dest, err)
	}
	return dest, nil
}

// safetensorsIndex is the weight_map document a sharded checkpoint ships
// alongside its shard files.
type safetensorsIndex struct {
	WeightMap map[string]string `json:"weight_map"`
}

// GetSharded fetches indexFile (typically "model.safetensors.index.json"),
// reads its weight_map, and fetches every distinct shard file it
// references, returning their local cache paths. This is the Go match for
// hf_hub_get_multiple.
func (c *Client) GetSharded(ctx context.Context, repoID, indexFile, revision, token string) ([]string, error) {
	indexPath, err := c.Get(ctx, repoID, indexFile, revision, token)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("modelhub: read %s: %w", indexPath, err)
	}
	var idx safetensorsIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("modelhub: decode %s: %w", indexFile, err)
	}
	if len(idx.WeightMap) == 0 {
		return nil, fmt.Errorf("modelhub: no weight_map in %s", indexFile)
	}

	seen := make(map[string]bool)
	var shardFiles []string
	for _, shard := range idx.WeightMap {
		if seen[shard] {
			continue
		}
		seen[shard] = true
		shardFiles = append(shardFiles, shard)
	}

	paths := make([]string, 0, len(shardFiles))
	for _, shard := range shardFiles {
		p, err := c.Get(ctx, repoID, shard, revision, token)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// IsShardedIndex reports whether filename names a safetensors shard index
// document, to let callers decide between Get and GetSharded.
func IsShardedIndex(filename string) bool {
	return strings.HasSuffix(filename, ".safetensors.index.json")
}
