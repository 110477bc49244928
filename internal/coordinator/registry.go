// Package coordinator implements the coordinator node: an actor registry,
// a pending-task correlation table with timeout sweeping, and the dispatch
// logic that picks a target actor for each invocation.
package coordinator

import (
	"sync"

	"modelmesh/internal/protocol"
)

// actorEntry binds a registered actor's metadata to the peer connection it
// arrived on.
type actorEntry struct {
	peerID string
	meta   protocol.ActorMetadata
}

// Registry tracks actors by (kind, name), preserving insertion order within
// each bucket so dispatch can deterministically pick the first match.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[string][]actorEntry
	byPeer  map[string]string // peerID -> key, for removal on MemberLeft
}

func key(kind, name string) string { return kind + "/" + name }

func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string][]actorEntry),
		byPeer: make(map[string]string),
	}
}

// Register adds an actor under (kind, name). A duplicate (kind, name, peer)
// registration is a no-op; a duplicate (kind, name) from a different peer
// is appended, giving dispatch a fallback candidate.
func (r *Registry) Register(peerID string, meta protocol.ActorMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(meta.Kind, meta.Name)
	for _, e := range r.byKey[k] {
		if e.peerID == peerID {
			return
		}
	}
	r.byKey[k] = append(r.byKey[k], actorEntry{peerID: peerID, meta: meta})
	r.byPeer[peerID] = k
}

// Unregister removes every actor entry associated with peerID, called when
// the cluster transport reports MemberLeft.
func (r *Registry) Unregister(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.byPeer[peerID]
	if !ok {
		return
	}
	delete(r.byPeer, peerID)

	entries := r.byKey[k]
	filtered := entries[:0]
	for _, e := range entries {
		if e.peerID != peerID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		delete(r.byKey, k)
	} else {
		r.byKey[k] = filtered
	}
}

// Resolve returns the peer ID of the first-registered actor matching
// (kind, name), or ok=false if none is registered.
func (r *Registry) Resolve(kind, name string) (peerID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byKey[key(kind, name)]
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].peerID, true
}

// List returns the metadata of every registered actor, for the /api/actors
// endpoint.
func (r *Registry) List() []protocol.ActorMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []protocol.ActorMetadata
	for _, entries := range r.byKey {
		for _, e := range entries {
			out = append(out, e.meta)
		}
	}
	return out
}
