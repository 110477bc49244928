package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"modelmesh/internal/cluster"
	"modelmesh/internal/protocol"
)

// ErrNotFound is returned synchronously by StartInvoke when no actor is
// registered under the requested (kind, name).
var ErrNotFound = fmt.Errorf("coordinator: no actor registered for that kind/name")

// RetryCache lets the coordinator consult and populate an idempotent-retry
// cache keyed by task ID, so a NetworkError-triggered retry never invokes a
// worker twice for the same task. Implemented by internal/retrycache.
type RetryCache interface {
	Get(ctx context.Context, taskID string) (protocol.InvokeResponse, bool, error)
	Put(ctx context.Context, taskID string, resp protocol.InvokeResponse) error
}

// AuditLog records terminal invocation outcomes. Implemented by
// internal/audit; entirely optional.
type AuditLog interface {
	Record(ctx context.Context, req protocol.InvokeRequest, kind, name string, resp protocol.InvokeResponse) error
}

// Coordinator owns the actor registry, the pending-task table, and the
// cluster transport server; it is the process that dispatches invocations
// to workers and routes their responses back to callers.
type Coordinator struct {
	Transport *cluster.Server
	Registry  *Registry
	Pending   *PendingTable

	RetryCache RetryCache
	Audit      AuditLog
}

// New builds a Coordinator with a fresh transport, registry, and pending
// table. RetryCache and Audit are left nil (optional) for the caller to
// set before serving traffic.
func New(timeout time.Duration) *Coordinator {
	return &Coordinator{
		Transport: cluster.NewServer(),
		Registry:  NewRegistry(),
		Pending:   NewPendingTable(timeout),
	}
}

// WatchMembership consumes the transport's membership events and keeps the
// registry in sync until stop is closed. Run this in its own goroutine.
func (c *Coordinator) WatchMembership(stop <-chan struct{}) {
	for {
		select {
		case ev, ok := <-c.Transport.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case cluster.EventNewMember:
				c.Registry.Register(ev.PeerID, ev.Metadata)
				log.Info().Str("actor_id", ev.Metadata.ActorID).Str("kind", ev.Metadata.Kind).
					Str("name", ev.Metadata.Name).Msg("coordinator: actor joined")
			case cluster.EventMemberLeft:
				c.Registry.Unregister(ev.PeerID)
				if n := c.Pending.FailPeer(ev.PeerID); n > 0 {
					log.Warn().Str("peer_id", ev.PeerID).Int("tasks_failed", n).
						Msg("coordinator: failing pending tasks for departed worker")
				}
				log.Info().Str("actor_id", ev.Metadata.ActorID).Msg("coordinator: actor left")
			}
		case <-stop:
			return
		}
	}
}

// HandleFrame processes one inbound frame from a worker connection: only
// INVOKE_RESPONSE frames matter here and every other kind is ignored. The
// transport consumes a peer's opening JOIN itself, and a departure is
// reported by the connection closing, not by a LEAVE frame.
func (c *Coordinator) HandleFrame(peerID string, frame cluster.Frame) {
	if frame.Kind != cluster.FrameInvokeResponse {
		return
	}
	resp, err := frame.DecodeInvokeResponse()
	if err != nil {
		log.Warn().Err(err).Str("peer_id", peerID).Msg("coordinator: malformed invoke response")
		return
	}
	c.Pending.Deliver(resp)
}

// StartInvoke dispatches an invocation to the first actor registered under
// (kind, name), returning ErrNotFound synchronously if none is registered.
// deliver is called for every response frame the worker produces, matching
// PendingTable.Deliver's contract.
func (c *Coordinator) StartInvoke(ctx context.Context, kind, name string, req protocol.InvokeRequest, deliver func(protocol.InvokeResponse)) error {
	peerID, ok := c.Registry.Resolve(kind, name)
	if !ok {
		return ErrNotFound
	}

	if c.RetryCache != nil {
		if cached, found, err := c.RetryCache.Get(ctx, req.TaskID); err == nil && found {
			deliver(cached)
			return nil
		}
	}

	wrapped := deliver
	if c.RetryCache != nil || c.Audit != nil {
		wrapped = func(resp protocol.InvokeResponse) {
			if resp.IsTerminal() {
				if c.RetryCache != nil {
					if err := c.RetryCache.Put(ctx, req.TaskID, resp); err != nil {
						log.Warn().Err(err).Msg("coordinator: retry cache put failed")
					}
				}
				if c.Audit != nil {
					if err := c.Audit.Record(ctx, req, kind, name, resp); err != nil {
						log.Warn().Err(err).Msg("coordinator: audit record failed")
					}
				}
			}
			deliver(resp)
		}
	}

	c.Pending.Add(req.TaskID, peerID, wrapped)

	frame, err := cluster.EncodeInvokeRequest(req)
	if err != nil {
		c.Pending.Cancel(req.TaskID)
		return fmt.Errorf("coordinator: encode request: %w", err)
	}
	if err := c.Transport.Send(peerID, frame); err != nil {
		log.Warn().Err(err).Str("peer_id", peerID).Str("task_id", req.TaskID).
			Msg("coordinator: send failed, retrying once")
		if c.RetryCache != nil {
			if cached, found, cerr := c.RetryCache.Get(ctx, req.TaskID); cerr == nil && found {
				c.Pending.Deliver(cached)
				return nil
			}
		}
		if err := c.Transport.Send(peerID, frame); err != nil {
			c.Pending.Cancel(req.TaskID)
			return fmt.Errorf("coordinator: send to worker: %w", err)
		}
	}
	return nil
}
