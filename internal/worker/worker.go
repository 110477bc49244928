// Package worker implements a worker node: it owns one inference runner,
// registers with a coordinator over the cluster transport, and serializes
// every decode call through a single dispatcher goroutine so the runner
// (which is not safe for concurrent use) only ever sees one invocation at
// a time.
package worker

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"modelmesh/internal/cluster"
	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
	"modelmesh/internal/runner"
)

// job is one queued invocation awaiting the dispatcher.
type job struct {
	req    protocol.InvokeRequest
	respond func(protocol.InvokeResponse)
}

// Node runs a single actor's mailbox: inbound requests are pushed onto a
// bounded channel and drained one at a time by Run.
type Node struct {
	Metadata protocol.ActorMetadata
	Runner   *runner.Runner

	queue chan job
}

const mailboxDepth = 64

func NewNode(meta protocol.ActorMetadata, r *runner.Runner) *Node {
	return &Node{
		Metadata: meta,
		Runner:   r,
		queue:    make(chan job, mailboxDepth),
	}
}

// Submit enqueues an invocation for processing. It returns an error only if
// the mailbox is full; Pump then replies with a NetworkError Failure for
// that task.
func (n *Node) Submit(req protocol.InvokeRequest, respond func(protocol.InvokeResponse)) error {
	select {
	case n.queue <- job{req: req, respond: respond}:
		return nil
	default:
		return fmt.Errorf("worker: mailbox full for actor %s", n.Metadata.ActorID)
	}
}

// Run drains the mailbox until stop is closed, processing exactly one job
// at a time in FIFO order.
func (n *Node) Run(stop <-chan struct{}) {
	for {
		select {
		case j := <-n.queue:
			n.process(j)
		case <-stop:
			return
		}
	}
}

func (n *Node) process(j job) {
	messages, err := extractMessages(j.req.Data)
	if err != nil {
		j.respond(protocol.NewFailure(j.req.TaskID, protocol.BadRequest(err.Error())))
		return
	}
	prompt := n.Runner.MapRequest(messages)

	if !j.req.Stream {
		text, err := n.Runner.Invoke(prompt)
		if err != nil {
			j.respond(protocol.NewFailure(j.req.TaskID, toActorError(err)))
			return
		}
		j.respond(protocol.NewSuccess(j.req.TaskID, []entity.Value{entity.String(text)}))
		j.respond(protocol.NewFinish(j.req.TaskID))
		return
	}

	err = n.Runner.InvokeStream(prompt, func(delta string) error {
		j.respond(protocol.NewSuccess(j.req.TaskID, []entity.Value{entity.String(delta)}))
		return nil
	})
	if err != nil {
		j.respond(protocol.NewFailure(j.req.TaskID, toActorError(err)))
		return
	}
	j.respond(protocol.NewFinish(j.req.TaskID))
}

// extractMessages requires the request's data column to hold exactly the
// MESSAGE-typed values the chat actor needs.
func extractMessages(data []entity.Value) ([]entity.Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("request must contain a MESSAGE column with role/content pairs")
	}
	out := make([]entity.Message, 0, len(data))
	for _, v := range data {
		m, err := v.AsMessage()
		if err != nil {
			return nil, fmt.Errorf("request must contain a MESSAGE column with role/content pairs")
		}
		out = append(out, m)
	}
	return out, nil
}

func toActorError(err error) protocol.ActorError {
	var ae protocol.ActorError
	if inner, ok := err.(protocol.ActorError); ok {
		return inner
	}
	ae = protocol.FatalError(err.Error())
	return ae
}

// Announce connects to the coordinator's cluster endpoint and sends this
// node's JOIN metadata, returning the live connection.
func Announce(coordinatorURL string, meta protocol.ActorMetadata) (*cluster.Conn, error) {
	conn, err := cluster.Dial(coordinatorURL, meta)
	if err != nil {
		return nil, fmt.Errorf("worker: announce to %s: %w", coordinatorURL, err)
	}
	log.Info().Str("actor_id", meta.ActorID).Str("coordinator", coordinatorURL).Msg("worker announced")
	return conn, nil
}

// Pump reads INVOKE_REQUEST frames off conn and submits them to the node,
// writing each InvokeResponse frame back to the same connection. It blocks
// until the connection closes.
func Pump(conn *cluster.Conn, node *Node) error {
	for {
		frame, err := conn.Recv()
		if err != nil {
			return err
		}
		if frame.Kind != cluster.FrameInvokeRequest {
			continue
		}
		req, err := frame.DecodeInvokeRequest()
		if err != nil {
			log.Warn().Err(err).Msg("worker: malformed invoke request")
			continue
		}

		respond := func(resp protocol.InvokeResponse) {
			out, err := cluster.EncodeInvokeResponse(resp)
			if err != nil {
				log.Error().Err(err).Msg("worker: encode response")
				return
			}
			if err := conn.Send(out); err != nil {
				log.Error().Err(err).Msg("worker: send response")
			}
		}

		if err := node.Submit(req, respond); err != nil {
			respond(protocol.NewFailure(req.TaskID, protocol.NetworkError(err.Error())))
		}
	}
}
