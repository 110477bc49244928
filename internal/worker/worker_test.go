package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/entity"
	"modelmesh/internal/protocol"
	"modelmesh/internal/runner"
	"modelmesh/internal/runner/runnertest"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	const eos = 99
	tok := runnertest.NewFakeTokenizer(eos)
	tok.Intern("hi", 1)
	tok.Intern("there", 2)
	backend := runnertest.NewFakeModelBackend([]uint32{1, 2}, eos)

	spec := runner.DefaultSpec()
	spec.Temperature = 0
	spec.SampleLen = 10

	r := runner.New(backend, tok, spec)
	meta := protocol.ActorMetadata{Name: "test", Kind: "chat", ActorID: "a1", ActorHost: "h1"}
	return NewNode(meta, r)
}

func TestNodeProcessNonStreamEmitsSuccessThenFinish(t *testing.T) {
	node := newTestNode(t)
	responses := make(chan protocol.InvokeResponse, 8)

	req := protocol.InvokeRequest{
		TaskID: "t1",
		Stream: false,
		Data:   []entity.Value{entity.FromMessage("user", "hi")},
	}
	require.NoError(t, node.Submit(req, func(r protocol.InvokeResponse) { responses <- r }))

	stop := make(chan struct{})
	go node.Run(stop)
	defer close(stop)

	first := <-responses
	assert.Equal(t, protocol.ResponseSuccess, first.Kind)

	second := <-responses
	assert.Equal(t, protocol.ResponseFinish, second.Kind)
}

func TestNodeProcessStreamEmitsOneSuccessPerDelta(t *testing.T) {
	node := newTestNode(t)
	responses := make(chan protocol.InvokeResponse, 8)

	req := protocol.InvokeRequest{
		TaskID: "t2",
		Stream: true,
		Data:   []entity.Value{entity.FromMessage("user", "hi")},
	}
	require.NoError(t, node.Submit(req, func(r protocol.InvokeResponse) { responses <- r }))

	stop := make(chan struct{})
	go node.Run(stop)
	defer close(stop)

	var kinds []protocol.ResponseKind
	for i := 0; i < 3; i++ {
		select {
		case r := <-responses:
			kinds = append(kinds, r.Kind)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for response")
		}
	}
	assert.Equal(t, []protocol.ResponseKind{
		protocol.ResponseSuccess, protocol.ResponseSuccess, protocol.ResponseFinish,
	}, kinds)
}

func TestNodeProcessRejectsRequestWithoutMessages(t *testing.T) {
	node := newTestNode(t)
	responses := make(chan protocol.InvokeResponse, 2)

	req := protocol.InvokeRequest{TaskID: "t3", Data: nil}
	require.NoError(t, node.Submit(req, func(r protocol.InvokeResponse) { responses <- r }))

	stop := make(chan struct{})
	go node.Run(stop)
	defer close(stop)

	resp := <-responses
	require.Equal(t, protocol.ResponseFailure, resp.Kind)
	assert.Equal(t, protocol.ErrorBadRequest, resp.Error.Kind)
}

func TestNodeSubmitRejectsWhenMailboxFull(t *testing.T) {
	node := newTestNode(t)
	for i := 0; i < mailboxDepth; i++ {
		err := node.Submit(protocol.InvokeRequest{TaskID: "filler"}, func(protocol.InvokeResponse) {})
		require.NoError(t, err)
	}
	err := node.Submit(protocol.InvokeRequest{TaskID: "overflow"}, func(protocol.InvokeResponse) {})
	assert.Error(t, err)
}
