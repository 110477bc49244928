package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/internal/protocol"
)

func TestPendingTableDeliversSuccessWithoutRemoving(t *testing.T) {
	p := NewPendingTable(time.Minute)
	var got []protocol.InvokeResponse
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) { got = append(got, r) })

	ok := p.Deliver(protocol.NewSuccess("t1", nil))
	require.True(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestPendingTableRemovesOnTerminal(t *testing.T) {
	p := NewPendingTable(time.Minute)
	var got []protocol.InvokeResponse
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) { got = append(got, r) })

	p.Deliver(protocol.NewSuccess("t1", nil))
	ok := p.Deliver(protocol.NewFinish("t1"))
	require.True(t, ok)
	assert.Equal(t, 0, p.Len())
	assert.Len(t, got, 2)
}

func TestPendingTableDeliverUnknownTaskReturnsFalse(t *testing.T) {
	p := NewPendingTable(time.Minute)
	ok := p.Deliver(protocol.NewFinish("ghost"))
	assert.False(t, ok)
}

func TestPendingTableSweepFailsExpiredEntries(t *testing.T) {
	p := NewPendingTable(10 * time.Millisecond)
	var got protocol.InvokeResponse
	done := make(chan struct{})
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) {
		got = r
		close(done)
	})

	time.Sleep(20 * time.Millisecond)
	n := p.sweepOnce(time.Now())
	assert.Equal(t, 1, n)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout delivery never arrived")
	}
	assert.Equal(t, protocol.ResponseFailure, got.Kind)
	assert.Equal(t, protocol.ErrorFatal, got.Error.Kind)
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, 0, p.Len())
}

func TestPendingTableCancelRemovesWithoutDelivering(t *testing.T) {
	p := NewPendingTable(time.Minute)
	called := false
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) { called = true })
	p.Cancel("t1")
	assert.Equal(t, 0, p.Len())
	assert.False(t, called)
}

func TestPendingTableFailPeerEvictsOnlyMatchingPeer(t *testing.T) {
	p := NewPendingTable(time.Minute)
	var failed []protocol.InvokeResponse
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) { failed = append(failed, r) })
	p.Add("t2", "peer-2", func(r protocol.InvokeResponse) { failed = append(failed, r) })

	n := p.FailPeer("peer-1")
	assert.Equal(t, 1, n)
	require.Len(t, failed, 1)
	assert.Equal(t, "t1", failed[0].TaskID)
	assert.Equal(t, protocol.ErrorNetwork, failed[0].Error.Kind)
	assert.Equal(t, 1, p.Len())
}

func TestPendingTableFailPeerNoMatchIsNoop(t *testing.T) {
	p := NewPendingTable(time.Minute)
	p.Add("t1", "peer-1", func(r protocol.InvokeResponse) {})
	n := p.FailPeer("peer-2")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, p.Len())
}
