package coordinator

import (
	"testing"
	"time"

	"github.com/jkachika/galileo/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeNodes() []topology.Node {
	return []topology.Node{
		{Hostname: "node1", Port: 9000},
		{Hostname: "node2", Port: 9000},
		{Hostname: "node3", Port: 9000},
	}
}

func TestCoordinatorCompletesOnLastReply(t *testing.T) {
	done := make(chan struct{})
	var result interface{}
	var missing []string

	c := New(AppendListMerge, []string{}, func(r interface{}, m []string) {
		result, missing = r, m
		close(done)
	})

	dests := threeNodes()
	c.Dispatch(dests, time.Minute)
	assert.Equal(t, Waiting, c.State())

	c.Reply("node1:9000", []string{"a"})
	c.Reply("node2:9000", []string{"b"})
	c.Reply("node3:9000", []string{"c"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coordinator did not complete")
	}

	assert.Equal(t, Complete, c.State())
	assert.Empty(t, missing)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, result)
}

func TestCoordinatorPartialFailureRecordsMissing(t *testing.T) {
	done := make(chan struct{})
	var missing []string

	c := New(AppendListMerge, []string{}, func(_ interface{}, m []string) {
		missing = m
		close(done)
	})

	c.Dispatch(threeNodes(), 50*time.Millisecond)
	c.Reply("node1:9000", []string{"a"})
	c.Reply("node3:9000", []string{"c"})
	// node2 never replies; deadline should fire.

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coordinator did not complete on deadline")
	}

	assert.Equal(t, []string{"node2:9000"}, missing)
}

func TestCoordinatorIgnoresReplyFromUnknownHost(t *testing.T) {
	done := make(chan struct{})
	c := New(AppendListMerge, []string{}, func(interface{}, []string) { close(done) })
	c.Dispatch(threeNodes(), time.Minute)

	c.Reply("not-a-destination:9000", []string{"x"})
	assert.Equal(t, Waiting, c.State())

	c.Reply("node1:9000", nil)
	c.Reply("node2:9000", nil)
	c.Reply("node3:9000", nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coordinator did not complete")
	}
}

func TestCoordinatorCancelSkipsOnComplete(t *testing.T) {
	called := false
	c := New(AppendListMerge, []string{}, func(interface{}, []string) { called = true })
	c.Dispatch(threeNodes(), time.Minute)

	c.Cancel()
	assert.Equal(t, Complete, c.State())
	assert.False(t, called)

	// a late reply after cancellation must not reopen the coordinator
	c.Reply("node1:9000", []string{"late"})
	assert.False(t, called)
}

func TestCoordinatorWithNoDestinationsCompletesImmediately(t *testing.T) {
	done := make(chan struct{})
	c := New(AppendListMerge, []string{}, func(interface{}, []string) { close(done) })
	c.Dispatch(nil, time.Minute)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("coordinator with zero destinations never completed")
	}
	assert.Equal(t, Complete, c.State())
}

func TestHostKeyedMergeKeysByHostname(t *testing.T) {
	var acc interface{} = map[string]interface{}{}
	acc = HostKeyedMerge(acc, "node1:9000", "payload1")
	acc = HostKeyedMerge(acc, "node2:9000", "payload2")

	m := acc.(map[string]interface{})
	require.Len(t, m, 2)
	assert.Equal(t, "payload1", m["node1:9000"])
	assert.Equal(t, "payload2", m["node2:9000"])
}

func TestTableRegisterLookupUnregister(t *testing.T) {
	table := NewTable()
	c := New(AppendListMerge, []string{}, nil)
	table.Register("req-1", c)

	got, ok := table.Lookup("req-1")
	require.True(t, ok)
	assert.Same(t, c, got)

	table.Unregister("req-1")
	_, ok = table.Lookup("req-1")
	assert.False(t, ok)
}
