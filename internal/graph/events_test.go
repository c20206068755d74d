package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheAmanM/next-client/internal/types"
)

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier(4)
	a := n.Watch()
	b := n.Watch()
	require.Equal(t, 2, n.Count())

	dropped := n.Publish(types.GraphEvent{Kind: types.GraphEventUpdated, Paths: []string{"/a"}, Generation: 1})
	assert.Zero(t, dropped)

	for _, ch := range []<-chan types.GraphEvent{a, b} {
		ev := <-ch
		assert.Equal(t, types.GraphEventUpdated, ev.Kind)
		assert.Equal(t, uint64(1), ev.Generation)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestNotifierDropsForSlowWatchers(t *testing.T) {
	n := NewNotifier(1)
	ch := n.Watch()

	assert.Zero(t, n.Publish(types.GraphEvent{Generation: 1}))
	assert.Equal(t, 1, n.Publish(types.GraphEvent{Generation: 2}))

	ev := <-ch
	assert.Equal(t, uint64(1), ev.Generation)
}

func TestNotifierUnWatchCloses(t *testing.T) {
	n := NewNotifier(1)
	ch := n.Watch()
	n.UnWatch(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, n.Count())

	// unknown channel is ignored
	n.UnWatch(make(chan types.GraphEvent))
}

func TestNotifierClose(t *testing.T) {
	n := NewNotifier(1)
	a := n.Watch()
	n.Close()

	_, open := <-a
	assert.False(t, open)
	assert.Zero(t, n.Publish(types.GraphEvent{}))
}
