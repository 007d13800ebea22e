package publish_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lAndbz/opcua-processor/publish"
	"github.com/lAndbz/opcua-processor/ua"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := publish.NewQueue(0)
	require.NoError(t, q.Push(publish.Slot{RequestHeader: ua.RequestHeader{RequestHandle: 1}}))
	require.NoError(t, q.Push(publish.Slot{RequestHeader: ua.RequestHeader{RequestHandle: 2}}))

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(1), first.RequestHeader.RequestHandle)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(2), second.RequestHeader.RequestHandle)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := publish.NewQueue(1)
	require.NoError(t, q.Push(publish.Slot{}))

	err := q.Push(publish.Slot{})
	assert.ErrorIs(t, err, publish.ErrTooManyPublishRequests)
	assert.Equal(t, 1, q.Len())
}

func TestQueueUnboundedByDefault(t *testing.T) {
	q := publish.NewQueue(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Push(publish.Slot{}))
	}
	assert.Equal(t, 100, q.Len())
}

func TestQueueCloseDrainsAndNoOps(t *testing.T) {
	q := publish.NewQueue(0)
	require.NoError(t, q.Push(publish.Slot{}))
	q.Close()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.NoError(t, q.Push(publish.Slot{}))
	assert.Equal(t, 0, q.Len())
}
