package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHashDeterministic(t *testing.T) {
	attrs := Object{"frameId": Int(0), "url": String("a.html")}

	h1, err := EventHash("onCommitted", attrs, 2)
	require.NoError(t, err)
	h2, err := EventHash("onCommitted", attrs.Clone(), 2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestEventHashChangesWithInput(t *testing.T) {
	attrs := Object{"frameId": Int(0)}
	base, err := EventHash("onCommitted", attrs, 1)
	require.NoError(t, err)

	other, err := EventHash("onCompleted", attrs, 1)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	other, err = EventHash("onCommitted", attrs, 2)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	other, err = EventHash("onCommitted", Object{"frameId": Int(1)}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

func TestEventHashNilAttributes(t *testing.T) {
	h1, err := EventHash("onCompleted", nil, 1)
	require.NoError(t, err)
	h2, err := EventHash("onCompleted", Object{}, 1)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestEventHashRejectsNull(t *testing.T) {
	_, err := EventHash("onCompleted", Object{"url": Null{}}, 1)
	assert.Error(t, err)
}

func TestTraceDigest(t *testing.T) {
	a := TraceDigest([]string{"h1", "h2"})
	assert.Equal(t, a, TraceDigest([]string{"h1", "h2"}))
	assert.NotEqual(t, a, TraceDigest([]string{"h2", "h1"}))
	assert.Len(t, TraceDigest(nil), 64)
}
