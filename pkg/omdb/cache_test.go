package omdb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Basics(t *testing.T) {
	c := NewCache()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("dune: part two"))

	c.Set("dune: part two", json.RawMessage(`{"Title":"Dune: Part Two"}`))
	assert.True(t, c.Has("dune: part two"))
	assert.Equal(t, 1, c.Len())

	data := c.Get("dune: part two")
	require.NotNil(t, data)
	assert.JSONEq(t, `{"Title":"Dune: Part Two"}`, string(data))

	assert.Nil(t, c.Get("missing"))
}

func TestCache_ReplaceAndSnapshot(t *testing.T) {
	c := NewCache()
	c.Set("old", json.RawMessage(`{}`))

	c.Replace(map[string]json.RawMessage{
		"the matrix": json.RawMessage(`{"Title":"The Matrix"}`),
	})
	assert.False(t, c.Has("old"))
	assert.True(t, c.Has("the matrix"))

	snap := c.Snapshot()
	require.Len(t, snap, 1)

	// The snapshot is detached from subsequent writes.
	c.Set("later", json.RawMessage(`{}`))
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, c.Len())
}
