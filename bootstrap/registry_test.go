package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadIsContentAddressed(t *testing.T) {
	r := NewRegistry()

	m1, err := r.Load("a.mjs", []byte("same bytes"))
	require.NoError(t, err)
	m2, err := r.Load("b.mjs", []byte("same bytes"))
	require.NoError(t, err)

	require.Equal(t, m1.Key, m2.Key)
	require.Equal(t, 1, r.Len())

	m3, err := r.Load("c.mjs", []byte("different bytes"))
	require.NoError(t, err)
	require.NotEqual(t, m1.Key, m3.Key)
	require.Equal(t, 2, r.Len())

	found, ok := r.Lookup(m1.Key)
	require.True(t, ok)
	require.Equal(t, "a.mjs", found.Name)
}

func TestRegistry_RejectsEmptyBody(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load("empty.mjs", nil)
	require.Error(t, err)
}
