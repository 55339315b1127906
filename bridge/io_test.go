package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/api"
)

func TestIOBinding_File(t *testing.T) {
	path := "/tmp/out"
	b := IOBinding{File: &path}
	got, err := b.Resolve()
	require.NoError(t, err)
	require.Equal(t, path, got)
}

func TestIOBinding_Pipe(t *testing.T) {
	yes := true
	b := IOBinding{Pipe: &yes}
	got, err := b.Resolve()
	require.NoError(t, err)
	require.Regexp(t, `^io-[0-9a-f-]{36}$`, got)
}

func TestIOBinding_Null(t *testing.T) {
	yes := true
	b := IOBinding{Null: &yes}
	got, err := b.Resolve()
	require.NoError(t, err)
	require.Equal(t, "/dev/null", got)
}

func TestIOBinding_RejectsZeroKeys(t *testing.T) {
	_, err := IOBinding{}.Resolve()
	require.ErrorIs(t, err, api.ErrBadIoBinding)
}

func TestIOBinding_RejectsMultipleKeys(t *testing.T) {
	path := "/tmp/out"
	yes := true
	_, err := IOBinding{File: &path, Pipe: &yes}.Resolve()
	require.ErrorIs(t, err, api.ErrBadIoBinding)
}
