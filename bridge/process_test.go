package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProcess_ExitSentinel checks exit-sentinel normalization.
func TestProcess_ExitSentinel(t *testing.T) {
	p := NewProcess("p1")
	require.Equal(t, ProcessPending, p.State())

	p.Settle("exit with exit code 0", []byte("hi"), nil)
	require.Equal(t, ProcessExited, p.State())
	require.Nil(t, p.Err())

	reap, ok := p.Reap()
	require.True(t, ok)
	require.Equal(t, 0, *reap.Status)
	require.Equal(t, []byte("hi"), reap.Stdout)
}

func TestProcess_CrashOnOtherThrow(t *testing.T) {
	p := NewProcess("p1")
	p.Settle("segmentation fault", nil, []byte("trace"))
	require.Equal(t, ProcessCrashed, p.State())
	require.Error(t, p.Err())
}

func TestProcess_SettleIsOneShot(t *testing.T) {
	p := NewProcess("p1")
	p.Settle("exit with exit code 0", nil, nil)
	p.Settle("segmentation fault", nil, nil) // second settle must be ignored
	require.Equal(t, ProcessExited, p.State())
}

func TestProcess_ReapNotOkWhilePending(t *testing.T) {
	p := NewProcess("p1")
	_, ok := p.Reap()
	require.False(t, ok)
}

func TestProcess_ExitWithoutThrow(t *testing.T) {
	p := NewProcess("p1")
	p.Exit(2, []byte("out"), []byte("err"))
	require.Equal(t, ProcessExited, p.State())
	reap, ok := p.Reap()
	require.True(t, ok)
	require.Equal(t, 2, *reap.Status)
}
