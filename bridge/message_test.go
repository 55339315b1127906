package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/api"
)

func TestDecodeMessage_ElementSelect(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"element-select":{"ed":1,"selectors":[{"by-id":"x"}]}}`))
	require.NoError(t, err)
	require.Equal(t, "element-select", m.Key)
	require.Equal(t, ElementDescriptor(1), m.ElementSelect.ED)
	require.Equal(t, "x", *m.ElementSelect.Selectors[0].ByID)
}

func TestDecodeMessage_RejectsZeroKeys(t *testing.T) {
	_, err := DecodeMessage([]byte(`{}`))
	require.ErrorIs(t, err, api.ErrMultiKeyMessage)
}

func TestDecodeMessage_RejectsMultipleKeys(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"reap":{"fid":"1"},"error":{"message":"x"}}`))
	require.ErrorIs(t, err, api.ErrMultiKeyMessage)
}

func TestMessage_EncodeDecodeRoundTrip(t *testing.T) {
	status := 0
	m := &Message{Key: "reap", Reap: &Reap{FID: "1", Status: &status}}
	b, err := m.Encode()
	require.NoError(t, err)

	back, err := DecodeMessage(b)
	require.NoError(t, err)
	require.Equal(t, "reap", back.Key)
	require.Equal(t, "1", back.Reap.FID)
	require.Equal(t, 0, *back.Reap.Status)
}

func TestDecodeMessage_CreateProc(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"create-proc":{"args":["a"],"env":["K=V"],
		"stdin":{"null":true},"stdout":{"pipe":true},"stderr":{"file":"/dev/stderr"},"fid":"p1"}}`))
	require.NoError(t, err)
	require.Equal(t, "p1", m.CreateProc.FID)
	path, err := m.CreateProc.Stdout.Resolve()
	require.NoError(t, err)
	require.Contains(t, path, "io-")
}
