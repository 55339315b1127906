package tarpax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/api"
)

func TestRoundTrip_SingleFile(t *testing.T) {
	w := NewWriter()
	entry := api.FileEntry{
		Header: api.TarHeader{
			Name:     "boot/wah-init.wasm",
			Mode:     0o644,
			Size:     4,
			ModTime:  time.Unix(1700000000, 0).UTC(),
			Typeflag: api.TypeRegular,
		},
		Data: []byte("\x00asm"),
	}
	require.NoError(t, w.WriteEntry(entry))
	out := w.Close()

	got, err := ReadAll(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, entry.Header.Name, got[0].Header.Name)
	require.Equal(t, entry.Data, got[0].Data)
}

func TestRoundTrip_MultipleFilesAndDirectory(t *testing.T) {
	w := NewWriter()
	entries := []api.FileEntry{
		{Header: api.TarHeader{Name: "a/", Typeflag: api.TypeDirectory}},
		{Header: api.TarHeader{Name: "a/b.txt", Typeflag: api.TypeRegular, Size: 3}, Data: []byte("xyz")},
		{Header: api.TarHeader{Name: "a/link", Typeflag: api.TypeSymlink, Linkname: "b.txt"}},
	}
	for _, e := range entries {
		require.NoError(t, w.WriteEntry(e))
	}
	out := w.Close()

	got, err := ReadAll(out)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "a/", got[0].Header.Name)
	require.Equal(t, byte(api.TypeDirectory), got[0].Header.Typeflag)
	require.Equal(t, []byte("xyz"), got[1].Data)
	require.Equal(t, "b.txt", got[2].Header.Linkname)
}

func TestRoundTrip_LongNameViaPaxRecord(t *testing.T) {
	longName := ""
	for i := 0; i < 20; i++ {
		longName += "deeply/nested/directory/"
	}
	longName += "file.txt"
	require.Greater(t, len(longName), widName)

	w := NewWriter()
	require.NoError(t, w.WriteEntry(api.FileEntry{
		Header: api.TarHeader{Name: longName, Typeflag: api.TypeRegular, Size: 1},
		Data:   []byte("x"),
	}))
	out := w.Close()

	got, err := ReadAll(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, longName, got[0].Header.Name)
}

func TestExternalReferenceTypeflag(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteEntry(api.FileEntry{
		Header: api.TarHeader{
			Name:     "lib/external.wasm",
			Typeflag: api.TypeExternalRef,
			Linkname: "https://example.invalid/external.wasm",
		},
	}))
	out := w.Close()

	got, err := ReadAll(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].IsExternalRef())
	require.Equal(t, "https://example.invalid/external.wasm", got[0].Header.Linkname)
}

func TestReadEntry_TruncatedArchive(t *testing.T) {
	r := NewReader(make([]byte, 10))
	_, err := r.ReadEntry()
	require.ErrorIs(t, err, api.ErrTruncatedArchive)
}

func TestReadEntry_BadHeaderOctalField(t *testing.T) {
	block := make([]byte, BlockSize)
	copy(block[offMode:offMode+widMode], "not-octal")
	r := NewReader(block)
	_, err := r.ReadEntry()
	require.ErrorIs(t, err, api.ErrBadHeader)
}

func TestEmptyArchive(t *testing.T) {
	w := NewWriter()
	got, err := ReadAll(w.Close())
	require.NoError(t, err)
	require.Empty(t, got)
}
