package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/htmlpoly"
	"github.com/wahpkg/wah/wasiconfig"
	"github.com/wahpkg/wah/wasmsection"
)

func bootModuleBytes(extra ...wasmsection.Section) []byte {
	m := &wasmsection.Module{}
	m.Prepend(extra...)
	return m.Bytes()
}

func fileEntry(name string, data []byte) api.FileEntry {
	return api.FileEntry{
		Header: api.TarHeader{Name: name, Typeflag: api.TypeRegular, Size: int64(len(data))},
		Data:   data,
	}
}

// TestRecover_HappyPath checks the happy path (size-field
// integrity) and §4.6's filesystem assembly.
func TestRecover_HappyPath(t *testing.T) {
	boot := bootModuleBytes(wasmsection.NewCustomSection(wasmsection.NameStage1, []byte("loader-script")))
	entries := []api.FileEntry{
		fileEntry("boot/wah-init.wasm", boot),
		fileEntry("hello.txt", []byte("hi")),
		fileEntry("dir/a.bin", []byte{0x01, 0x02}),
	}

	artifact := htmlpoly.Wrap(entries)
	br, err := Recover(artifact)
	require.NoError(t, err)
	require.False(t, br.Quiet())
	require.Equal(t, []byte("loader-script"), br.Stage1Script)
	require.Equal(t, boot, br.BootBytes)

	h, ok := br.FS.Resolve(br.Root, "hello.txt")
	require.True(t, ok)
	node, ok := br.FS.Lookup(h)
	require.True(t, ok)
	require.Equal(t, []byte("hi"), node.(*wasiconfig.File).Data)
}

func TestRecover_NoBootFileIsQuiet(t *testing.T) {
	entries := []api.FileEntry{fileEntry("readme.txt", []byte("n/a"))}
	artifact := htmlpoly.Wrap(entries)

	br, err := Recover(artifact)
	require.NoError(t, err)
	require.True(t, br.Quiet())
}

// TestRecover_SizeMismatchFailsBadFile checks the
// negative case: a declared size larger than the decoded payload.
func TestRecover_SizeMismatchFailsBadFile(t *testing.T) {
	e := fileEntry("boot/wah-init.wasm", []byte("short"))
	e.Header.Size = int64(len("short")) + 5 // lie about the size

	artifact := htmlpoly.Wrap([]api.FileEntry{e})
	_, err := Recover(artifact)
	require.ErrorIs(t, err, api.ErrBadFile)
}

// TestRecover_SizeMismatchFailsBadFile_DeclaredTooSmall checks the
// opposite direction: a declared size smaller than the decoded
// payload must also fail with ErrBadFile, rather than having the extra
// bytes silently dropped before the check ever runs.
func TestRecover_SizeMismatchFailsBadFile_DeclaredTooSmall(t *testing.T) {
	e := fileEntry("boot/wah-init.wasm", []byte("a longer payload than declared"))
	e.Header.Size = 5 // lie about the size, short this time

	artifact := htmlpoly.Wrap([]api.FileEntry{e})
	_, err := Recover(artifact)
	require.ErrorIs(t, err, api.ErrBadFile)
}

// TestRecover_DuplicateStage1FailsDuplicateSection checks that a second
// wah_polyglot_stage1 section is rejected rather than silently resolved
// to the first occurrence.
func TestRecover_DuplicateStage1FailsDuplicateSection(t *testing.T) {
	boot := bootModuleBytes(
		wasmsection.NewCustomSection(wasmsection.NameStage1, []byte("a")),
		wasmsection.NewCustomSection(wasmsection.NameStage1, []byte("b")),
	)
	artifact := htmlpoly.Wrap([]api.FileEntry{fileEntry("boot/wah-init.wasm", boot)})

	_, err := Recover(artifact)
	require.ErrorIs(t, err, api.ErrDuplicateSection)
}

// TestRecover_DuplicateStage0FailsDuplicateSection checks the same for
// wah_polyglot_stage0, which Recover doesn't otherwise read but must
// still validate.
func TestRecover_DuplicateStage0FailsDuplicateSection(t *testing.T) {
	boot := bootModuleBytes(
		wasmsection.NewCustomSection(wasmsection.NameStage0, []byte("a")),
		wasmsection.NewCustomSection(wasmsection.NameStage0, []byte("b")),
	)
	artifact := htmlpoly.Wrap([]api.FileEntry{fileEntry("boot/wah-init.wasm", boot)})

	_, err := Recover(artifact)
	require.ErrorIs(t, err, api.ErrDuplicateSection)
}

func TestRecover_EmptyArtifact(t *testing.T) {
	br, err := Recover(htmlpoly.Wrap(nil))
	require.NoError(t, err)
	require.True(t, br.Quiet())
}
