package wah

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/bootstrap"
	"github.com/wahpkg/wah/htmlpoly"
	"github.com/wahpkg/wah/tarpax"
	"github.com/wahpkg/wah/wasiconfig"
	"github.com/wahpkg/wah/wasmsection"
)

func minimalModule() *wasmsection.Module {
	return &wasmsection.Module{Sections: []wasmsection.Section{
		{ID: 1, Payload: []byte{0x00}},
	}}
}

func fileEntry(name string, data []byte) api.FileEntry {
	return api.FileEntry{
		Header: api.TarHeader{Name: name, Size: int64(len(data)), Typeflag: api.TypeRegular, ModTime: time.Unix(0, 0)},
		Data:   data,
	}
}

// TestPack_Invariance checks that the packed artifact
// parses as a superset of the original module's sections, unchanged.
func TestPack_Invariance(t *testing.T) {
	module := minimalModule()
	var files []api.FileEntry

	artifact, err := Pack(NewPackConfig().WithStage0([]byte("boot header")), module, files)
	require.NoError(t, err)

	recovered, err := htmlpoly.Recover(artifact)
	require.NoError(t, err)
	var bootBytes []byte
	for _, e := range recovered {
		if e.Header.Name == bootExecutableName {
			bootBytes = e.Data
		}
	}
	require.NotNil(t, bootBytes, "boot executable entry must be present")

	parsed, err := wasmsection.Parse(bootBytes)
	require.NoError(t, err)

	var foundOriginal, foundStage0 bool
	for _, s := range parsed.Sections {
		if s.ID == 1 {
			foundOriginal = true
		}
		if n, ok := s.Name(); ok && n == wasmsection.NameStage0 {
			require.Equal(t, []byte("boot header"), s.Data())
			foundStage0 = true
		}
	}
	require.True(t, foundOriginal, "original section must survive Pack")
	require.True(t, foundStage0, "stage0 section must be present")
}

// TestPack_TarStreamIsBlockAligned checks that the tar stream begins at
// a 512-byte aligned offset from the start of the artifact, so a
// standards-conforming reader seeking fixed-size blocks from byte 0
// never desyncs against the preceding WebAssembly module.
func TestPack_TarStreamIsBlockAligned(t *testing.T) {
	module := minimalModule()
	files := []api.FileEntry{fileEntry("a", []byte("x"))}

	artifact, err := Pack(NewPackConfig().WithStage0([]byte("boot header")), module, files)
	require.NoError(t, err)

	bootBytes, err := htmlpoly.Recover(artifact)
	require.NoError(t, err)
	var moduleLen int
	for _, e := range bootBytes {
		if e.Header.Name == bootExecutableName {
			moduleLen = len(e.Data)
		}
	}
	require.NotZero(t, moduleLen)

	tarStart := moduleLen + tarpax.PadToBlock(moduleLen)
	require.Zero(t, tarStart%tarpax.BlockSize)
	require.Less(t, tarStart, len(artifact))

	entries, err := tarpax.ReadAll(artifact[tarStart:])
	require.NoError(t, err)
	require.True(t, len(entries) > 0)
}

// TestPack_HelloWorldRoundTrip checks that a packed
// artifact recovers its full file tree, and its boot executable's
// embedded config program evaluates back to the same args it was
// assembled with.
func TestPack_HelloWorldRoundTrip(t *testing.T) {
	module := minimalModule()

	asm := wasiconfig.NewAssembler()
	argsKey := asm.String("args")
	argv := asm.JSON([]byte(`["hello","world"]`))
	asm.Set(0, argsKey, argv)
	prog := asm.Assemble()

	files := []api.FileEntry{
		fileEntry("boot/init", []byte("entrypoint")),
		fileEntry("init.mjs", []byte("export default function(){}")),
	}

	cfg := NewPackConfig().
		WithStage0([]byte("boot header")).
		WithStage1([]byte("stage1 loader")).
		WithStage2([]byte("stage2 init")).
		WithWASIConfig(prog)

	artifact, err := Pack(cfg, module, files)
	require.NoError(t, err)

	recovered, err := htmlpoly.Recover(artifact)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range recovered {
		names[e.Header.Name] = true
	}
	require.True(t, names["boot/wah-init.wasm"])
	require.True(t, names["init.mjs"])

	br, err := bootstrap.Recover(artifact)
	require.NoError(t, err)
	require.False(t, br.Quiet())
	require.Equal(t, []byte("stage1 loader"), br.Stage1Script)

	handoff, err := bootstrap.RunStage1(context.Background(), br, nil)
	require.NoError(t, err)

	outcome, err := bootstrap.RunStage2(handoff, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("export default function(){}"), outcome.InitJS)
	require.Equal(t, []string{"hello", "world"}, outcome.Config.Args)
}
