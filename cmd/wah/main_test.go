package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wahpkg/wah/wasmsection"
)

func runMain(args []string) (int, string, string) {
	flag.CommandLine = flag.NewFlagSet("wah", flag.ContinueOnError)
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = append([]string{"wah"}, args...)
	code := doMain(stdOut, stdErr)
	return code, stdOut.String(), stdErr.String()
}

func TestHelp(t *testing.T) {
	code, _, stdErr := runMain([]string{"-h"})
	require.Equal(t, 0, code)
	require.Contains(t, stdErr, "wah CLI\n\nUsage:")
}

func TestPackAndRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "boot"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "boot", "init"), []byte("entrypoint"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "init.mjs"), []byte("export default function(){}"), 0o644))

	module := &wasmsection.Module{Sections: []wasmsection.Section{{ID: 1, Payload: []byte{0x00}}}}
	modulePath := filepath.Join(dir, "module.wasm")
	require.NoError(t, os.WriteFile(modulePath, module.Bytes(), 0o644))

	artifactPath := filepath.Join(dir, "out.wasm.html")
	code, _, stdErr := runMain([]string{"pack", "-module", modulePath, "-src", filepath.Join(dir, "src"), "-o", artifactPath})
	require.Equal(t, 0, code, stdErr)

	destDir := filepath.Join(dir, "recovered")
	code, _, stdErr = runMain([]string{"recover", "-artifact", artifactPath, "-dest", destDir})
	require.Equal(t, 0, code, stdErr)

	got, err := os.ReadFile(filepath.Join(destDir, "boot", "init"))
	require.NoError(t, err)
	require.Equal(t, "entrypoint", string(got))
}

func TestErrors(t *testing.T) {
	code, _, stdErr := runMain([]string{"pack"})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr, "pack requires")
}
