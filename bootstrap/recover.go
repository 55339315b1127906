package bootstrap

import (
	"fmt"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/htmlpoly"
	"github.com/wahpkg/wah/wasiconfig"
	"github.com/wahpkg/wah/wasmsection"
)

// bootExecutableName is the fixed stage-0 payload module path.
const bootExecutableName = "boot/wah-init.wasm"

// BootResult is the stage-0 handoff: the recovered file tree, its
// in-memory filesystem, and the boot module located within it — a
// (boot_wasm_bytes, compiled_module, file_entries) triple.
type BootResult struct {
	Entries      []api.FileEntry
	FS           *wasiconfig.FS
	Root         wasiconfig.Handle
	Module       *wasmsection.Module
	BootBytes    []byte
	Stage1Script []byte

	quiet bool
}

// Quiet reports whether no boot/wah-init.wasm entry was present. This is
// not an error: the caller is expected to clear the document's
// stage0_error slot and stop, rather than fall back.
func (b *BootResult) Quiet() bool {
	return b.quiet
}

// Recover scans artifactBytes for wah_polyglot_data envelopes, validates
// each entry's declared size against its decoded payload, assembles the
// in-memory filesystem, and locates the boot executable.
func Recover(artifactBytes []byte) (*BootResult, error) {
	entries, err := htmlpoly.Recover(artifactBytes)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(entries))
	var bootBytes []byte
	haveBoot := false
	for _, e := range entries {
		if e.Header.Typeflag == api.TypeDirectory || e.Header.Typeflag == api.TypeExternalRef {
			continue
		}
		if int64(len(e.Data)) != e.Header.Size {
			return nil, fmt.Errorf("bootstrap: entry %q declares size %d but decoded to %d bytes: %w",
				e.Header.Name, e.Header.Size, len(e.Data), api.ErrBadFile)
		}
		files[e.Header.Name] = e.Data
		if e.Header.Name == bootExecutableName {
			bootBytes = e.Data
			haveBoot = true
		}
	}

	if !haveBoot {
		return &BootResult{Entries: entries, quiet: true}, nil
	}

	module, err := wasmsection.Parse(bootBytes)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: compiling %s: %w", bootExecutableName, err)
	}
	if err := module.CheckUnique(); err != nil {
		return nil, err
	}

	var stage1 []byte
	if sections := module.CustomSections(wasmsection.NameStage1); len(sections) > 0 {
		stage1 = sections[0]
	}

	fs := wasiconfig.NewFS()
	root := fs.BuildTree(files)

	return &BootResult{
		Entries:      entries,
		FS:           fs,
		Root:         root,
		Module:       module,
		BootBytes:    bootBytes,
		Stage1Script: stage1,
	}, nil
}
