package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/wasiconfig"
	"github.com/wahpkg/wah/wasmsection"
)

// exitSentinel is the success exit string: thrown by a user program in
// lieu of a real exception to signal a normal, zero-status exit.
const exitSentinel = "exit with exit code 0"

// Stage2Handoff is what RunStage1 hands to RunStage2: the boot module's
// bytes, the fully-resolved (no more external refs) file entries and
// filesystem, and the stage-2 init script extracted from the module.
type Stage2Handoff struct {
	WasmBytes    []byte
	Module       *wasmsection.Module
	Entries      []api.FileEntry
	FS           *wasiconfig.FS
	Root         wasiconfig.Handle
	Stage2Script []byte
}

// RunStage1 extracts the stage-2 script and resolves every external
// reference entry through fetch: each URL is fetched and the result is
// written back to the file entry's data. All fetches must settle before
// handing off.
func RunStage1(ctx context.Context, br *BootResult, fetch Fetcher) (*Stage2Handoff, error) {
	sections := br.Module.CustomSections(wasmsection.NameStage2)
	if len(sections) == 0 {
		return nil, api.ErrMissingStage2
	}
	if len(sections) > 1 {
		return nil, fmt.Errorf("bootstrap: %s: %w", wasmsection.NameStage2, api.ErrDuplicateSection)
	}

	entries := make([]api.FileEntry, len(br.Entries))
	copy(entries, br.Entries)

	g, gctx := errgroup.WithContext(ctx)
	for i := range entries {
		if !entries[i].IsExternalRef() {
			continue
		}
		i := i
		g.Go(func() error {
			b, err := fetch(gctx, entries[i].Header.Linkname)
			if err != nil {
				return fmt.Errorf("bootstrap: fetching %s: %w", entries[i].Header.Linkname, err)
			}
			entries[i].Data = b
			entries[i].Header.Size = int64(len(b))
			entries[i].Header.Typeflag = api.TypeRegular
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.Header.Typeflag == api.TypeDirectory {
			continue
		}
		files[e.Header.Name] = e.Data
	}
	fs := wasiconfig.NewFS()
	root := fs.BuildTree(files)

	return &Stage2Handoff{
		WasmBytes:    br.BootBytes,
		Module:       br.Module,
		Entries:      entries,
		FS:           fs,
		Root:         root,
		Stage2Script: sections[0],
	}, nil
}

// BootOutcome is what RunStage2 produces: the realized WASI
// configuration and the resolved end-of-boot entry.
type BootOutcome struct {
	Config   *wasiconfig.Config
	Ops      []any
	InitJS   []byte
	ExitCode int
}

// RunStage2 runs the configuration evaluator, checks that boot/init is
// present (see runInit), and resolves init.mjs.
func RunStage2(handoff *Stage2Handoff, unsafeExec wasiconfig.UnsafeExecFunc) (*BootOutcome, error) {
	configSections := handoff.Module.CustomSections(wasmsection.NameWASIConfig)
	if len(configSections) > 1 {
		return nil, fmt.Errorf("bootstrap: %s: %w", wasmsection.NameWASIConfig, api.ErrDuplicateConfig)
	}

	e := wasiconfig.NewEvaluator(handoff.Module, handoff.WasmBytes)
	e.FS = handoff.FS
	e.UnsafeExec = unsafeExec

	var ops []any
	if len(configSections) == 1 {
		prog, err := wasiconfig.DecodeProgram(configSections[0])
		if err != nil {
			return nil, fmt.Errorf("bootstrap: decoding %s: %w", wasmsection.NameWASIConfig, err)
		}
		ops, err = e.Eval(prog)
		if err != nil {
			return nil, err
		}
	}
	// Absence of wah_wasi_config substitutes an empty configuration
	// object: the Config the evaluator already holds, untouched by any
	// instruction.

	status, err := runInit(handoff, "boot/init")
	if err != nil {
		return nil, err
	}

	initJS, ok := e.FS.Resolve(handoff.Root, "init.mjs")
	if !ok {
		return nil, api.ErrNoInitModule
	}
	node, _ := e.FS.Lookup(initJS)
	file, ok := node.(*wasiconfig.File)
	if !ok {
		return nil, api.ErrNoInitModule
	}

	return &BootOutcome{
		Config:   e.Config(),
		Ops:      ops,
		InitJS:   file.Data,
		ExitCode: status,
	}, nil
}

// runInit resolves path in the handoff filesystem and reports status 0
// when the entry exists. This model doesn't execute WebAssembly, so
// "invoking" an entry is only looking it up; no exit string is ever
// produced here, and ExitSentinel is not consulted.
func runInit(handoff *Stage2Handoff, path string) (int, error) {
	h, ok := handoff.FS.Resolve(handoff.Root, path)
	if !ok {
		return 0, fmt.Errorf("bootstrap: %s: %w", path, api.ErrNoBootExecutable)
	}
	if _, ok := handoff.FS.Lookup(h); !ok {
		return 0, fmt.Errorf("bootstrap: %s: %w", path, api.ErrNoBootExecutable)
	}
	return 0, nil
}

// ExitSentinel reports whether msg is the success exit string that
// settles a process with status=0 without invoking the fallback shell.
func ExitSentinel(msg string) bool {
	return msg == exitSentinel
}
