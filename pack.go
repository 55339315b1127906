// Package wah packs a WebAssembly module and a file tree into a single
// polyglot artifact: valid WebAssembly, valid HTML, and a valid
// pax-extended tar archive all at once.
package wah

import (
	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/htmlpoly"
	"github.com/wahpkg/wah/tarpax"
	"github.com/wahpkg/wah/wasiconfig"
	"github.com/wahpkg/wah/wasmsection"
)

// PackConfig holds the inputs Pack assembles into an artifact. The zero
// value is usable; With* methods return a modified clone so a base
// config can be reused across several Pack calls without aliasing.
type PackConfig struct {
	stage0       []byte
	stage1HTML   []byte
	stage1       []byte
	stage2       []byte
	wasiConfig   wasiconfig.Program
	hasWASIConfig bool
	bindgen      []byte
}

// NewPackConfig returns an empty PackConfig.
func NewPackConfig() *PackConfig {
	return &PackConfig{}
}

func (c *PackConfig) clone() *PackConfig {
	ret := *c
	return &ret
}

// WithStage0 sets the wah_polyglot_stage0 payload: the boot HTML header
// and escape table, sized so it sits inside the HTML sniffer's
// first-1KiB window.
func (c *PackConfig) WithStage0(script []byte) *PackConfig {
	ret := c.clone()
	ret.stage0 = script
	return ret
}

// WithStage1HTML sets the optional wah_polyglot_stage1_html page body.
func (c *PackConfig) WithStage1HTML(body []byte) *PackConfig {
	ret := c.clone()
	ret.stage1HTML = body
	return ret
}

// WithStage1 sets the wah_polyglot_stage1 module loader script.
func (c *PackConfig) WithStage1(script []byte) *PackConfig {
	ret := c.clone()
	ret.stage1 = script
	return ret
}

// WithStage2 sets the wah_polyglot_stage2 SPA-style init script.
func (c *PackConfig) WithStage2(script []byte) *PackConfig {
	ret := c.clone()
	ret.stage2 = script
	return ret
}

// WithWASIConfig sets the wah_wasi_config bytecode program, assembled via
// wasiconfig.Assembler.
func (c *PackConfig) WithWASIConfig(prog wasiconfig.Program) *PackConfig {
	ret := c.clone()
	ret.wasiConfig = prog
	ret.hasWASIConfig = true
	return ret
}

// WithWasmBindgen sets the optional wah_polyglot_wasm_bindgen
// native-binding loader for the kernel.
func (c *PackConfig) WithWasmBindgen(script []byte) *PackConfig {
	ret := c.clone()
	ret.bindgen = script
	return ret
}

// Pack assembles module (already-decoded WebAssembly sections) and files
// (the root filesystem to embed) into a single polyglot artifact.
func Pack(cfg *PackConfig, module *wasmsection.Module, files []api.FileEntry) ([]byte, error) {
	if cfg == nil {
		cfg = NewPackConfig()
	}

	augmented := &wasmsection.Module{Sections: append([]wasmsection.Section{}, module.Sections...)}

	// Sections are prepended in reverse of their desired final order,
	// since Prepend always inserts immediately after magic/version.
	var toPrepend []wasmsection.Section
	if cfg.hasWASIConfig {
		toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasiConfigSectionBody(cfg)...))
	}
	toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasmsection.NameStage2, cfg.stage2))
	toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasmsection.NameStage1, cfg.stage1))
	if cfg.stage1HTML != nil {
		toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasmsection.NameStage1HTML, cfg.stage1HTML))
	}
	if cfg.bindgen != nil {
		toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasmsection.NameWasmBindgen, cfg.bindgen))
	}
	toPrepend = append(toPrepend, wasmsection.NewCustomSection(wasmsection.NameStage0, cfg.stage0))

	// Reverse toPrepend so NameStage0 ends up first in section order
	// after a single Prepend call.
	for i, j := 0, len(toPrepend)-1; i < j; i, j = i+1, j-1 {
		toPrepend[i], toPrepend[j] = toPrepend[j], toPrepend[i]
	}
	augmented.Prepend(toPrepend...)

	moduleBytes := augmented.Bytes()

	// The tar listing's own boot/wah-init.wasm entry carries the same
	// bytes as the artifact's leading WebAssembly module, so a loader
	// that recovered only the file tree can compile and re-inspect it
	// without re-parsing the whole polyglot stream.
	wrapped := make([]api.FileEntry, 0, len(files)+1)
	for _, f := range files {
		if f.Header.Name == bootExecutableName {
			continue
		}
		wrapped = append(wrapped, f)
	}
	wrapped = append(wrapped, api.FileEntry{
		Header: api.TarHeader{
			Name:     bootExecutableName,
			Size:     int64(len(moduleBytes)),
			Typeflag: api.TypeRegular,
		},
		Data: moduleBytes,
	})

	tarBytes := htmlpoly.Wrap(wrapped)

	// The tar stream must begin at a 512-byte aligned offset so a
	// standards-conforming reader can seek fixed-size blocks from the
	// start of the artifact without ever resynchronizing against the
	// WebAssembly module that precedes it.
	out := make([]byte, 0, len(moduleBytes)+tarpax.PadToBlock(len(moduleBytes))+len(tarBytes))
	out = append(out, moduleBytes...)
	out = append(out, make([]byte, tarpax.PadToBlock(len(moduleBytes)))...)
	out = append(out, tarBytes...)
	return out, nil
}

// bootExecutableName mirrors bootstrap's own copy of this literal: a
// fixed path in the recovered file tree, not shared algorithmic code, so
// the two packages each name it independently.
const bootExecutableName = "boot/wah-init.wasm"

// wasiConfigSectionBody returns the (name, data) pair for the
// wah_wasi_config custom section.
func wasiConfigSectionBody(cfg *PackConfig) (string, []byte) {
	return wasmsection.NameWASIConfig, cfg.wasiConfig.Encode()
}
