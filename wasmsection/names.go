package wasmsection

// Fixed custom section names recognized by the polyglot protocol.
const (
	NameStage0       = "wah_polyglot_stage0"
	NameStage1HTML   = "wah_polyglot_stage1_html"
	NameStage1       = "wah_polyglot_stage1"
	NameStage2       = "wah_polyglot_stage2"
	NameWASIConfig   = "wah_wasi_config"
	NameWasmBindgen  = "wah_polyglot_wasm_bindgen"
)

// MustBeUnique is the set of section names that Module.CheckUnique
// rejects a second occurrence of. NameStage2 and NameWASIConfig are
// deliberately not included here: package bootstrap enforces their
// uniqueness itself, with dedicated errors (ErrMissingStage2 when
// absent, ErrDuplicateConfig when repeated) that CheckUnique's generic
// ErrDuplicateSection can't distinguish.
var MustBeUnique = map[string]bool{
	NameStage0:      true,
	NameStage1HTML:  true,
	NameStage1:      true,
	NameWasmBindgen: true,
}
