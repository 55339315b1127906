package api

import "errors"

// Error kinds shared across packages. Components wrap these with
// fmt.Errorf and %w so callers can still errors.Is against the sentinel.
var (
	// ErrBadHeader is returned when a tar header's octal fields are not
	// valid octal ASCII.
	ErrBadHeader = errors.New("wah: bad tar header")

	// ErrTruncatedArchive is returned when a header expected at a
	// 512-byte aligned offset is short.
	ErrTruncatedArchive = errors.New("wah: truncated archive")

	// ErrBadFile is returned when a decoded entry's declared size does
	// not match its decoded payload length.
	ErrBadFile = errors.New("wah: file size does not match declared header size")

	// ErrDuplicateSection is returned when a custom section that must
	// occur at most once occurs more than once.
	ErrDuplicateSection = errors.New("wah: duplicate custom section")

	// ErrMissingStage2 is returned when wah_polyglot_stage2 is absent.
	ErrMissingStage2 = errors.New("wah: missing wah_polyglot_stage2 section")

	// ErrDuplicateConfig is returned when more than one wah_wasi_config
	// section is present.
	ErrDuplicateConfig = errors.New("wah: duplicate wah_wasi_config section")

	// ErrBadIoBinding is returned when an IO binding shape has zero or
	// more than one populated key.
	ErrBadIoBinding = errors.New("wah: bad io binding")

	// ErrOutOfDescriptors is returned when the element descriptor
	// counter would saturate 2^52.
	ErrOutOfDescriptors = errors.New("wah: out of element descriptors")

	// ErrNoBootExecutable is returned when the boot/init entry is missing
	// from the filesystem at stage-2. A missing boot/wah-init.wasm is not
	// an error: bootstrap.Recover reports it through BootResult.Quiet.
	ErrNoBootExecutable = errors.New("wah: no boot executable")

	// ErrNoInitModule is returned when init.mjs is missing from the
	// filesystem at end of stage-2.
	ErrNoInitModule = errors.New("wah: no init module")

	// ErrUserProgramCrash signals the launched process terminated with
	// a non-exit-sentinel error.
	ErrUserProgramCrash = errors.New("wah: user program crashed")

	// ErrMultiKeyMessage is returned when a bridge message decodes to
	// zero or more than one populated variant key.
	ErrMultiKeyMessage = errors.New("wah: message must have exactly one populated key")

	// ErrUnsafeExecDisabled is returned when config bytecode opcode 15
	// (function) runs without an explicit UnsafeExecFunc configured.
	ErrUnsafeExecDisabled = errors.New("wah: opcode 15 (function) requires an explicit UnsafeExecFunc")

	// ErrUnknownOpcode is returned when an instruction's opcode is not
	// one of the 15 defined in the opcode table.
	ErrUnknownOpcode = errors.New("wah: unknown config bytecode opcode")

	// ErrBadOperand is returned when an instruction references an
	// ops-table operand of the wrong dynamic type.
	ErrBadOperand = errors.New("wah: config bytecode operand has wrong type")
)
