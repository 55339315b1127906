package wasiconfig

import (
	"encoding/json"
	"fmt"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/wasmsection"
)

// UnsafeExecFunc, when set on an Evaluator, is invoked by opcode 15
// (function) instead of returning a plain source-text handle. Left nil,
// opcode 15 fails closed with ErrUnsafeExecDisabled: a config program
// cannot make this evaluator run arbitrary code unless a host explicitly
// wires one in, which the model (unlike a real VM with an actual `new
// Function`) never does on its own.
type UnsafeExecFunc func(source string) (any, error)

// reserved is the opaque placeholder held by operand slots 6..254 and
// pushed by OpSkip: unlike a real object, a program cannot Get or Set
// against it.
type reserved struct{}

// Evaluator runs a Program against a fixed 256-slot operand table,
// producing the ops table; the Config it populates is returned by
// Config, and the nodes it creates live in FS.
type Evaluator struct {
	Module      *wasmsection.Module
	ModuleBytes []byte
	FS          *FS
	UnsafeExec  UnsafeExecFunc

	cfg *Config
}

// Config returns the configuration object bytecode has been populating
// via ops[0], whether or not a program has run yet.
func (e *Evaluator) Config() *Config {
	return e.cfg
}

// NewEvaluator returns an Evaluator over module, ready to run a Program.
func NewEvaluator(module *wasmsection.Module, moduleBytes []byte) *Evaluator {
	return &Evaluator{
		Module:      module,
		ModuleBytes: moduleBytes,
		FS:          NewFS(),
		cfg:         NewConfig(),
	}
}

// Eval runs prog to completion, returning the full 256+N-slot ops table.
// Every instruction pushes exactly one result, so the total number of
// instructions executed equals len(ops) - 256 on success. A failure
// aborts early, returning the partial ops table alongside the error so a
// fallback path can still inspect what ran.
func (e *Evaluator) Eval(prog Program) ([]any, error) {
	ops := e.initialOps()

	iptr := 0
	words := prog.Words
	for iptr < len(words) {
		opcode := int(words[iptr])
		argc := int(words[iptr+1])
		if iptr+2+argc > len(words) {
			return ops, fmt.Errorf("wasiconfig: truncated instruction at word %d: %w", iptr, api.ErrBadFile)
		}
		args := words[iptr+2 : iptr+2+argc]

		result, skip, err := e.step(ops, opcode, args, prog.Data)
		if err != nil {
			return ops, err
		}
		ops = append(ops, result)
		iptr += 2 + argc + skip
	}
	return ops, nil
}

// initialOps builds the 256-slot reserved region: ops[0] is the
// configuration object, ops[1..5] are builtin constructors,
// ops[6..254] are inert placeholders, and ops[255] is undefined.
func (e *Evaluator) initialOps() []any {
	ops := make([]any, 256)
	ops[0] = e.cfg
	ops[1] = map[string]string{}                // env table constructor
	ops[2] = &[]any{}                           // args list constructor
	ops[3] = &[]any{nil, nil, nil}               // stdio triple constructor
	ops[4] = "/"                                // root preopen path constant
	ops[5] = append([]byte{}, e.ModuleBytes...) // module-bytes accessor
	for i := 6; i < 255; i++ {
		ops[i] = reserved{}
	}
	ops[255] = nil
	return ops
}

func (e *Evaluator) step(ops []any, opcode int, args []uint32, data []byte) (result any, skip int, err error) {
	want, known := argCounts[opcode]
	if opcode != OpNoop && known && len(args) != want {
		return nil, 0, fmt.Errorf("wasiconfig: opcode %d expects %d args, got %d: %w", opcode, want, len(args), api.ErrBadOperand)
	}

	switch opcode {
	case OpSkip:
		return reserved{}, int(int32(args[0])), nil

	case OpString:
		ptr, length := int(args[0]), int(args[1])
		if ptr < 0 || ptr+length > len(data) {
			return nil, 0, fmt.Errorf("wasiconfig: string operand out of range: %w", api.ErrBadOperand)
		}
		return string(data[ptr : ptr+length]), 0, nil

	case OpJSON:
		ptr, length := int(args[0]), int(args[1])
		if ptr < 0 || ptr+length > len(data) {
			return nil, 0, fmt.Errorf("wasiconfig: json operand out of range: %w", api.ErrBadOperand)
		}
		var v any
		if err := json.Unmarshal(data[ptr:ptr+length], &v); err != nil {
			return nil, 0, fmt.Errorf("wasiconfig: invalid json literal: %w", api.ErrBadOperand)
		}
		return v, 0, nil

	case OpConst:
		return int32(args[0]), 0, nil

	case OpArray:
		ptr, length := int(args[0]), int(args[1])
		if ptr < 0 || ptr+length > len(data) {
			return nil, 0, fmt.Errorf("wasiconfig: array operand out of range: %w", api.ErrBadOperand)
		}
		return data[ptr : ptr+length], 0, nil

	case OpGet:
		from, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		idx, err := operandAt(ops, args[1])
		if err != nil {
			return nil, 0, err
		}
		v, err := getIndexed(from, idx)
		return v, 0, err

	case OpSet:
		into, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		idx, err := operandAt(ops, args[1])
		if err != nil {
			return nil, 0, err
		}
		what, err := operandAt(ops, args[2])
		if err != nil {
			return nil, 0, err
		}
		if err := setIndexed(into, idx, what); err != nil {
			return nil, 0, err
		}
		return what, 0, nil

	case OpFile:
		what, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		b, ok := what.([]byte)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: File operand is not bytes: %w", api.ErrBadOperand)
		}
		h := e.FS.Alloc(&File{Data: b})
		return h, 0, nil

	case OpDirectory:
		what, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		entries := map[string]Handle{}
		if m, ok := what.(map[string]any); ok {
			for name, v := range m {
				h, ok := v.(Handle)
				if !ok {
					return nil, 0, fmt.Errorf("wasiconfig: Directory entry %q is not a handle: %w", name, api.ErrBadOperand)
				}
				entries[name] = h
			}
		}
		h := e.FS.Alloc(&Directory{Entries: entries})
		return h, 0, nil

	case OpPreopenDirectory:
		where, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		what, err := operandAt(ops, args[1])
		if err != nil {
			return nil, 0, err
		}
		path, ok := where.(string)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: PreopenDirectory path is not a string: %w", api.ErrBadOperand)
		}
		root, ok := what.(Handle)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: PreopenDirectory root is not a directory handle: %w", api.ErrBadOperand)
		}
		h := e.FS.Alloc(&PreopenDirectory{Path: path, Root: root})
		return h, 0, nil

	case OpPathOpen:
		dir, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		_, err = operandAt(ops, args[1]) // flags: unused by this model, carried for shape fidelity
		if err != nil {
			return nil, 0, err
		}
		pathVal, err := operandAt(ops, args[2])
		if err != nil {
			return nil, 0, err
		}
		_, err = operandAt(ops, args[3]) // oflags: unused by this model
		if err != nil {
			return nil, 0, err
		}
		dirHandle, ok := dir.(Handle)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: path_open dir is not a handle: %w", api.ErrBadOperand)
		}
		path, ok := pathVal.(string)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: path_open path is not a string: %w", api.ErrBadOperand)
		}
		fileHandle, ok := e.FS.Resolve(dirHandle, path)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: path_open: %q not found: %w", path, api.ErrBadFile)
		}
		h := e.FS.Alloc(&OpenFile{File: fileHandle})
		return h, 0, nil

	case OpOpenFile:
		what, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		h, ok := what.(Handle)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: OpenFile operand is not a File handle: %w", api.ErrBadOperand)
		}
		return e.FS.Alloc(&OpenFile{File: h}), 0, nil

	case OpSection:
		what, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		name, ok := what.(string)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: section operand is not a string: %w", api.ErrBadOperand)
		}
		sections := e.Module.CustomSections(name)
		out := make([]any, len(sections))
		for i, s := range sections {
			out[i] = s
		}
		return out, 0, nil

	case OpNoop:
		return map[string]any{}, 0, nil

	case OpFunction:
		what, err := operandAt(ops, args[0])
		if err != nil {
			return nil, 0, err
		}
		source, ok := what.(string)
		if !ok {
			return nil, 0, fmt.Errorf("wasiconfig: function operand is not a string: %w", api.ErrBadOperand)
		}
		if e.UnsafeExec == nil {
			return nil, 0, api.ErrUnsafeExecDisabled
		}
		v, err := e.UnsafeExec(source)
		return v, 0, err

	default:
		return nil, 0, fmt.Errorf("%w: %d", api.ErrUnknownOpcode, opcode)
	}
}

// operandAt resolves an operand-table index, validating it against the
// slots actually produced so far.
func operandAt(ops []any, idx uint32) (any, error) {
	i := int(idx)
	if i < 0 || i >= len(ops) {
		return nil, fmt.Errorf("wasiconfig: operand index %d out of range: %w", i, api.ErrBadOperand)
	}
	return ops[i], nil
}

func getIndexed(from, idx any) (any, error) {
	switch c := from.(type) {
	case *Config:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("wasiconfig: Config field key is not a string: %w", api.ErrBadOperand)
		}
		return c.field(key)
	case map[string]string:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("wasiconfig: map key is not a string: %w", api.ErrBadOperand)
		}
		return c[key], nil
	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("wasiconfig: map key is not a string: %w", api.ErrBadOperand)
		}
		return c[key], nil
	case []any:
		i, err := indexOf(idx)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(c) {
			return nil, fmt.Errorf("wasiconfig: list index %d out of range: %w", i, api.ErrBadOperand)
		}
		return c[i], nil
	case *[]any:
		i, err := indexOf(idx)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(*c) {
			return nil, fmt.Errorf("wasiconfig: list index %d out of range: %w", i, api.ErrBadOperand)
		}
		return (*c)[i], nil
	default:
		return nil, fmt.Errorf("wasiconfig: value is not indexable: %w", api.ErrBadOperand)
	}
}

func setIndexed(into, idx, what any) error {
	switch c := into.(type) {
	case *Config:
		key, ok := idx.(string)
		if !ok {
			return fmt.Errorf("wasiconfig: Config field key is not a string: %w", api.ErrBadOperand)
		}
		return c.setField(key, what)
	case map[string]string:
		key, ok := idx.(string)
		if !ok {
			return fmt.Errorf("wasiconfig: map key is not a string: %w", api.ErrBadOperand)
		}
		v, ok := what.(string)
		if !ok {
			return fmt.Errorf("wasiconfig: map value is not a string: %w", api.ErrBadOperand)
		}
		c[key] = v
		return nil
	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return fmt.Errorf("wasiconfig: map key is not a string: %w", api.ErrBadOperand)
		}
		c[key] = what
		return nil
	case *[]any:
		i, err := indexOf(idx)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("wasiconfig: list index %d out of range: %w", i, api.ErrBadOperand)
		}
		for i >= len(*c) {
			*c = append(*c, nil)
		}
		(*c)[i] = what
		return nil
	default:
		return fmt.Errorf("wasiconfig: value is not assignable: %w", api.ErrBadOperand)
	}
}

func indexOf(v any) (int, error) {
	switch n := v.(type) {
	case int32:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("wasiconfig: index is not numeric: %w", api.ErrBadOperand)
	}
}
