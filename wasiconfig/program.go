// Package wasiconfig implements the config bytecode assembler and
// evaluator: a static-assignment program of 32-bit little-endian words
// that builds the WASI configuration and in-memory root filesystem
// against a fixed 256-slot operand table.
package wasiconfig

import (
	"encoding/binary"
	"fmt"

	"github.com/wahpkg/wah/api"
)

// Opcodes.
const (
	OpSkip             = 1
	OpString           = 2
	OpJSON             = 3
	OpConst            = 4
	OpArray            = 5
	OpGet              = 6
	OpSet              = 7
	OpFile             = 8
	OpDirectory        = 9
	OpPreopenDirectory = 10
	OpPathOpen         = 11
	OpOpenFile         = 12
	OpSection          = 13
	OpNoop             = 14
	OpFunction         = 15
)

// argCounts is the fixed argument count per opcode. OpNoop's argc is
// variable and taken from the instruction itself rather than checked
// against this table.
var argCounts = map[int]int{
	OpSkip:             1,
	OpString:           2,
	OpJSON:             2,
	OpConst:            1,
	OpArray:            2,
	OpGet:              2,
	OpSet:              3,
	OpFile:             1,
	OpDirectory:        1,
	OpPreopenDirectory: 2,
	OpPathOpen:         4,
	OpOpenFile:         1,
	OpSection:          1,
	OpFunction:         1,
}

// Program is an assembled config bytecode: the instruction word stream
// plus the side data buffer that OpString/OpJSON/OpArray index into via
// (ptr, len) operand pairs.
type Program struct {
	Words []uint32
	Data  []byte
}

// Encode serializes p as the wah_wasi_config custom section payload: a
// uint32 word count, that many little-endian uint32 words, then the
// trailing data buffer.
func (p Program) Encode() []byte {
	out := make([]byte, 4+4*len(p.Words)+len(p.Data))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(p.Words)))
	for i, w := range p.Words {
		binary.LittleEndian.PutUint32(out[4+4*i:8+4*i], w)
	}
	copy(out[4+4*len(p.Words):], p.Data)
	return out
}

// DecodeProgram parses the wire format Encode produces.
func DecodeProgram(b []byte) (Program, error) {
	if len(b) < 4 {
		return Program{}, fmt.Errorf("wasiconfig: program too short: %w", api.ErrBadFile)
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	need := 4 + 4*int(n)
	if len(b) < need {
		return Program{}, fmt.Errorf("wasiconfig: program word stream truncated: %w", api.ErrBadFile)
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[4+4*i : 8+4*i])
	}
	return Program{Words: words, Data: b[need:]}, nil
}

// Assembler builds a Program instruction by instruction. Every method
// pushes exactly one instruction and returns the operand-table index its
// result will occupy once evaluated (slot 256 + the index of this
// instruction among all instructions emitted so far), so callers can
// thread results into later instructions (e.g. Set's "into"/"idx"/"what"
// operands).
type Assembler struct {
	prog  Program
	count int32
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) emit(op int32, args ...int32) int32 {
	a.prog.Words = append(a.prog.Words, uint32(op), uint32(len(args)))
	for _, arg := range args {
		a.prog.Words = append(a.prog.Words, uint32(arg))
	}
	idx := a.count
	a.count++
	return 256 + idx
}

// pushData appends b to the data buffer and returns its (ptr, len).
func (a *Assembler) pushData(b []byte) (ptr, length int32) {
	ptr = int32(len(a.prog.Data))
	a.prog.Data = append(a.prog.Data, b...)
	return ptr, int32(len(b))
}

// Skip advances iptr by n additional words beyond the normal 2+argc.
func (a *Assembler) Skip(n int32) int32 { return a.emit(OpSkip, n) }

// String pushes the UTF-8 string s.
func (a *Assembler) String(s string) int32 {
	ptr, length := a.pushData([]byte(s))
	return a.emit(OpString, ptr, length)
}

// JSON pushes JSON-encoded bytes b, to be parsed as a JSON value by the
// evaluator.
func (a *Assembler) JSON(b []byte) int32 {
	ptr, length := a.pushData(b)
	return a.emit(OpJSON, ptr, length)
}

// Const pushes the integer n.
func (a *Assembler) Const(n int32) int32 { return a.emit(OpConst, n) }

// Array pushes a view over b, not copied by the evaluator at read time.
func (a *Assembler) Array(b []byte) int32 {
	ptr, length := a.pushData(b)
	return a.emit(OpArray, ptr, length)
}

// Get pushes ops[from][ops[idx]].
func (a *Assembler) Get(from, idx int32) int32 { return a.emit(OpGet, from, idx) }

// Set assigns ops[into][ops[idx]] = ops[what] and pushes the result.
func (a *Assembler) Set(into, idx, what int32) int32 { return a.emit(OpSet, into, idx, what) }

// File pushes a File wrapping ops[what].
func (a *Assembler) File(what int32) int32 { return a.emit(OpFile, what) }

// Directory pushes a Directory over ops[what].
func (a *Assembler) Directory(what int32) int32 { return a.emit(OpDirectory, what) }

// PreopenDirectory pushes a preopen rooted at ops[where] bound to
// directory ops[what].
func (a *Assembler) PreopenDirectory(where, what int32) int32 {
	return a.emit(OpPreopenDirectory, where, what)
}

// PathOpen opens ops[path] under directory ops[dir] with the given flags
// and oflags operand indices.
func (a *Assembler) PathOpen(dir, flags, path, oflags int32) int32 {
	return a.emit(OpPathOpen, dir, flags, path, oflags)
}

// OpenFile pushes an OpenFile wrapping File ops[what].
func (a *Assembler) OpenFile(what int32) int32 { return a.emit(OpOpenFile, what) }

// Section pushes customSections(module, ops[what]).
func (a *Assembler) Section(what int32) int32 { return a.emit(OpSection, what) }

// Noop pushes an empty object, ignoring any args.
func (a *Assembler) Noop() int32 { return a.emit(OpNoop) }

// Function pushes a callable whose source text is ops[what].
func (a *Assembler) Function(what int32) int32 { return a.emit(OpFunction, what) }

// Assemble returns the finished Program.
func (a *Assembler) Assemble() Program { return a.prog }
