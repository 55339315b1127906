// Package wasmsection implements a WebAssembly custom-section writer:
// inserting new custom sections at the front of a module's section list,
// after the magic and version, while leaving every other section's bytes
// untouched so a conforming runtime still accepts the augmented module.
// Section id and size framing follow the public WebAssembly binary
// format (section id byte, varuint32 size, payload); custom sections
// additionally length-prefix a UTF-8 name before their content, per the
// same format.
package wasmsection

import (
	"bytes"
	"fmt"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/internal/leb128"
)

// Magic and Version are the fixed 4-byte preamble every WebAssembly
// module begins with.
var (
	Magic   = [4]byte{0x00, 0x61, 0x73, 0x6d}
	Version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// customSectionID is the WebAssembly section id reserved for custom
// (named, runtime-ignorable) sections.
const customSectionID = 0

// Section is one raw module section: an id byte and its undecoded
// payload. For a custom section (id 0), Payload begins with the
// length-prefixed name.
type Section struct {
	ID      byte
	Payload []byte
}

// Module is a WebAssembly module as an ordered list of sections, decoded
// only as deep as the custom-section name so this package never has to
// understand (or risk corrupting) the semantics of any other section
// kind.
type Module struct {
	Sections []Section
}

// Parse decodes b into a Module. Every section is kept as opaque bytes
// except for extracting the name of custom sections, which Prepend and
// CustomSections need.
func Parse(b []byte) (*Module, error) {
	if len(b) < 8 || !bytes.Equal(b[0:4], Magic[:]) || !bytes.Equal(b[4:8], Version[:]) {
		return nil, fmt.Errorf("wasmsection: missing WebAssembly magic/version: %w", api.ErrBadFile)
	}
	rest := b[8:]

	var m Module
	for len(rest) > 0 {
		id := rest[0]
		size, n, err := leb128.LoadUint32(rest[1:])
		if err != nil {
			return nil, fmt.Errorf("wasmsection: malformed section header: %w", api.ErrBadFile)
		}
		start := 1 + int(n)
		end := start + int(size)
		if end > len(rest) {
			return nil, fmt.Errorf("wasmsection: section payload runs past end of module: %w", api.ErrBadFile)
		}
		m.Sections = append(m.Sections, Section{ID: id, Payload: rest[start:end]})
		rest = rest[end:]
	}
	return &m, nil
}

// Name returns the custom section's name, and ok=false if s is not a
// custom section or its name field is malformed.
func (s Section) Name() (string, bool) {
	if s.ID != customSectionID {
		return "", false
	}
	n, length, err := leb128.LoadUint32(s.Payload)
	if err != nil {
		return "", false
	}
	start := int(length)
	end := start + int(n)
	if end > len(s.Payload) {
		return "", false
	}
	return string(s.Payload[start:end]), true
}

// Data returns the bytes of a custom section after its name field, i.e.
// the section's actual content.
func (s Section) Data() []byte {
	n, length, err := leb128.LoadUint32(s.Payload)
	if err != nil {
		return nil
	}
	start := int(length) + int(n)
	if start > len(s.Payload) {
		return nil
	}
	return s.Payload[start:]
}

// NewCustomSection builds a Section with id 0 carrying name and data,
// length-prefixing name the way every other custom section in the module
// already does.
func NewCustomSection(name string, data []byte) Section {
	var payload bytes.Buffer
	payload.Write(leb128.EncodeUint32(uint32(len(name))))
	payload.WriteString(name)
	payload.Write(data)
	return Section{ID: customSectionID, Payload: payload.Bytes()}
}

// Prepend inserts sections at the front of m's section list, immediately
// after the magic/version preamble and before any section already
// present — including the module's own original custom sections, which
// are left exactly as parsed.
func (m *Module) Prepend(sections ...Section) {
	m.Sections = append(append([]Section{}, sections...), m.Sections...)
}

// CustomSections returns the payload (post-name-field) of every custom
// section named name, in module order.
func (m *Module) CustomSections(name string) [][]byte {
	var out [][]byte
	for _, s := range m.Sections {
		if n, ok := s.Name(); ok && n == name {
			out = append(out, s.Data())
		}
	}
	return out
}

// CheckUnique validates that every section name in MustBeUnique occurs
// at most once in m, returning ErrDuplicateSection naming the first
// offending section found, in module order.
func (m *Module) CheckUnique() error {
	seen := map[string]bool{}
	for _, s := range m.Sections {
		name, ok := s.Name()
		if !ok || !MustBeUnique[name] {
			continue
		}
		if seen[name] {
			return fmt.Errorf("wasmsection: %s: %w", name, api.ErrDuplicateSection)
		}
		seen[name] = true
	}
	return nil
}

// Bytes re-encodes the module: magic, version, then every section in
// order.
func (m *Module) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.Write(Version[:])
	for _, s := range m.Sections {
		buf.WriteByte(s.ID)
		buf.Write(leb128.EncodeUint32(uint32(len(s.Payload))))
		buf.Write(s.Payload)
	}
	return buf.Bytes()
}
