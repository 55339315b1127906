// Package api holds the data-model types and sentinel errors shared across
// every wah component, the way github.com/tetratelabs/wazero's api package
// decouples its public surface from internal implementations.
package api

import "time"

// Typeflag values used in TarHeader. Most match POSIX ustar; TypeExternalRef
// repurposes the ustar "contiguous file" code.
const (
	TypeRegular     byte = '0'
	TypeSymlink     byte = '2'
	TypeDirectory   byte = '5'
	TypeXHeader     byte = 'x' // pax extended header preceding the next entry
	TypeExternalRef byte = 'S' // linkname carries a URL fetched at load time
)

// TarHeader is the decoded form of a ustar header block, extended with any
// pax attributes that overrode a fixed-width field.
type TarHeader struct {
	Name     string
	Mode     int64
	Uid      int
	Gid      int
	Size     int64
	ModTime  time.Time
	Typeflag byte
	Linkname string
	Uname    string
	Gname    string
}

// FileEntry is a single member of the root filesystem: a tar header paired
// with its payload. Exactly one of Data or Linkname (via Header.Linkname)
// is meaningful, depending on Header.Typeflag.
//
// Invariant: for TypeRegular entries, Header.Size == len(Data). For
// TypeExternalRef, Header.Size == 0 until the reference is resolved, after
// which Data holds the fetched bytes and Header.Size is updated to match.
type FileEntry struct {
	Header TarHeader
	Data   []byte
}

// IsExternalRef reports whether this entry is a typeflag='S' external
// reference awaiting resolution.
func (f *FileEntry) IsExternalRef() bool {
	return f.Header.Typeflag == TypeExternalRef
}

// ElementDescriptor is a non-zero 53-bit identifier issued by the kernel,
// naming a DOM element held by the firmware.
type ElementDescriptor uint64

// MaxElementDescriptor is the allocator ceiling: 2^52.
const MaxElementDescriptor ElementDescriptor = 1 << 52

// ProcessHandle is resolved exactly once by a "reap" message.
type ProcessHandle struct {
	FID    string
	Status *int
	Stdout []byte
	Stderr []byte
}

// Done reports whether this handle has been resolved by reap.
func (p *ProcessHandle) Done() bool {
	return p.Status != nil
}
