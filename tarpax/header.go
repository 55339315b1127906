// Package tarpax implements a pax-extended ustar tar writer and reader
// with controlled sentinel headers and an external-reference typeflag for
// embedding a file tree inside a polyglot artifact. Header field offsets
// and the checksum algorithm are grounded on the ustar layout documented
// in google-safearchive/tar and the pax writers in dotcloud/moby's
// vendored tar writer and BeHierarchic's tar/common.go.
package tarpax

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wahpkg/wah/api"
)

// BlockSize is the fixed tar header/payload alignment unit.
const BlockSize = 512

// Field offsets and widths within a 512-byte ustar header block.
const (
	offName     = 0
	widName     = 100
	offMode     = 100
	widMode     = 8
	offUid      = 108
	widUid      = 8
	offGid      = 116
	widGid      = 8
	offSize     = 124
	widSize     = 12
	offMtime    = 136
	widMtime    = 12
	offChksum   = 148
	widChksum   = 8
	offTypeflag = 156
	offLinkname = 157
	widLinkname = 100
	offMagic    = 257
	offVersion  = 263
	offUname    = 265
	widUname    = 32
	offGname    = 297
	widGname    = 32
)

const (
	magic   = "ustar\x00"
	version = "00"
)

// marshalHeader encodes h into a fresh 512-byte ustar block. Name and
// linkname are written verbatim (truncated to their field width); callers
// that need full fidelity for longer names rely on a preceding pax
// extension record carried via the pax path attribute.
func marshalHeader(h api.TarHeader) []byte {
	b := make([]byte, BlockSize)

	copyField(b, offName, widName, h.Name)
	writeOctal(b, offMode, widMode, uint64(h.Mode))
	writeOctal(b, offUid, widUid, uint64(h.Uid))
	writeOctal(b, offGid, widGid, uint64(h.Gid))
	writeOctal(b, offSize, widSize, uint64(h.Size))
	writeOctal(b, offMtime, widMtime, uint64(h.ModTime.Unix()))
	b[offTypeflag] = typeflagOrDefault(h.Typeflag)
	copyField(b, offLinkname, widLinkname, h.Linkname)
	copy(b[offMagic:], magic)
	copy(b[offVersion:], version)
	copyField(b, offUname, widUname, h.Uname)
	copyField(b, offGname, widGname, h.Gname)

	// Checksum is computed with the checksum field itself blanked to
	// spaces, then stored as 6 octal digits, a NUL, and a trailing space.
	for i := 0; i < widChksum; i++ {
		b[offChksum+i] = ' '
	}
	sum := 0
	for _, c := range b {
		sum += int(c)
	}
	chk := fmt.Sprintf("%06o\x00 ", sum)
	copy(b[offChksum:offChksum+widChksum], chk)

	return b
}

// MarshalHeader encodes h into a fresh 512-byte ustar block. Exported for
// htmlpoly, which writes the typeflag='x' header framing each polyglot
// envelope with it (the envelope's "data-b" attribute carries HeaderTail).
func MarshalHeader(h api.TarHeader) []byte {
	return marshalHeader(h)
}

// HeaderTail returns the 412 bytes of h's marshaled header that follow the
// name field (offset 100..512): mode through gname, including the
// checksum. See htmlpoly for how this tail is carried inside the polyglot
// envelope.
func HeaderTail(h api.TarHeader) []byte {
	return marshalHeader(h)[widName:]
}

// HeaderFromTail reconstructs a TarHeader given a name recovered out of
// band (e.g. from a polyglot envelope's data-wahtml_id attribute) and the
// tail bytes HeaderTail produced.
func HeaderFromTail(name string, tail []byte) (api.TarHeader, error) {
	if len(tail) != BlockSize-widName {
		return api.TarHeader{}, fmt.Errorf("tarpax: header tail must be %d bytes, got %d: %w", BlockSize-widName, len(tail), api.ErrBadHeader)
	}
	block := make([]byte, BlockSize)
	copyField(block, offName, widName, name)
	copy(block[widName:], tail)
	return unmarshalHeader(block)
}

// PadToBlock returns the number of padding bytes needed to bring n up to
// the next BlockSize boundary. Exported for htmlpoly's envelope sizing.
func PadToBlock(n int) int {
	return padToBlock(n)
}

func typeflagOrDefault(t byte) byte {
	if t == 0 {
		return api.TypeRegular
	}
	return t
}

// unmarshalHeader decodes a 512-byte ustar block. It returns api.ErrBadHeader
// when an octal field contains non-octal content.
func unmarshalHeader(b []byte) (api.TarHeader, error) {
	if len(b) != BlockSize {
		return api.TarHeader{}, fmt.Errorf("tarpax: header block must be %d bytes: %w", BlockSize, api.ErrTruncatedArchive)
	}

	mode, err := readOctal(b, offMode, widMode)
	if err != nil {
		return api.TarHeader{}, err
	}
	uid, err := readOctal(b, offUid, widUid)
	if err != nil {
		return api.TarHeader{}, err
	}
	gid, err := readOctal(b, offGid, widGid)
	if err != nil {
		return api.TarHeader{}, err
	}
	size, err := readOctal(b, offSize, widSize)
	if err != nil {
		return api.TarHeader{}, err
	}
	mtime, err := readOctal(b, offMtime, widMtime)
	if err != nil {
		return api.TarHeader{}, err
	}

	return api.TarHeader{
		Name:     readField(b, offName, widName),
		Mode:     int64(mode),
		Uid:      int(uid),
		Gid:      int(gid),
		Size:     int64(size),
		ModTime:  time.Unix(int64(mtime), 0).UTC(),
		Typeflag: b[offTypeflag],
		Linkname: readField(b, offLinkname, widLinkname),
		Uname:    readField(b, offUname, widUname),
		Gname:    readField(b, offGname, widGname),
	}, nil
}

// isZeroBlock reports whether b is the all-zero EOF marker block.
func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func copyField(b []byte, off, width int, s string) {
	if len(s) > width {
		s = s[:width]
	}
	copy(b[off:off+width], s)
}

func readField(b []byte, off, width int) string {
	field := b[off : off+width]
	if i := indexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return strings.TrimRight(string(field), " ")
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// writeOctal writes v as zero-padded octal digits, NUL terminated, filling
// the full field width.
func writeOctal(b []byte, off, width int, v uint64) {
	s := strconv.FormatUint(v, 8)
	if len(s) > width-1 {
		s = s[len(s)-(width-1):]
	}
	for i := range make([]struct{}, width) {
		b[off+i] = '0'
	}
	copy(b[off+width-1-len(s):off+width-1], s)
	b[off+width-1] = 0
}

// readOctal parses a NUL/space-terminated octal field. Empty fields decode
// to zero.
func readOctal(b []byte, off, width int) (uint64, error) {
	field := b[off : off+width]
	s := strings.TrimRight(strings.TrimRight(string(field), "\x00"), " ")
	s = strings.TrimLeft(s, " ")
	s = strings.TrimRight(s, "\x00 ")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 8, 64)
	if err != nil {
		return 0, fmt.Errorf("tarpax: field at offset %d is not valid octal %q: %w", off, s, api.ErrBadHeader)
	}
	return v, nil
}

// padToBlock returns the number of padding bytes needed to bring n up to
// the next BlockSize boundary.
func padToBlock(n int) int {
	rem := n % BlockSize
	if rem == 0 {
		return 0
	}
	return BlockSize - rem
}
