package tarpax

import (
	"bytes"

	"github.com/wahpkg/wah/api"
)

// sentinelKey marks the terminator extension-header pair: a repeated
// pax extension header marks the end of the logical tar, distinguishing
// it from a sentinel that merely reuses the ustar all-zero EOF
// convention so a reader can find logical end-of-tar before any trailing
// non-tar bytes a polyglot artifact appends.
const sentinelKey = "wah.end"

// Writer emits a pax-extended ustar stream. Every WriteEntry call writes
// one pax-header/file-header/payload triple; Close appends the sentinel
// pair and the standard two-zero-block EOF marker.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns a ready-to-use Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteEntry appends one file entry: a pax extension header carrying the
// entry's path (always) and linkname (when set), followed by the ustar
// header and the (block-padded) payload.
func (w *Writer) WriteEntry(e api.FileEntry) error {
	attrs := map[string]string{"path": e.Header.Name}
	if e.Header.Linkname != "" {
		attrs["linkname"] = e.Header.Linkname
	}

	w.writePaxHeader(attrs)
	w.buf.Write(marshalHeader(e.Header))
	w.writePadded(e.Data)
	return nil
}

// writePaxHeader writes one typeflag='x' pax extension header and its
// record payload.
func (w *Writer) writePaxHeader(attrs map[string]string) {
	var records bytes.Buffer
	for _, k := range sortedKeys(attrs) {
		records.WriteString(formatPAXRecord(k, attrs[k]))
	}
	h := api.TarHeader{
		Name:     "pax_global_header",
		Typeflag: api.TypeXHeader,
		Size:     int64(records.Len()),
	}
	w.buf.Write(marshalHeader(h))
	w.writePadded(records.Bytes())
}

// writePadded appends data followed by NUL padding up to the next 512-byte
// boundary.
func (w *Writer) writePadded(data []byte) {
	w.buf.Write(data)
	if n := padToBlock(len(data)); n > 0 {
		w.buf.Write(make([]byte, n))
	}
}

// Take returns the bytes written so far without the sentinel or EOF
// marker, resetting the Writer. htmlpoly uses this to interleave its HTML
// envelope ahead of the pax-header/file-header/payload triple WriteEntry
// produces for each entry.
func (w *Writer) Take() []byte {
	b := w.buf.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	w.buf.Reset()
	return out
}

// Close appends the sentinel pair and the standard ustar EOF marker (two
// all-zero blocks), returning the complete archive bytes.
func (w *Writer) Close() []byte {
	sentinel := map[string]string{sentinelKey: "1"}
	w.writePaxHeader(sentinel)
	w.writePaxHeader(sentinel)
	w.buf.Write(make([]byte, BlockSize*2))
	return w.buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Small, fixed attribute sets (path/linkname) — insertion-stable
	// insertion sort keeps this dependency-free and deterministic.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
