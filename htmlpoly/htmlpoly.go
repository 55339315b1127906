// Package htmlpoly implements an HTML polyglot escaping layer: each file
// entry is wrapped so the same byte range is, at once, a skippable pax
// extension entry to a tar reader and a
// `<template class="wah_polyglot_data">` element to an HTML parser. The
// real ustar header and payload that follow are left untouched, so a
// standards-conforming pax reader recovers the original file tree
// byte-for-byte, independently of the HTML layer wrapped around it.
package htmlpoly

import (
	"bytes"
	"strings"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/codec"
	"github.com/wahpkg/wah/tarpax"
)

const (
	class        = "wah_polyglot_data"
	openTagHead  = `<template class="` + class + `" data-wahtml_id="`
	openTagSplit = `" data-b="`
	openTagTail  = `">`
	closeTag     = `</template>`
)

// nulRunLen is the run of NUL bytes inserted between the opening tag and
// the base64 text: permitted inside HTML attributes and text, and
// present purely to visually separate markup from payload in a byte
// dump. It carries no decoding significance (codec.Decode skips leading
// non-alphabet bytes regardless of run length).
const nulRunLen = 4

// Wrap renders entries as a polyglot byte stream: the sentinel-terminated
// sequence of [html-wrapped pax entry][real ustar header][real payload]
// triples that tarpax.Reader can also read directly (it tolerates the
// unparseable pax records in the wrapped entry's payload and falls
// through to the real header that follows).
func Wrap(entries []api.FileEntry) []byte {
	var buf bytes.Buffer
	w := tarpax.NewWriter()
	for _, e := range entries {
		writeEnvelope(&buf, e)
		// WriteEntry emits the pax path/linkname override (so names
		// longer than the ustar name field survive) followed by the real
		// header and payload; Take hands that back without the
		// sentinel so it can be appended right after the envelope.
		_ = w.WriteEntry(e)
		buf.Write(w.Take())
	}
	buf.Write(w.Close())
	return buf.Bytes()
}

// writeEnvelope writes the typeflag='x' header and its HTML-bearing
// payload for one entry.
func writeEnvelope(buf *bytes.Buffer, e api.FileEntry) {
	var payload bytes.Buffer
	payload.WriteByte(0) // the NUL-initial "extension-record length field"
	payload.WriteString(openTagHead)
	payload.WriteString(escapeAttr(sanitizeID(e.Header.Name)))
	payload.WriteString(openTagSplit)
	payload.Write(codec.Encode(tarpax.HeaderTail(e.Header)))
	payload.WriteString(openTagTail)
	payload.Write(make([]byte, nulRunLen))
	payload.Write(codec.Encode(e.Data))

	if pad := tarpax.PadToBlock(payload.Len() + len(closeTag)); pad > 0 {
		payload.Write(make([]byte, pad))
	}
	payload.WriteString(closeTag)

	h := api.TarHeader{Name: "", Typeflag: api.TypeXHeader, Size: int64(payload.Len())}
	buf.Write(tarpax.MarshalHeader(h))
	buf.Write(payload.Bytes())
}

// sanitizeID strips NUL and U+FFFD replacement code points from the
// original filename. Path separators are left intact: the id is the
// filesystem path, and '/' needs no HTML attribute escaping.
func sanitizeID(name string) string {
	const replacementChar = '�'
	var b strings.Builder
	for _, r := range name {
		if r == 0 || r == replacementChar {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return s
}

func unescapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
