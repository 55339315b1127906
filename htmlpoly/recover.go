package htmlpoly

import (
	"bytes"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/codec"
	"github.com/wahpkg/wah/tarpax"
)

// Recover scans raw bytes for wah_polyglot_data template elements and
// reconstructs the FileEntry each one describes, modelling the browser's
// DOM-scan recovery path without requiring an actual HTML parser: the
// envelope's fixed tag shape makes a byte scan for the three markers
// (data-wahtml_id, data-b, textContent) sufficient.
func Recover(data []byte) ([]api.FileEntry, error) {
	var entries []api.FileEntry
	pos := 0
	for {
		idIdx := bytes.Index(data[pos:], []byte(openTagHead))
		if idIdx < 0 {
			break
		}
		start := pos + idIdx + len(openTagHead)

		idEnd := bytes.IndexByte(data[start:], '"')
		if idEnd < 0 {
			return nil, api.ErrBadHeader
		}
		id := unescapeAttr(string(data[start : start+idEnd]))
		cursor := start + idEnd

		splitIdx := bytes.Index(data[cursor:], []byte(openTagSplit))
		if splitIdx != 0 {
			return nil, api.ErrBadHeader
		}
		cursor += len(openTagSplit)

		bEnd := bytes.IndexByte(data[cursor:], '"')
		if bEnd < 0 {
			return nil, api.ErrBadHeader
		}
		dataB := data[cursor : cursor+bEnd]
		cursor += bEnd

		tailEnd := bytes.Index(data[cursor:], []byte(openTagTail))
		if tailEnd != 0 {
			return nil, api.ErrBadHeader
		}
		cursor += len(openTagTail)

		closeIdx := bytes.Index(data[cursor:], []byte(closeTag))
		if closeIdx < 0 {
			return nil, api.ErrBadHeader
		}
		text := data[cursor : cursor+closeIdx]
		pos = cursor + closeIdx + len(closeTag)

		tail := codec.Decode(dataB)
		h, err := tarpax.HeaderFromTail(id, tail)
		if err != nil {
			return nil, err
		}
		// The decoded payload is returned as-is, whatever its length: a
		// mismatch against h.Size is the caller's to report (bootstrap's
		// size-equality check), not silently repaired here.
		payload := codec.Decode(text)
		entries = append(entries, api.FileEntry{Header: h, Data: payload})
	}
	return entries, nil
}
