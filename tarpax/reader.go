package tarpax

import (
	"errors"
	"fmt"
	"io"

	"github.com/wahpkg/wah/api"
)

// Reader reads entries written by Writer: a leading pax extension header
// overriding the following ustar header's path/linkname, terminated either
// by the sentinel pax pair Writer.Close wrote or by the standard two
// all-zero blocks.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b. b is not copied or retained beyond the
// lifetime of the returned Reader's calls.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// ReadEntry returns the next file entry, or io.EOF once the sentinel or the
// ustar end-of-archive marker is reached.
func (r *Reader) ReadEntry() (*api.FileEntry, error) {
	for {
		block, err := r.nextBlock()
		if err != nil {
			return nil, err
		}
		if isZeroBlock(block) {
			return nil, io.EOF
		}

		h, err := unmarshalHeader(block)
		if err != nil {
			return nil, err
		}
		if h.Typeflag != api.TypeXHeader {
			data, err := r.readPayload(h.Size)
			if err != nil {
				return nil, err
			}
			return &api.FileEntry{Header: h, Data: data}, nil
		}

		payload, err := r.readPayload(h.Size)
		if err != nil {
			return nil, err
		}
		attrs := parsePAXRecords(payload)
		if attrs[sentinelKey] == "1" {
			return nil, io.EOF
		}

		realBlock, err := r.nextBlock()
		if err != nil {
			return nil, err
		}
		real, err := unmarshalHeader(realBlock)
		if err != nil {
			return nil, err
		}
		if real.Typeflag == api.TypeXHeader {
			// Another extension header follows (an HTML envelope is
			// followed by the entry's own pax header): step back so the
			// next pass reads it as the extension header it is.
			r.off -= BlockSize
			continue
		}
		if v, ok := attrs["path"]; ok {
			real.Name = v
		}
		if v, ok := attrs["linkname"]; ok {
			real.Linkname = v
		}
		if v, ok := attrs["size"]; ok {
			if n, perr := parseUint([]byte(v)); perr == nil {
				real.Size = int64(n)
			}
		}

		data, err := r.readPayload(real.Size)
		if err != nil {
			return nil, err
		}
		return &api.FileEntry{Header: real, Data: data}, nil
	}
}

// ReadAll reads every entry up to the terminator.
func ReadAll(b []byte) ([]api.FileEntry, error) {
	r := NewReader(b)
	var entries []api.FileEntry
	for {
		e, err := r.ReadEntry()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
}

func (r *Reader) nextBlock() ([]byte, error) {
	if r.off+BlockSize > len(r.buf) {
		return nil, fmt.Errorf("tarpax: truncated header at offset %d: %w", r.off, api.ErrTruncatedArchive)
	}
	b := r.buf[r.off : r.off+BlockSize]
	r.off += BlockSize
	return b, nil
}

func (r *Reader) readPayload(size int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("tarpax: negative size: %w", api.ErrBadHeader)
	}
	padded := int(size) + padToBlock(int(size))
	if r.off+padded > len(r.buf) {
		return nil, fmt.Errorf("tarpax: truncated payload at offset %d: %w", r.off, api.ErrTruncatedArchive)
	}
	data := make([]byte, size)
	copy(data, r.buf[r.off:r.off+int(size)])
	r.off += padded
	return data, nil
}
