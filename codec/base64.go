// Package codec implements the byte-exact base64 transform used to embed
// file payloads in a polyglot artifact. It is not a
// thin wrapper over encoding/base64: decoding here must tolerate the
// whitespace and NUL-padding runs the HTML polyglot envelope introduces
// around a payload, which the standard library's strict decoder rejects.
package codec

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// decodeTable is the 256-entry translation table:
// the alphabet maps to 0..63, '=' maps to 64, and every other byte maps to
// 0 ("treats bytes outside the alphabet as zero").
var decodeTable = func() (t [256]byte) {
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = byte(i)
	}
	t['='] = 64
	return t
}()

// inAlphabet reports whether c is one of the 64 alphabet characters or the
// padding character '='. decodeTable alone can't answer this: 'A' and an
// arbitrary junk byte both carry table value 0.
var inAlphabet = func() (t [256]bool) {
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = true
	}
	t['='] = true
	return t
}()

// maxTrailingScan bounds how far Decode will look past the start of a
// trailing padding/non-alphabet run, keeping the trim O(1) on large
// payloads.
const maxTrailingScan = 2048

// Encode returns the standard-alphabet base64 encoding of b, with '='
// padding, content-identical to encoding/base64.StdEncoding but implemented
// directly against the table above so Encode and Decode share one source
// of truth for the alphabet.
func Encode(b []byte) []byte {
	n := len(b)
	out := make([]byte, 0, (n+2)/3*4)
	var i int
	for ; i+3 <= n; i += 3 {
		out = append(out, encodeQuantum(b[i], b[i+1], b[i+2], 4)...)
	}
	switch n - i {
	case 1:
		out = append(out, encodeQuantum(b[i], 0, 0, 2)...)
		out = append(out, '=', '=')
	case 2:
		out = append(out, encodeQuantum(b[i], b[i+1], 0, 3)...)
		out = append(out, '=')
	}
	return out
}

func encodeQuantum(b0, b1, b2 byte, n int) []byte {
	quad := [4]byte{
		alphabet[b0>>2],
		alphabet[(b0&0x03)<<4|b1>>4],
		alphabet[(b1&0x0f)<<2|b2>>6],
		alphabet[b2&0x3f],
	}
	return quad[:n]
}

// Decode decodes s, which may carry a leading run of non-base64 bytes (e.g.
// the NUL padding a polyglot envelope writes before the payload) and a
// bounded trailing run of padding or non-alphabet bytes.
// Output length is (n/4)*3 - padding_count, where n is
// the length of s after trimming and padding_count counts the trailing '='
// characters of the final quad; an unpadded final group of 2 or 3
// characters adds 1 or 2 more bytes.
//
// Decode(Encode(b)) == b for every byte sequence b.
func Decode(s []byte) []byte {
	start := leadingSkip(s)
	end := trailingTrim(s, start)
	s = s[start:end]

	n := len(s)
	full := n / 4
	rem := n % 4

	paddingCount := 0
	if full > 0 {
		last := (full - 1) * 4
		if s[last+3] == '=' {
			paddingCount++
			if s[last+2] == '=' {
				paddingCount++
			}
		}
	}

	out := make([]byte, 0, full*3+2)
	for i := 0; i < full; i++ {
		off := i * 4
		v0, v1, v2, v3 := value(s[off]), value(s[off+1]), value(s[off+2]), value(s[off+3])
		b0 := v0<<2 | v1>>4
		b1 := v1<<4 | v2>>2
		b2 := v2<<6 | v3

		if i == full-1 {
			switch paddingCount {
			case 1:
				out = append(out, b0, b1)
				continue
			case 2:
				out = append(out, b0)
				continue
			}
		}
		out = append(out, b0, b1, b2)
	}

	off := full * 4
	switch rem {
	case 2:
		v0, v1 := value(s[off]), value(s[off+1])
		out = append(out, v0<<2|v1>>4)
	case 3:
		v0, v1, v2 := value(s[off]), value(s[off+1]), value(s[off+2])
		out = append(out, v0<<2|v1>>4, v1<<4|v2>>2)
	}
	return out
}

// value returns the 6-bit arithmetic contribution of c: its alphabet index,
// or zero for '=' and any byte outside the alphabet.
func value(c byte) byte {
	v := decodeTable[c]
	if v == 64 {
		return 0
	}
	return v
}

// leadingSkip returns the index of the first byte in s that is part of the
// base64 alphabet (or '='), skipping any stray bytes a polyglot envelope's
// NUL-padding run introduces before the payload.
func leadingSkip(s []byte) int {
	for i, c := range s {
		if inAlphabet[c] {
			return i
		}
	}
	return len(s)
}

// trailingTrim returns the exclusive end index after trimming a bounded run
// of trailing non-alphabet bytes (NOT including '=', which is meaningful
// padding and must survive the trim), scanning back at most
// maxTrailingScan bytes from the end of s.
func trailingTrim(s []byte, start int) int {
	end := len(s)
	scanned := 0
	for end > start && scanned < maxTrailingScan {
		if inAlphabet[s[end-1]] {
			break
		}
		end--
		scanned++
	}
	return end
}
