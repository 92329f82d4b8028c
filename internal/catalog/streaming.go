package catalog

// streaming.go provides memory-efficient reader wrappers for the CSV path.
//
// Catalog exports from Windows tooling frequently carry a UTF-8 BOM and the
// occasional invalid byte sequence. These wrappers fix both on the fly so the
// CSV decoder sees clean input without the file ever being loaded whole:
//
//   - NewBOMSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - NewUTF8SanitizingReader: replaces invalid UTF-8 bytes with '?'

import (
	"bufio"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMSkippingReader returns a reader with any leading UTF-8 BOM removed.
// A partial BOM prefix is passed through untouched.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil &&
		b[0] == utf8BOM[0] && b[1] == utf8BOM[1] && b[2] == utf8BOM[2] {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8SanitizingReader replaces invalid UTF-8 sequences with '?' as data
// streams through, using O(buffer) memory regardless of file size.
type utf8SanitizingReader struct {
	r io.Reader

	// Bytes held back from the previous read that may start a multi-byte
	// sequence completed by the next read.
	pending []byte
}

// NewUTF8SanitizingReader wraps r so that every byte that is not part of a
// valid UTF-8 sequence is replaced with '?'.
func NewUTF8SanitizingReader(r io.Reader) io.Reader {
	return &utf8SanitizingReader{
		r:       r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *utf8SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		off := copy(p, s.pending)
		rem := copy(s.pending, s.pending[off:])
		s.pending = s.pending[:rem]

		var n int
		var err error
		if off < len(p) {
			n, err = s.r.Read(p[off:])
		}
		n += off
		if n == 0 {
			return 0, err
		}

		keep := n
		if err == nil && len(p) >= utf8.UTFMax {
			// Hold back a trailing sequence that may be completed by the
			// next read. Destinations smaller than a full sequence can
			// never assemble one, so for those nothing is held back and a
			// split rune degrades to '?' bytes instead of stalling. At EOF
			// nothing is held back either, so truncated sequences at the
			// end of the file still get sanitized.
			for i := n - 1; i >= 0 && n-i <= utf8.UTFMax; i-- {
				if utf8.RuneStart(p[i]) {
					if !utf8.FullRune(p[i:n]) {
						s.pending = append(s.pending, p[i:n]...)
						keep = i
					}
					break
				}
			}
		}

		sanitizeInPlace(p[:keep])

		if keep > 0 || err != nil {
			return keep, err
		}
		// Everything was held back; read more before returning.
	}
}

func sanitizeInPlace(b []byte) {
	for i := 0; i < len(b); {
		if b[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			b[i] = '?'
			i++
			continue
		}
		i += size
	}
}
