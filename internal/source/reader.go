package source

// reader.go cleans raw CSV bytes before parsing.
//
// Exported files come from spreadsheets and ad-hoc scripts, so two problems
// show up in practice:
//
//   - A UTF-8 byte order mark (0xEF 0xBB 0xBF) glued to the first header
//   - Invalid UTF-8 sequences from legacy encodings
//
// Both are handled while streaming, in constant memory.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Sanitize wraps r so that a leading BOM is dropped and invalid UTF-8
// sequences become U+FFFD.
func Sanitize(r io.Reader) io.Reader {
	return transform.NewReader(r, transform.Chain(
		unicode.UTF8BOM.NewDecoder(),
		runes.ReplaceIllFormed(),
	))
}

// countingReader tracks bytes read for logging and metrics.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
