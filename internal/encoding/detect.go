// Package encoding normalizes bank statement files to UTF-8 before parsing.
// Exports from older banking software commonly arrive as Windows-1252 or
// UTF-16 with a BOM.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffLen = 4096

type bom struct {
	prefix  []byte
	decoder *encoding.Decoder
}

var boms = []bom{
	// A UTF-8 BOM has no decoder: the prefix is discarded and the rest
	// passes through.
	{prefix: []byte{0xEF, 0xBB, 0xBF}},
	{prefix: []byte{0xFF, 0xFE}, decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()},
	{prefix: []byte{0xFE, 0xFF}, decoder: unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()},
}

// NewUTF8Reader wraps r so reads yield UTF-8. It sniffs a prefix of the
// stream: BOMs win, valid UTF-8 passes through untouched, anything else goes
// through charset heuristics with Windows-1252 as the fallback.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("sniffing encoding: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(buf, b.prefix) {
			continue
		}

		if b.decoder == nil {
			_, _ = br.Discard(len(b.prefix))
			return br, nil
		}

		return transform.NewReader(br, b.decoder), nil
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	return transform.NewReader(br, sniffDecoder(buf)), nil
}

// sniffDecoder picks a single-byte decoder for content that is not UTF-8.
func sniffDecoder(buf []byte) *encoding.Decoder {
	result, err := chardet.NewTextDetector().DetectBest(buf)
	if err == nil {
		switch result.Charset {
		case "ISO-8859-1", "windows-1252":
			return charmap.Windows1252.NewDecoder()
		case "ISO-8859-15":
			return charmap.ISO8859_15.NewDecoder()
		case "ISO-8859-9":
			return charmap.ISO8859_9.NewDecoder()
		}
	}

	// Windows-1252 is a superset of Latin-1 and the most common legacy
	// encoding in bank exports.
	return charmap.Windows1252.NewDecoder()
}
