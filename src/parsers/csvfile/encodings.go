package csvfile

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// textEncoding decodes a whole source into a Go string or reports why the
// bytes do not look like text in that encoding.
type textEncoding struct {
	name    string
	charmap encoding.Encoding // nil for UTF-8
	// rejectC1 rejects decoded text containing U+0080..U+009F. ISO-8859 code
	// pages map those bytes to control characters that never appear in real
	// text, while Windows-1252 maps them to printable characters such as €.
	rejectC1 bool
}

var encodingsByName = map[string]textEncoding{
	"utf-8":        {name: "utf-8"},
	"utf8":         {name: "utf-8"},
	"latin-1":      {name: "latin-1", charmap: charmap.ISO8859_1, rejectC1: true},
	"latin1":       {name: "latin-1", charmap: charmap.ISO8859_1, rejectC1: true},
	"iso-8859-1":   {name: "iso-8859-1", charmap: charmap.ISO8859_1, rejectC1: true},
	"iso8859-1":    {name: "iso-8859-1", charmap: charmap.ISO8859_1, rejectC1: true},
	"iso-8859-2":   {name: "iso-8859-2", charmap: charmap.ISO8859_2, rejectC1: true},
	"iso-8859-15":  {name: "iso-8859-15", charmap: charmap.ISO8859_15, rejectC1: true},
	"windows-1252": {name: "windows-1252", charmap: charmap.Windows1252},
	"cp1252":       {name: "windows-1252", charmap: charmap.Windows1252},
	"windows-1250": {name: "windows-1250", charmap: charmap.Windows1250},
	"cp1250":       {name: "windows-1250", charmap: charmap.Windows1250},
}

// lookupEncoding resolves a configured encoding name.
func lookupEncoding(name string) (textEncoding, error) {
	enc, ok := encodingsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return textEncoding{}, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// utf8BOM is stripped from the start of UTF-8 sources.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (e textEncoding) decode(data []byte) (string, error) {
	if e.charmap == nil {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid %s byte sequence", e.name)
		}
		return string(data), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), e.charmap.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", e.name, err)
	}
	text := string(decoded)
	if e.rejectC1 {
		if i := strings.IndexFunc(text, isC1Control); i >= 0 {
			return "", fmt.Errorf("decode %s: control character %U at byte %d", e.name, []rune(text[i:])[0], i)
		}
	}
	return text, nil
}

func isC1Control(r rune) bool {
	return r >= 0x80 && r <= 0x9F
}
