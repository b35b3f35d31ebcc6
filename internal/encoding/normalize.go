// Package encoding turns uploaded spreadsheets exports into UTF-8 text.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the source encoding that was decoded.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8 (BOM)"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	Windows1252 Charset = "windows-1252"
	ISO88591    Charset = "ISO-8859-1"
)

const sniffLen = 4096

var boms = []struct {
	prefix  []byte
	charset Charset
	decoder textenc.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, UTF8BOM, nil},
	{[]byte{0xFF, 0xFE}, UTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{[]byte{0xFE, 0xFF}, UTF16BE, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
}

// Normalize returns a reader that yields r as UTF-8 along with the charset it
// was decoded from. A byte order mark wins, then valid UTF-8, then chardet's
// best guess; anything unrecognised is read as Windows-1252, the usual
// encoding of spreadsheet exports on office machines.
func Normalize(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peeking input: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(buf, b.prefix) {
			continue
		}

		if b.decoder == nil {
			_, _ = br.Discard(len(b.prefix))
			return br, b.charset, nil
		}

		return transform.NewReader(br, b.decoder.NewDecoder()), b.charset, nil
	}

	if utf8.Valid(buf) {
		return br, UTF8, nil
	}

	if res, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		switch res.Charset {
		case "UTF-8":
			return br, UTF8, nil
		case "ISO-8859-1":
			return transform.NewReader(br, charmap.ISO8859_1.NewDecoder()), ISO88591, nil
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), Windows1252, nil
}
