// Package encoding decodes text columns written in legacy code pages.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Decoder converts raw column text to UTF-8.
type Decoder interface {
	Decode(s string) string
}

// NewDecoder returns a Decoder for the named code page. Empty names and
// "utf-8" return a pass-through decoder.
func NewDecoder(name string) (Decoder, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return utf8Decoder{}, nil
	case "gbk":
		return codePage{simplifiedchinese.GBK}, nil
	case "gb18030":
		return codePage{simplifiedchinese.GB18030}, nil
	case "euc-kr", "euckr":
		return codePage{korean.EUCKR}, nil
	default:
		return nil, fmt.Errorf("unsupported text encoding: %q", name)
	}
}

type utf8Decoder struct{}

func (utf8Decoder) Decode(s string) string {
	return TrimNull(s)
}

type codePage struct {
	enc encoding.Encoding
}

// Decode converts s from the code page. Input that is already valid UTF-8
// or fails to decode is returned unchanged.
func (c codePage) Decode(s string) string {
	s = TrimNull(s)
	if isASCII(s) {
		return s
	}
	result, _, err := transform.String(c.enc.NewDecoder(), s)
	if err != nil || !utf8.ValidString(result) {
		return s
	}
	return result
}

// TrimNull cuts s at its first null byte.
func TrimNull(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

func isASCII(s string) bool {
	return bytes.IndexFunc([]byte(s), func(r rune) bool { return r >= utf8.RuneSelf }) < 0
}
