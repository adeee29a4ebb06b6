package srt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultFallbackEncoding is used for input that is neither BOM-marked nor
// valid UTF-8.
const DefaultFallbackEncoding = "gb18030"

// Decode converts raw subtitle bytes to a UTF-8 string with LF line endings.
func Decode(data []byte, fallback string) (string, error) {
	var text string
	switch {
	case hasBOM(data):
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", fmt.Errorf("decode bom-marked input: %w", err)
		}
		text = string(decoded)
	case utf8.Valid(data):
		text = string(data)
	default:
		enc, err := lookupEncoding(fallback)
		if err != nil {
			return "", err
		}
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("decode %s input: %w", fallback, err)
		}
		text = string(decoded)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

func hasBOM(data []byte) bool {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return true
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return true
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return true
	}
	return false
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultFallbackEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown subtitle encoding %q: %w", name, err)
	}
	return enc, nil
}

// ValidEncoding reports whether name resolves to a known charset.
func ValidEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}
