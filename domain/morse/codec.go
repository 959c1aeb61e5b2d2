package morse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DecodeMode selects what an unrecognized token decodes to
type DecodeMode string

const (
	// Lenient drops unknown tokens
	Lenient DecodeMode = "lenient"
	// Strict marks unknown tokens with an underscore
	Strict DecodeMode = "strict"
)

const (
	wordSeparator   = " / "
	letterSeparator = " "
)

var ErrUnencodable = errors.New("character has no morse code")

// ParseDecodeMode parses a mode name, case-insensitively
func ParseDecodeMode(s string) (DecodeMode, error) {
	switch DecodeMode(strings.ToLower(strings.TrimSpace(s))) {
	case Lenient:
		return Lenient, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown decode mode %q", s)
	}
}

// Placeholder returns the replacement for unknown tokens in this mode
func (m DecodeMode) Placeholder() string {
	if m == Strict {
		return "_"
	}
	return ""
}

// Codec translates between Morse text and plain text. The zero value decodes leniently.
type Codec struct {
	mode DecodeMode
}

// NewCodec creates a codec using the given decode mode
func NewCodec(mode DecodeMode) *Codec {
	if mode != Strict {
		mode = Lenient
	}
	return &Codec{mode: mode}
}

func (c *Codec) Mode() DecodeMode {
	if c == nil || c.mode == "" {
		return Lenient
	}
	return c.mode
}

// Decode translates Morse text. It never fails: unknown tokens become the
// mode's placeholder.
func (c *Codec) Decode(morseText string) string {
	morseText = strings.TrimSpace(morseText)
	if morseText == "" {
		return ""
	}

	placeholder := c.Mode().Placeholder()
	words := strings.Split(morseText, wordSeparator)
	decoded := make([]string, 0, len(words))

	for _, word := range words {
		var sb strings.Builder
		for _, token := range strings.Split(word, letterSeparator) {
			if char, ok := table[token]; ok {
				sb.WriteString(char)
				continue
			}
			sb.WriteString(placeholder)
		}
		decoded = append(decoded, sb.String())
	}

	return strings.Join(decoded, " ")
}

// Encode translates plain text into Morse text. Letters are upper-cased,
// words are split on runs of whitespace.
func (c *Codec) Encode(text string) (string, error) {
	words := strings.FieldsFunc(text, unicode.IsSpace)
	encoded := make([]string, 0, len(words))

	for _, word := range words {
		letters := make([]string, 0, len(word))
		for _, r := range strings.ToUpper(word) {
			code, ok := reverse[r]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnencodable, r)
			}
			letters = append(letters, code)
		}
		encoded = append(encoded, strings.Join(letters, letterSeparator))
	}

	return strings.Join(encoded, wordSeparator), nil
}

var defaultCodec = NewCodec(Lenient)

// Decode translates Morse text with the lenient codec
func Decode(morseText string) string {
	return defaultCodec.Decode(morseText)
}

// Encode translates plain text with the default codec
func Encode(text string) (string, error) {
	return defaultCodec.Encode(text)
}
