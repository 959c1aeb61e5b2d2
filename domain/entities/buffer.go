package entities

import "strings"

// Symbol is one unit of keyed Morse input
type Symbol int

const (
	Dot Symbol = iota + 1
	Dash
	LetterGap
	WordGap
)

// WordGapToken separates words in rendered Morse text
const WordGapToken = " / "

func (s Symbol) String() string {
	switch s {
	case Dot:
		return "."
	case Dash:
		return "-"
	case LetterGap:
		return " "
	case WordGap:
		return WordGapToken
	default:
		return ""
	}
}

// IsGap reports whether the symbol is a separator rather than a mark
func (s Symbol) IsGap() bool {
	return s == LetterGap || s == WordGap
}

// Buffer accumulates symbols between sends. It is not safe for concurrent use;
// the owning session serializes access.
type Buffer struct {
	symbols []Symbol
}

// NewBuffer creates an empty buffer
func NewBuffer() *Buffer {
	return &Buffer{symbols: make([]Symbol, 0, 32)}
}

// Append adds a dot or dash. Gaps go through AppendLetterGap / AppendWordGap.
func (b *Buffer) Append(s Symbol) {
	switch s {
	case Dot, Dash:
		b.symbols = append(b.symbols, s)
	case LetterGap:
		b.AppendLetterGap()
	case WordGap:
		b.AppendWordGap()
	}
}

// AppendLetterGap closes the current letter. No-op on an empty buffer or after another gap.
func (b *Buffer) AppendLetterGap() bool {
	if len(b.symbols) == 0 || b.last().IsGap() {
		return false
	}
	b.symbols = append(b.symbols, LetterGap)
	return true
}

// AppendWordGap closes the current word. No-op on an empty buffer or when the
// buffer already ends with a word gap. A trailing letter gap is promoted.
func (b *Buffer) AppendWordGap() bool {
	if len(b.symbols) == 0 {
		return false
	}
	switch b.last() {
	case WordGap:
		return false
	case LetterGap:
		b.symbols[len(b.symbols)-1] = WordGap
		return true
	}
	b.symbols = append(b.symbols, WordGap)
	return true
}

// Render returns the textual Morse form sent on the wire
func (b *Buffer) Render() string {
	var sb strings.Builder
	for _, s := range b.symbols {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Symbols returns a copy of the buffered symbols
func (b *Buffer) Symbols() []Symbol {
	out := make([]Symbol, len(b.symbols))
	copy(out, b.symbols)
	return out
}

func (b *Buffer) Clear() {
	b.symbols = b.symbols[:0]
}

func (b *Buffer) Len() int {
	return len(b.symbols)
}

func (b *Buffer) Empty() bool {
	return len(b.symbols) == 0
}

func (b *Buffer) last() Symbol {
	return b.symbols[len(b.symbols)-1]
}
