package morse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   \t ", want: ""},
		{name: "single letter", input: ".-", want: "A"},
		{name: "word", input: ".... . .-.. .--.", want: "HELP"},
		{name: "letters run together", input: ".... . .--.", want: "HEP"},
		{name: "two words", input: ".... . / .-- --- .-. .-.. -..", want: "HE WORLD"},
		{name: "two words missing R", input: ".... . / .-- --- .-.. -..", want: "HE WOLD"},
		{name: "surrounding whitespace", input: "  ... --- ...  ", want: "SOS"},
		{name: "distress marker", input: "...---...", want: "SOS"},
		{name: "bare word gap", input: "/", want: " "},
		{name: "trailing word gap", input: "... / ", want: "S "},
		{name: "digits", input: ".---- ..--- ...--", want: "123"},
		{name: "punctuation", input: "-.-.-- ..--..", want: "!?"},
	}

	codec := NewCodec(Lenient)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.Decode(tt.input))
		})
	}
}

func TestDecodePlaceholder(t *testing.T) {
	lenient := NewCodec(Lenient)
	strict := NewCodec(Strict)

	assert.Equal(t, "", lenient.Decode("......."))
	assert.Equal(t, "_", strict.Decode("......."))

	assert.Equal(t, "AB", lenient.Decode(".- ....... -..."))
	assert.Equal(t, "A_B", strict.Decode(".- ....... -..."))

	// a doubled space yields an empty token
	assert.Equal(t, "AB", lenient.Decode(".-  -..."))
	assert.Equal(t, "A_B", strict.Decode(".-  -..."))

	assert.Equal(t, "", strict.Decode(""), "empty input decodes to empty in every mode")
	assert.Equal(t, "_", strict.Decode("hello"))
}

func TestDecodeEveryTableEntry(t *testing.T) {
	for _, codec := range []*Codec{NewCodec(Lenient), NewCodec(Strict)} {
		for _, entry := range Entries() {
			assert.Equal(t, entry.Char, codec.Decode(entry.Code), "code %q", entry.Code)
		}
	}
}

func TestZeroValueCodecIsLenient(t *testing.T) {
	var codec Codec
	assert.Equal(t, Lenient, codec.Mode())
	assert.Equal(t, "", codec.Decode("......."))
	assert.Equal(t, "E", codec.Decode("."))
}

func TestEncode(t *testing.T) {
	codec := NewCodec(Strict)

	got, err := codec.Encode("Hello world")
	require.NoError(t, err)
	assert.Equal(t, ".... . .-.. .-.. --- / .-- --- .-. .-.. -..", got)

	got, err = codec.Encode("  sos  ")
	require.NoError(t, err)
	assert.Equal(t, "... --- ...", got)

	got, err = codec.Encode("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestEncodeUnknownCharacter(t *testing.T) {
	_, err := Encode("café")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(Strict)

	for _, entry := range Entries() {
		if entry.Code == "/" || entry.Char == SOS {
			continue
		}
		encoded, err := codec.Encode(entry.Char)
		require.NoError(t, err, "char %q", entry.Char)
		assert.Equal(t, entry.Char, codec.Decode(encoded))
	}

	sentences := []string{"THE QUICK BROWN FOX", "CQ CQ DE K1ABC", "WHAT? (YES!) 1+1"}
	for _, s := range sentences {
		encoded, err := codec.Encode(s)
		require.NoError(t, err)
		assert.Equal(t, s, codec.Decode(encoded))
	}
}

func TestParseDecodeMode(t *testing.T) {
	mode, err := ParseDecodeMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, mode)

	mode, err = ParseDecodeMode(" lenient ")
	require.NoError(t, err)
	assert.Equal(t, Lenient, mode)

	_, err = ParseDecodeMode("loose")
	assert.Error(t, err)
}

func TestLookupAndCodeFor(t *testing.T) {
	char, ok := Lookup("...")
	assert.True(t, ok)
	assert.Equal(t, "S", char)

	_, ok = Lookup(".......")
	assert.False(t, ok)

	code, ok := CodeFor('Q')
	assert.True(t, ok)
	assert.Equal(t, "--.-", code)

	_, ok = CodeFor(' ')
	assert.False(t, ok)
}

func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add(".- / -...")
	f.Add("  / / /  ")
	f.Add("\x00\xff")

	lenient := NewCodec(Lenient)
	strict := NewCodec(Strict)

	f.Fuzz(func(t *testing.T, input string) {
		_ = lenient.Decode(input)
		_ = strict.Decode(input)
	})
}

func BenchmarkDecode(b *testing.B) {
	codec := NewCodec(Strict)
	input := ".... . .-.. .-.. --- / .-- --- .-. .-.. -.. / ...---..."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		codec.Decode(input)
	}
}
