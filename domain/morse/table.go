package morse

import "sort"

// SOS is the distress marker, the only multi-character table entry
const SOS = "SOS"

var table = map[string]string{
	".-": "A", "-...": "B", "-.-.": "C", "-..": "D", ".": "E", "..-.": "F", "--.": "G",
	"....": "H", "..": "I", ".---": "J", "-.-": "K", ".-..": "L", "--": "M", "-.": "N",
	"---": "O", ".--.": "P", "--.-": "Q", ".-.": "R", "...": "S", "-": "T", "..-": "U",
	"...-": "V", ".--": "W", "-..-": "X", "-.--": "Y", "--..": "Z",
	"-----": "0", ".----": "1", "..---": "2", "...--": "3", "....-": "4",
	".....": "5", "-....": "6", "--...": "7", "---..": "8", "----.": "9",
	".-.-.-": ".", "--..--": ",", "..--..": "?", "-.-.--": "!", "-..-.": "/",
	".-.-.": "+", "-....-": "-", ".----.": "'", "-.--.": "(", "-.--.-": ")",
	"/":         " ",
	"...---...": SOS,
}

// reverse maps single characters back to their code. The word gap and the
// distress marker are excluded: encoding treats them structurally.
var reverse = func() map[rune]string {
	m := make(map[rune]string, len(table))
	for code, char := range table {
		if code == "/" || char == SOS {
			continue
		}
		m[[]rune(char)[0]] = code
	}
	return m
}()

// Entry is one row of the code table
type Entry struct {
	Code string `json:"code"`
	Char string `json:"char"`
}

// Lookup returns the character for a code
func Lookup(code string) (string, bool) {
	char, ok := table[code]
	return char, ok
}

// CodeFor returns the code for a single character
func CodeFor(r rune) (string, bool) {
	code, ok := reverse[r]
	return code, ok
}

// Entries returns the table sorted by character
func Entries() []Entry {
	entries := make([]Entry, 0, len(table))
	for code, char := range table {
		entries = append(entries, Entry{Code: code, Char: char})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Char == entries[j].Char {
			return entries[i].Code < entries[j].Code
		}
		return entries[i].Char < entries[j].Char
	})
	return entries
}
