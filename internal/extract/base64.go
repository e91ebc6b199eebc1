package extract

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
)

const (
	// MinBase64Run is the shortest alphabet run considered a base64 candidate.
	// Shorter runs match ordinary identifiers far too often.
	MinBase64Run = 17

	// MinPrintable is the least number of printable characters a decoded
	// payload must contain.
	MinPrintable = 8
)

var base64RunRegex = regexp.MustCompile(`[A-Za-z0-9+/]{17,}={0,2}`)

// DecodedRun is a base64 run that decoded to plausible text.
type DecodedRun struct {
	Encoded string
	Raw     []byte
	Text    string
	Offset  int
}

// DecodeBase64Runs finds base64 runs in text and returns those that decode
// to plausible text, in order of appearance. Runs that fail to decode are
// dropped without error.
func DecodeBase64Runs(text string) []DecodedRun {
	var out []DecodedRun
	for _, loc := range base64RunRegex.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		raw, ok := decodeBase64(run)
		if !ok {
			continue
		}
		decoded, ok := plausibleText(raw)
		if !ok {
			continue
		}
		out = append(out, DecodedRun{Encoded: run, Raw: raw, Text: decoded, Offset: loc[0]})
	}
	return out
}

func decodeBase64(run string) ([]byte, bool) {
	body := strings.TrimRight(run, "=")
	if len(body)%4 == 1 {
		return nil, false
	}
	raw, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// plausibleText converts decoded bytes to text when they look like UTF-8 or
// UTF-16LE (the encoding PowerShell uses for -EncodedCommand) and are printable.
func plausibleText(raw []byte) (string, bool) {
	if utf8.Valid(raw) && printable(string(raw)) {
		return string(raw), true
	}
	if looksUTF16LE(raw) {
		dec := textunicode.UTF16(textunicode.LittleEndian, textunicode.IgnoreBOM).NewDecoder()
		b, err := dec.Bytes(raw)
		if err == nil && printable(string(b)) {
			return string(b), true
		}
	}
	return "", false
}

func looksUTF16LE(raw []byte) bool {
	if len(raw) < 2*MinPrintable || len(raw)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 1; i < len(raw); i += 2 {
		if raw[i] == 0 {
			zeros++
		}
	}
	return zeros*4 >= len(raw)/2*3
}

func printable(s string) bool {
	count := 0
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			return false
		case r == '\t' || r == '\n' || r == '\r':
		case !unicode.IsPrint(r):
			return false
		default:
			count++
		}
	}
	return count >= MinPrintable
}
