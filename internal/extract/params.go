package extract

import "strings"

// SplitParameters splits a staging-path value on whitespace. Single- or
// double-quoted segments stay in one token with the quotes removed; an
// unterminated quote runs to the end of the input.
func SplitParameters(s string) []string {
	params := make([]string, 0)
	var cur strings.Builder
	inToken := false
	var quote rune

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				params = append(params, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		params = append(params, cur.String())
	}
	return params
}
