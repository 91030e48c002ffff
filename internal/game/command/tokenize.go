package command

import "strings"

// Tokenize splits a command line into tokens, honoring single- and
// double-quoted substrings as single tokens. Quotes are stripped; an
// unterminated quote runs to the end of the line.
//
// Postcondition: Returns nil for a blank line.
func Tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote byte

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t':
			flush()
		default:
			cur.WriteByte(ch)
			inToken = true
		}
	}
	flush()
	return tokens
}
