// Package sentence reduces loosely phrased player input to the token form
// the command dispatcher understands, for sessions with the "sentence"
// input preference.
package sentence

import "strings"

// filler words are dropped wherever they appear.
var filler = map[string]bool{
	"a": true, "an": true, "the": true,
	"to": true, "at": true, "towards": true,
	"please": true, "then": true,
}

// synonyms maps leading verbs to their canonical command verb.
var synonyms = map[string]string{
	"walk":    "go",
	"head":    "go",
	"travel":  "go",
	"run":     "go",
	"look":    "survey",
	"examine": "survey",
	"search":  "scavenge",
	"forage":  "scavenge",
	"fight":   "attack",
	"hit":     "attack",
	"kill":    "attack",
	"discard": "drop",
	"tell":    "say",
	"shout":   "say",
	"halt":    "stop",
	"cease":   "stop",
}

// verbatimTail lists verbs whose arguments are free text and must not have
// filler stripped from them.
var verbatimTail = map[string]bool{
	"say": true,
}

// Reduce rewrites sentence-style tokens into command tokens: the leading
// verb is canonicalized and filler words are removed from the arguments.
//
// Postcondition: Returns nil iff tokens is empty after reduction.
func Reduce(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	verb := strings.ToLower(tokens[0])
	if canonical, ok := synonyms[verb]; ok {
		verb = canonical
	}

	out := []string{verb}
	if verbatimTail[verb] {
		return append(out, tokens[1:]...)
	}
	for _, tok := range tokens[1:] {
		if filler[strings.ToLower(tok)] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
