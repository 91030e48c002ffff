package command

import "strings"

// Provider enumerates the valid completions of one parameter kind given
// live session and world context. Providers must return a stable ordering
// for identical state so suggestions are deterministic.
type Provider func(ctx *Context) []string

// ProviderSet maps completion kinds to their providers.
type ProviderSet struct {
	providers map[string]Provider
}

// NewProviderSet returns an empty ProviderSet.
func NewProviderSet() *ProviderSet {
	return &ProviderSet{providers: make(map[string]Provider)}
}

// Register adds a provider for the given completion kind, replacing any
// existing one.
func (p *ProviderSet) Register(kind string, fn Provider) {
	p.providers[kind] = fn
}

// Suggest completes a partially typed command line.
//
// A partial verb completes only when exactly one applicable verb shares its
// prefix. A partial parameter completes to the first candidate sharing its
// prefix; when cycle is set and the last token already matches a candidate
// exactly, it is replaced by the next candidate in order, wrapping around.
//
// Postcondition: Returns the completed line, or "" when no completion
// applies. Identical state and input always yield identical output.
func (d *Dispatcher) Suggest(ctx *Context, line string, cycle bool) string {
	tokens := Tokenize(line)
	if len(tokens) == 0 || tokens[0] == "" {
		return ""
	}

	// A trailing space starts an empty next token; the zero-length prefix
	// matches every candidate, so "go " completes to the first direction.
	if strings.HasSuffix(line, " ") {
		tokens = append(tokens, "")
	}

	if len(tokens) == 1 {
		return d.completeVerb(strings.ToLower(tokens[0]))
	}

	verb := strings.ToLower(tokens[0])
	if expansion, ok := d.reg.Expand(verb); ok && len(expansion) == 1 {
		verb = expansion[0]
	}
	cmd, ok := d.current[verb]
	if !ok {
		return ""
	}

	paramIdx := len(tokens) - 2
	if paramIdx < 0 || paramIdx >= len(cmd.Params) {
		return ""
	}
	param := cmd.Params[paramIdx]
	if param.Completion == "" {
		return ""
	}
	provider, ok := d.providers.providers[param.Completion]
	if !ok {
		return ""
	}
	candidates := provider(ctx)
	if len(candidates) == 0 {
		return ""
	}

	last := strings.ToLower(tokens[len(tokens)-1])
	if idx := exactIndex(candidates, last); idx >= 0 {
		if !cycle {
			return line
		}
		next := candidates[(idx+1)%len(candidates)]
		tokens[len(tokens)-1] = next
		return strings.Join(tokens, " ")
	}
	for _, c := range candidates {
		if strings.HasPrefix(c, last) {
			tokens[len(tokens)-1] = c
			return strings.Join(tokens, " ")
		}
	}
	return ""
}

// completeVerb returns the unique applicable verb sharing the prefix, or "".
// Ambiguous prefixes are not expanded.
func (d *Dispatcher) completeVerb(prefix string) string {
	match := ""
	for _, verb := range d.reg.Verbs(d.state) {
		if strings.HasPrefix(verb, prefix) {
			if match != "" {
				return ""
			}
			match = verb
		}
	}
	return match
}

func exactIndex(candidates []string, token string) int {
	for i, c := range candidates {
		if c == token {
			return i
		}
	}
	return -1
}
