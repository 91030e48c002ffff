package command

import (
	"fmt"
	"sort"

	"github.com/nymirith/adventure/internal/game/character"
)

// Registry maps verbs and aliases to command descriptors across all handler
// groups. It is immutable after construction; per-session applicability is
// computed by the Dispatcher from the session's state.
type Registry struct {
	commands map[string]*Command  // canonical verb → command
	aliases  map[string][]string  // alias token → expansion tokens
}

// NewRegistry creates a Registry populated from the given handler groups.
//
// Precondition: No two groups may contribute the same verb or alias.
// Postcondition: Returns a Registry or an error on verb/alias collisions.
func NewRegistry(groups []*Group) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string][]string),
	}

	for _, g := range groups {
		for i := range g.Commands {
			cmd := &g.Commands[i]
			if err := validateCommand(cmd); err != nil {
				return nil, fmt.Errorf("group %s: %w", g.Name, err)
			}
			if _, exists := r.commands[cmd.Name]; exists {
				return nil, fmt.Errorf("group %s: duplicate verb %q", g.Name, cmd.Name)
			}
			r.commands[cmd.Name] = cmd
		}
		for alias, expansion := range g.Aliases {
			if _, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("group %s: duplicate alias %q", g.Name, alias)
			}
			if len(expansion) == 0 {
				return nil, fmt.Errorf("group %s: alias %q has empty expansion", g.Name, alias)
			}
			r.aliases[alias] = expansion
		}
	}

	for alias, expansion := range r.aliases {
		if _, exists := r.commands[alias]; exists {
			return nil, fmt.Errorf("alias %q conflicts with a verb", alias)
		}
		if _, ok := r.commands[expansion[0]]; !ok {
			return nil, fmt.Errorf("alias %q expands to unknown verb %q", alias, expansion[0])
		}
	}

	return r, nil
}

func validateCommand(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("command with empty verb")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("verb %q has no handler", cmd.Name)
	}
	if len(cmd.States) == 0 {
		return fmt.Errorf("verb %q applies to no states", cmd.Name)
	}
	for i, p := range cmd.Params {
		if p.Rest && i != len(cmd.Params)-1 {
			return fmt.Errorf("verb %q: rest parameter %q must be last", cmd.Name, p.Name)
		}
		if p.Rest && p.Kind != KindString {
			return fmt.Errorf("verb %q: rest parameter %q must be a string", cmd.Name, p.Name)
		}
		if i > 0 && p.Required && !cmd.Params[i-1].Required {
			return fmt.Errorf("verb %q: required parameter %q follows an optional one", cmd.Name, p.Name)
		}
	}
	return nil
}

// Lookup returns the descriptor for a canonical verb.
func (r *Registry) Lookup(verb string) (*Command, bool) {
	cmd, ok := r.commands[verb]
	return cmd, ok
}

// Expand returns the expansion tokens for an alias.
func (r *Registry) Expand(alias string) ([]string, bool) {
	exp, ok := r.aliases[alias]
	return exp, ok
}

// Verbs returns the canonical verbs applicable in the given state, sorted.
func (r *Registry) Verbs(state character.State) []string {
	verbs := make([]string, 0, len(r.commands))
	for name, cmd := range r.commands {
		if cmd.AppliesTo(state) {
			verbs = append(verbs, name)
		}
	}
	sort.Strings(verbs)
	return verbs
}

// CommandsByCategory returns the applicable commands for a state grouped by
// category, each group sorted by verb.
func (r *Registry) CommandsByCategory(state character.State) map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.commands {
		if cmd.AppliesTo(state) {
			categories[cmd.Category] = append(categories[cmd.Category], cmd)
		}
	}
	for _, cmds := range categories {
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	}
	return categories
}
