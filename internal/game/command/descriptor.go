// Package command provides the command descriptor table, the per-session
// dispatcher that resolves tokenized input to handlers, and the
// autocomplete suggestion engine.
package command

import (
	"fmt"
	"strings"

	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/world"
)

// Categories grouping commands in help output.
const (
	CategoryMovement    = "Movement"
	CategoryInteraction = "Interaction"
	CategoryCombat      = "Combat"
	CategoryCharacter   = "Character"
	CategoryInventory   = "Inventory"
	CategorySystem      = "System Commands"
)

// Completion kinds tag parameters with the provider that enumerates their
// valid values for autocomplete.
const (
	CompleteDirection = "direction"
	CompleteHostile   = "hostile"
	CompleteItem      = "inventory_item"
	CompleteCommand   = "command"
	CompleteSetOption = "set_option"
	CompleteSetValue  = "set_value"
)

// ParamKind is the scalar type a positional token is coerced to.
type ParamKind int

const (
	KindString ParamKind = iota
	KindInt
)

// Param declares one positional parameter of a command.
type Param struct {
	Name     string
	Kind     ParamKind
	Required bool
	// Completion names the suggestion provider for this parameter. Empty
	// means no completion.
	Completion string
	// Rest marks the single greedy parameter that consumes the remainder
	// of the line. It must be the last parameter.
	Rest bool
}

// Context carries the live objects a handler operates on. It is assembled
// by the engine per dispatch; handlers never construct it.
type Context struct {
	Char     *character.Character
	World    *world.Directory
	Content  *content.Registry
	Registry *Registry
	// Dispatcher is the session's dispatcher, exposed for help rendering
	// of the currently applicable verb set.
	Dispatcher *Dispatcher
	// Broadcast delivers a message to every live session.
	Broadcast func(kind, text string)
}

// HandlerFunc is the typed handler a verb dispatches to. Domain failures
// are reported to the player via ctx.Char.Notify and a nil return; a
// non-nil error signals an internal fault.
type HandlerFunc func(ctx *Context, args Args) error

// Command is one immutable descriptor: verb metadata plus its handler.
type Command struct {
	// Name is the canonical verb, lowercase.
	Name string
	// Category groups the command in help output.
	Category string
	// Summary is the one-line help text.
	Summary string
	// Help is the long-form help shown by help <verb>. May be empty.
	Help string
	// States lists the session states the command applies to.
	States []character.State
	// Params are the positional parameters, in binding order.
	Params []Param
	Handler HandlerFunc
}

// AppliesTo reports whether the command is usable in the given state.
func (c *Command) AppliesTo(state character.State) bool {
	for _, s := range c.States {
		if s == state {
			return true
		}
	}
	return false
}

// Usage renders the usage line, e.g. "attack <target> [ordinal]".
func (c *Command) Usage() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, p := range c.Params {
		if p.Required {
			fmt.Fprintf(&b, " <%s>", p.Name)
		} else {
			fmt.Fprintf(&b, " [%s]", p.Name)
		}
	}
	return b.String()
}

// Group is a named set of commands contributed to the registry together,
// with the token aliases it defines (e.g. "n" expanding to "go north").
type Group struct {
	Name     string
	Commands []Command
	// Aliases maps an alias token to its expansion tokens.
	Aliases map[string][]string
}

// Args holds the bound positional arguments of one dispatch.
type Args struct {
	values map[string]string
	ints   map[string]int
}

// String returns the bound string value for name, or "" when absent.
func (a Args) String(name string) string {
	return a.values[name]
}

// Int returns the bound integer value for name.
//
// Postcondition: ok is false when the parameter was absent.
func (a Args) Int(name string) (int, bool) {
	v, ok := a.ints[name]
	return v, ok
}

// Has reports whether the parameter was supplied.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	if ok {
		return true
	}
	_, ok = a.ints[name]
	return ok
}
