package command

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nymirith/adventure/internal/game/character"
)

// ErrorKind classifies a recoverable dispatch failure. All of these are
// reported to the player and never escalate past the dispatcher; the kinds
// exist so tests and callers can tell them apart.
type ErrorKind int

const (
	// ErrKindUnknown means the verb matched no descriptor.
	ErrKindUnknown ErrorKind = iota
	// ErrKindState means the verb exists but not in the session's state.
	ErrKindState
	// ErrKindUsage means required parameters were missing or malformed.
	ErrKindUsage
)

// Error is a recoverable dispatch failure already reported to the player.
type Error struct {
	Kind ErrorKind
	Verb string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindState:
		return fmt.Sprintf("verb %q not applicable in current state", e.Verb)
	case ErrKindUsage:
		return fmt.Sprintf("bad arguments for verb %q", e.Verb)
	default:
		return fmt.Sprintf("unknown verb %q", e.Verb)
	}
}

// SayEscape is the line prefix rewriting input into the say verb.
const SayEscape = `\`

// Dispatcher resolves tokenized input lines against the subset of the
// registry applicable to one session's current state. It is owned by a
// single session and accessed only under the engine's world lock.
type Dispatcher struct {
	reg       *Registry
	providers *ProviderSet
	logger    *zap.Logger

	state   character.State
	current map[string]*Command
}

// NewDispatcher creates a Dispatcher for a session starting in state.
//
// Precondition: reg, providers, and logger must be non-nil.
func NewDispatcher(reg *Registry, providers *ProviderSet, state character.State, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		reg:       reg,
		providers: providers,
		logger:    logger,
	}
	d.setState(state)
	return d
}

// State returns the state the dispatcher's applicable set was computed for.
func (d *Dispatcher) State() character.State { return d.state }

// setState recomputes the applicable command set for the given state.
func (d *Dispatcher) setState(state character.State) {
	d.state = state
	d.current = make(map[string]*Command)
	for _, verb := range d.reg.Verbs(state) {
		cmd, _ := d.reg.Lookup(verb)
		d.current[verb] = cmd
	}
}

// Dispatch resolves tokens to a handler and invokes it.
//
// Parse and state failures are reported to the player and returned as
// *Error for inspection; they must not terminate the connection. A non-*Error
// return is an internal handler fault.
//
// Precondition: ctx.Char must be the session's character.
// Postcondition: After a handler changes the character's session state, the
// applicable command set is recomputed.
func (d *Dispatcher) Dispatch(ctx *Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	// Say shorthand: a leading escape turns the whole line into speech.
	if strings.HasPrefix(tokens[0], SayEscape) && len(tokens[0]) > len(SayEscape) {
		rest := append([]string{tokens[0][len(SayEscape):]}, tokens[1:]...)
		tokens = append([]string{"say"}, rest...)
	}

	verb := strings.ToLower(tokens[0])
	if expansion, ok := d.reg.Expand(verb); ok {
		tokens = append(append([]string{}, expansion...), tokens[1:]...)
		verb = tokens[0]
	}

	cmd, exists := d.reg.Lookup(verb)
	if !exists {
		if hint, ok := Closest(verb, d.reg.Verbs(d.state)); ok {
			ctx.Char.Notify(character.MsgGame,
				fmt.Sprintf("Unknown command %q. Did you mean %q?", verb, hint))
		} else {
			ctx.Char.Notify(character.MsgGame,
				fmt.Sprintf("Unknown command %q. Try \"help\".", verb))
		}
		return &Error{Kind: ErrKindUnknown, Verb: verb}
	}
	if !cmd.AppliesTo(d.state) {
		ctx.Char.Notify(character.MsgGame, "You can't do that right now.")
		return &Error{Kind: ErrKindState, Verb: verb}
	}

	args, err := bindArgs(cmd, tokens[1:])
	if err != nil {
		ctx.Char.Notify(character.MsgGame,
			fmt.Sprintf("Usage: %s. See \"help %s\".", cmd.Usage(), cmd.Name))
		return &Error{Kind: ErrKindUsage, Verb: verb}
	}

	if err := cmd.Handler(ctx, args); err != nil {
		return fmt.Errorf("handler %s: %w", cmd.Name, err)
	}

	if ctx.Char.State != d.state {
		d.logger.Debug("session state changed, recomputing command set",
			zap.String("from", d.state.String()),
			zap.String("to", ctx.Char.State.String()),
		)
		d.setState(ctx.Char.State)
	}
	return nil
}

// bindArgs binds positional tokens to the command's declared parameters.
func bindArgs(cmd *Command, tokens []string) (Args, error) {
	args := Args{
		values: make(map[string]string),
		ints:   make(map[string]int),
	}
	for i, p := range cmd.Params {
		if i >= len(tokens) {
			if p.Required {
				return Args{}, fmt.Errorf("missing required parameter %q", p.Name)
			}
			break
		}
		if p.Rest {
			args.values[p.Name] = strings.Join(tokens[i:], " ")
			return args, nil
		}
		switch p.Kind {
		case KindInt:
			n, err := strconv.Atoi(tokens[i])
			if err != nil {
				return Args{}, fmt.Errorf("parameter %q must be a number", p.Name)
			}
			args.ints[p.Name] = n
		default:
			args.values[p.Name] = tokens[i]
		}
	}
	if len(tokens) > len(cmd.Params) {
		return Args{}, fmt.Errorf("too many arguments")
	}
	return args, nil
}
