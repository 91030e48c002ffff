// Package commands defines the built-in handler groups: the verbs players
// can invoke in each session state, and the completion providers backing
// their parameters.
package commands

import (
	"github.com/nymirith/adventure/internal/game/command"
)

// BuildGroups returns every built-in handler group.
func BuildGroups() []*command.Group {
	return []*command.Group{
		IntroGroup(),
		WorldGroup(),
		CombatGroup(),
		ItemGroup(),
		ChatGroup(),
		SystemGroup(),
	}
}

// DefaultProviders returns the completion providers for the built-in
// parameter kinds. Candidate orderings are stable for identical state.
func DefaultProviders() *command.ProviderSet {
	p := command.NewProviderSet()

	p.Register(command.CompleteDirection, func(ctx *command.Context) []string {
		return []string{"north", "south", "east", "west"}
	})

	p.Register(command.CompleteHostile, func(ctx *command.Context) []string {
		cell, ok := ctx.World.CellOf(ctx.Char)
		if !ok {
			return nil
		}
		return cell.HostileNames()
	})

	p.Register(command.CompleteItem, func(ctx *command.Context) []string {
		return ctx.Char.Inventory.Names()
	})

	p.Register(command.CompleteCommand, func(ctx *command.Context) []string {
		return ctx.Registry.Verbs(ctx.Char.State)
	})

	p.Register(command.CompleteSetOption, func(ctx *command.Context) []string {
		return []string{"input", "map_on_survey", "scroll"}
	})

	p.Register(command.CompleteSetValue, func(ctx *command.Context) []string {
		return []string{"command", "off", "on", "sentence"}
	})

	return p
}
