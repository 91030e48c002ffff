package commands

import (
	"errors"
	"fmt"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// CombatGroup provides the combat verbs.
func CombatGroup() *command.Group {
	return &command.Group{
		Name: "combat",
		Commands: []command.Command{
			{
				Name:     "attack",
				Category: command.CategoryCombat,
				Summary:  "Attack a creature in your cell.",
				Help:     "Attack a creature by name. With several of the same kind, pick one by ordinal, e.g. \"attack rabbit 2\". You keep swinging until the target falls, you stop, or you move away.",
				States:   []character.State{character.StateAdventure},
				Params: []command.Param{
					{Name: "target", Kind: command.KindString, Required: true, Completion: command.CompleteHostile},
					{Name: "ordinal", Kind: command.KindInt},
				},
				Handler: handleAttack,
			},
		},
	}
}

func handleAttack(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	target := args.String("target")
	ordinal, ok := args.Int("ordinal")
	if !ok {
		ordinal = 1
	}

	cell, ok := ctx.World.CellOf(ch)
	if !ok {
		return fmt.Errorf("character %s has no active cell at (%d, %d)", ch.InstanceID, ch.X, ch.Z)
	}
	h := cell.FindHostile(target, ordinal)
	if h == nil {
		ch.Notify(character.MsgGame, fmt.Sprintf("You see no %s here.", target))
		return nil
	}
	if err := ch.StartAttacking(h.ID); errors.Is(err, character.ErrSameAction) {
		ch.Notify(character.MsgGame, fmt.Sprintf("You are already attacking the %s.", h.Def.Name))
		return nil
	}
	ch.Notify(character.MsgGame, fmt.Sprintf("You move to attack the %s.", h.Def.Name))
	return nil
}
