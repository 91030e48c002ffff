package commands

import (
	"fmt"
	"strings"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// ItemGroup provides the inventory verbs.
func ItemGroup() *command.Group {
	adventure := []character.State{character.StateAdventure}
	return &command.Group{
		Name: "item",
		Commands: []command.Command{
			{
				Name:     "inventory",
				Category: command.CategoryInventory,
				Summary:  "List what you are carrying.",
				States:   adventure,
				Handler:  handleInventory,
			},
			{
				Name:     "drop",
				Category: command.CategoryInventory,
				Summary:  "Drop a carried item on the ground.",
				Help:     "Drop an item by name. With several of the same kind, pick one by ordinal, e.g. \"drop sagewort 2\".",
				States:   adventure,
				Params: []command.Param{
					{Name: "item", Kind: command.KindString, Required: true, Completion: command.CompleteItem},
					{Name: "ordinal", Kind: command.KindInt},
				},
				Handler: handleDrop,
			},
		},
		Aliases: map[string][]string{
			"i":   {"inventory"},
			"inv": {"inventory"},
		},
	}
}

func handleInventory(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	items := ch.Inventory.Items()
	if len(items) == 0 {
		ch.Notify(character.MsgGame,
			fmt.Sprintf("You are carrying nothing. (%d slots free)", ch.Inventory.FreeSlots()))
		return nil
	}
	var b strings.Builder
	b.WriteString("You are carrying:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n  %s (%d)", it.Label(), it.Slots)
	}
	fmt.Fprintf(&b, "\n%d of %d slots free.", ch.Inventory.FreeSlots(), ch.Inventory.Capacity())
	ch.Notify(character.MsgGame, b.String())
	return nil
}

func handleDrop(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	name := args.String("item")
	ordinal, ok := args.Int("ordinal")
	if !ok {
		ordinal = 1
	}

	cell, ok := ctx.World.CellOf(ch)
	if !ok {
		return fmt.Errorf("character %s has no active cell at (%d, %d)", ch.InstanceID, ch.X, ch.Z)
	}
	it, err := ch.Inventory.Remove(name, ordinal)
	if err != nil {
		ch.Notify(character.MsgGame, fmt.Sprintf("You are not carrying %q.", name))
		return nil
	}
	cell.GroundItems = append(cell.GroundItems, it)
	ch.Notify(character.MsgGame,
		fmt.Sprintf("You drop the %s. (%d slots free)", it.Label(), ch.Inventory.FreeSlots()))
	cell.Broadcast(character.MsgGame,
		fmt.Sprintf("%s drops a %s.", ch.Name, it.Label()), ch.InstanceID)
	return nil
}
