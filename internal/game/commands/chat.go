package commands

import (
	"fmt"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// ChatGroup provides the chat verbs. Chat is global: every live session
// hears it regardless of position.
func ChatGroup() *command.Group {
	return &command.Group{
		Name: "chat",
		Commands: []command.Command{
			{
				Name:     "say",
				Category: command.CategoryCharacter,
				Summary:  "Say something to everyone.",
				Help:     "Say something out loud. Lines starting with \\ are treated as chat without the verb.",
				States:   []character.State{character.StateAdventure},
				Params: []command.Param{
					{Name: "message", Kind: command.KindString, Required: true, Rest: true},
				},
				Handler: handleSay,
			},
		},
	}
}

func handleSay(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	msg := args.String("message")
	if ctx.Broadcast == nil {
		return fmt.Errorf("no broadcast sink for character %s", ch.InstanceID)
	}
	ctx.Broadcast(character.MsgChat, fmt.Sprintf("%s: %s", ch.Name, msg))
	return nil
}
