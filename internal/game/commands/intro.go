package commands

import (
	"fmt"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// IntroGroup provides the pre-world verbs.
func IntroGroup() *command.Group {
	return &command.Group{
		Name: "intro",
		Commands: []command.Command{
			{
				Name:     "begin",
				Category: command.CategorySystem,
				Summary:  "Enter the world with a name.",
				Help:     "Begin your adventure. Names are at most twelve characters with no spaces.",
				States:   []character.State{character.StateIntro},
				Params: []command.Param{
					{Name: "name", Kind: command.KindString, Required: true},
				},
				Handler: handleBegin,
			},
		},
	}
}

func handleBegin(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	name := args.String("name")
	if err := ch.EnterWorld(name, ch.X, ch.Z); err != nil {
		ch.Notify(character.MsgGame, fmt.Sprintf("You cannot begin: %s.", err))
		return nil
	}
	ctx.World.Enter(ch)
	ch.Notify(character.MsgGame,
		fmt.Sprintf("Welcome to Nymirith, %s. Type \"help\" to see what you can do.", ch.Name))
	ch.Notify(character.MsgGame, renderSurvey(ctx))
	return nil
}
