package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// helpCategoryOrder fixes the order categories appear in help output.
var helpCategoryOrder = []string{
	command.CategoryMovement,
	command.CategoryInteraction,
	command.CategoryCombat,
	command.CategoryCharacter,
	command.CategoryInventory,
	command.CategorySystem,
}

// validPrefs maps each option to its accepted values.
var validPrefs = map[string][]string{
	"input":         {"command", "sentence"},
	"scroll":        {"on", "off"},
	"map_on_survey": {"on", "off"},
}

// SystemGroup provides the verbs available in every state.
func SystemGroup() *command.Group {
	both := []character.State{character.StateIntro, character.StateAdventure}
	return &command.Group{
		Name: "system",
		Commands: []command.Command{
			{
				Name:     "help",
				Category: command.CategorySystem,
				Summary:  "List commands, or explain one.",
				States:   both,
				Params: []command.Param{
					{Name: "command", Kind: command.KindString, Completion: command.CompleteCommand},
				},
				Handler: handleHelp,
			},
			{
				Name:     "stats",
				Category: command.CategoryCharacter,
				Summary:  "Show your attributes and skills.",
				States:   []character.State{character.StateAdventure},
				Handler:  handleStats,
			},
			{
				Name:     "set",
				Category: command.CategorySystem,
				Summary:  "Change a client option.",
				Help:     "Options: input (command|sentence), scroll (on|off), map_on_survey (on|off).",
				States:   both,
				Params: []command.Param{
					{Name: "option", Kind: command.KindString, Required: true, Completion: command.CompleteSetOption},
					{Name: "value", Kind: command.KindString, Required: true, Completion: command.CompleteSetValue},
				},
				Handler: handleSet,
			},
		},
	}
}

func handleHelp(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	if verb := strings.ToLower(args.String("command")); verb != "" {
		cmd, ok := ctx.Registry.Lookup(verb)
		if !ok || !cmd.AppliesTo(ch.State) {
			ch.Notify(character.MsgGame, fmt.Sprintf("No help for %q.", verb))
			return nil
		}
		text := fmt.Sprintf("%s - %s\nUsage: %s", cmd.Name, cmd.Summary, cmd.Usage())
		if cmd.Help != "" {
			text += "\n" + cmd.Help
		}
		ch.Notify(character.MsgGame, text)
		return nil
	}

	byCategory := ctx.Registry.CommandsByCategory(ch.State)
	var b strings.Builder
	for _, cat := range helpCategoryOrder {
		cmds := byCategory[cat]
		if len(cmds) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(cat)
		for _, cmd := range cmds {
			fmt.Fprintf(&b, "\n  %-12s %s", cmd.Name, cmd.Summary)
		}
	}
	ch.Notify(character.MsgGame, b.String())
	return nil
}

func handleStats(ctx *command.Context, args command.Args) error {
	ch := ctx.Char

	attrs := make([]string, 0, len(ch.Attributes))
	for name := range ch.Attributes {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d hp)", ch.Name, ch.HP, ch.MaxHP)
	b.WriteString("\nAttributes:")
	for _, name := range attrs {
		fmt.Fprintf(&b, "\n  %-12s %d", name, ch.Attributes[name].Level)
	}

	if len(ch.Skills) > 0 {
		skills := make([]string, 0, len(ch.Skills))
		for name := range ch.Skills {
			skills = append(skills, name)
		}
		sort.Strings(skills)
		b.WriteString("\nSkills:")
		for _, name := range skills {
			s := ch.Skills[name]
			fmt.Fprintf(&b, "\n  %-12s %d (%d/%d xp)", name, s.Level, s.XP, s.Level*10)
		}
	}
	ch.Notify(character.MsgGame, b.String())
	return nil
}

func handleSet(ctx *command.Context, args command.Args) error {
	ch := ctx.Char
	option := strings.ToLower(args.String("option"))
	value := strings.ToLower(args.String("value"))

	values, ok := validPrefs[option]
	if !ok {
		names := make([]string, 0, len(validPrefs))
		for n := range validPrefs {
			names = append(names, n)
		}
		sort.Strings(names)
		ch.Notify(character.MsgGame,
			fmt.Sprintf("Unknown option %q. Options: %s.", option, strings.Join(names, ", ")))
		return nil
	}
	valid := false
	for _, v := range values {
		if v == value {
			valid = true
			break
		}
	}
	if !valid {
		ch.Notify(character.MsgGame,
			fmt.Sprintf("Option %q accepts: %s.", option, strings.Join(values, ", ")))
		return nil
	}
	ch.Prefs[option] = value
	ch.Notify(character.MsgGame, fmt.Sprintf("%s is now %s.", option, value))
	return nil
}
