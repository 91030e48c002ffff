package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/nymirith/adventure/internal/game/character"
)

func newSuggestFixture(t *testing.T) (*Dispatcher, *Context) {
	t.Helper()
	f := &dispatchFixture{
		begin: &spyHandler{}, move: &spyHandler{}, attack: &spyHandler{}, say: &spyHandler{},
	}
	reg, err := NewRegistry(testGroups(f.begin, f.move, f.attack, f.say))
	require.NoError(t, err)

	providers := NewProviderSet()
	providers.Register(CompleteDirection, func(ctx *Context) []string {
		return []string{"east", "north", "south", "west"}
	})
	providers.Register(CompleteHostile, func(ctx *Context) []string {
		return []string{"bear", "rabbit", "wolf"}
	})

	ch := character.New(1, "inst-1")
	ch.State = character.StateAdventure
	d := NewDispatcher(reg, providers, character.StateAdventure, zaptest.NewLogger(t))
	return d, &Context{Char: ch}
}

func TestSuggestEmptyLine(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "", d.Suggest(ctx, "", false))
	assert.Equal(t, "", d.Suggest(ctx, "   ", false))
}

func TestSuggestUniqueVerbPrefix(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "attack", d.Suggest(ctx, "att", false))
	assert.Equal(t, "go", d.Suggest(ctx, "g", false))
}

func TestSuggestAmbiguousVerbPrefix(t *testing.T) {
	h := func(ctx *Context, args Args) error { return nil }
	states := []character.State{character.StateAdventure}
	reg, err := NewRegistry([]*Group{{
		Name: "g",
		Commands: []Command{
			{Name: "say", States: states, Handler: h},
			{Name: "scavenge", States: states, Handler: h},
		},
	}})
	require.NoError(t, err)
	ch := character.New(1, "inst-1")
	ch.State = character.StateAdventure
	d := NewDispatcher(reg, NewProviderSet(), character.StateAdventure, zaptest.NewLogger(t))
	ctx := &Context{Char: ch}

	assert.Equal(t, "", d.Suggest(ctx, "s", false), "ambiguous prefixes are not expanded")
	assert.Equal(t, "scavenge", d.Suggest(ctx, "sc", false))
}

func TestSuggestVerbPrefixRespectsState(t *testing.T) {
	f := &dispatchFixture{
		begin: &spyHandler{}, move: &spyHandler{}, attack: &spyHandler{}, say: &spyHandler{},
	}
	reg, err := NewRegistry(testGroups(f.begin, f.move, f.attack, f.say))
	require.NoError(t, err)
	ch := character.New(1, "inst-1")
	d := NewDispatcher(reg, NewProviderSet(), character.StateIntro, zaptest.NewLogger(t))
	ctx := &Context{Char: ch}

	assert.Equal(t, "begin", d.Suggest(ctx, "b", false))
	assert.Equal(t, "", d.Suggest(ctx, "att", false), "attack is not applicable in intro")
}

func TestSuggestParamPrefixFillsFirstCandidate(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "go north", d.Suggest(ctx, "go n", false))
	assert.Equal(t, "attack rabbit", d.Suggest(ctx, "attack r", false))
	assert.Equal(t, "", d.Suggest(ctx, "go x", false))
}

func TestSuggestTrailingSpaceFillsFirstCandidate(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "go east", d.Suggest(ctx, "go ", false))
	assert.Equal(t, "attack bear", d.Suggest(ctx, "attack ", false))
	assert.Equal(t, "", d.Suggest(ctx, "go north ", false), "no parameter follows the direction")
}

func TestSuggestParamExactMatchWithoutCycle(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "go north", d.Suggest(ctx, "go north", false))
}

func TestSuggestCycleAdvancesAndWraps(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "go south", d.Suggest(ctx, "go north", true))
	assert.Equal(t, "go east", d.Suggest(ctx, "go west", true), "cycle wraps past the end")
}

func TestSuggestThroughAlias(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "move north", d.Suggest(ctx, "move n", false),
		"single-token alias resolves for parameter position lookup")
}

func TestSuggestUnknownVerb(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "", d.Suggest(ctx, "frobnicate x", false))
}

func TestSuggestParamWithoutProvider(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "", d.Suggest(ctx, "begin Al", false), "begin's name param has no completion")
}

func TestSuggestBeyondDeclaredParams(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	assert.Equal(t, "", d.Suggest(ctx, "go north extra", false))
}

// Property-based tests

func TestPropertySuggestDeterministic(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.SampledFrom([]string{
			"", "g", "go", "go n", "go north", "att", "attack r",
			"attack rabbit", "say h", "zzz", "go q",
		}).Draw(t, "line")
		cycle := rapid.Bool().Draw(t, "cycle")

		first := d.Suggest(ctx, line, cycle)
		second := d.Suggest(ctx, line, cycle)
		if first != second {
			t.Fatalf("suggest(%q, cycle=%v) nondeterministic: %q vs %q", line, cycle, first, second)
		}
	})
}

func TestPropertyCycleStaysInCandidateSet(t *testing.T) {
	d, ctx := newSuggestFixture(t)
	valid := map[string]bool{
		"go east": true, "go north": true, "go south": true, "go west": true,
	}
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.SampledFrom([]string{"go east", "go north", "go south", "go west"}).Draw(t, "start")
		line := start
		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			line = d.Suggest(ctx, line, true)
			if !valid[line] {
				t.Fatalf("cycle left candidate set: %q", line)
			}
		}
	})
}
