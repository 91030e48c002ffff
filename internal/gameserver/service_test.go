package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestReplySemantics(t *testing.T) {
	// autocomplete_get is the Tab-style request: it cycles through the
	// candidates and answers with an autocomplete frame.
	replyType, cycle := suggestReply(TypeSuggestGet)
	assert.Equal(t, TypeAutocomplete, replyType)
	assert.True(t, cycle)

	// autocomplete_suggest fills the first match and answers with a
	// suggestion frame.
	replyType, cycle = suggestReply(TypeSuggest)
	assert.Equal(t, TypeSuggestion, replyType)
	assert.False(t, cycle)
}
