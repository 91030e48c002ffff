package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := EncodeText(TypeGame, "You head north.")
	require.NoError(t, err)

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeGame, env.Type)

	text, err := DecodeText(env)
	require.NoError(t, err)
	assert.Equal(t, "You head north.", text)
}

func TestEnvelopeDataIsBareString(t *testing.T) {
	// Clients send and expect the payload as a plain JSON string.
	env, err := DecodeEnvelope([]byte(`{"type":"game","data":"go north"}`))
	require.NoError(t, err)
	text, err := DecodeText(env)
	require.NoError(t, err)
	assert.Equal(t, "go north", text)

	raw, err := EncodeText(TypeGame, "You head north.")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game","data":"You head north."}`, string(raw))
}

func TestDecodeEnvelopeRejectsMalformed(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"data":{"text":"hi"}}`))
	assert.Error(t, err, "missing type must be rejected")
}

func TestDecodeTextRejectsMalformedPayload(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"game","data":{"text":"hi"}}`))
	require.NoError(t, err)

	_, err = DecodeText(env)
	assert.Error(t, err)
}
