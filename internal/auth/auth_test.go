package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticTokens(t *testing.T) {
	s := NewStaticTokens(map[string][]string{
		"tok-1": {"videoroom", "streaming"},
	})

	require.True(t, s.IsValid("tok-1", "default"))
	require.False(t, s.IsValid("tok-2", "default"))
	require.True(t, s.SignatureContains("tok-1", "default", "videoroom"))
	require.False(t, s.SignatureContains("tok-1", "default", "audiobridge"))

	s.AddToken("tok-2", "audiobridge")
	require.True(t, s.IsValid("tok-2", "default"))

	s.RemoveToken("tok-1")
	require.False(t, s.IsValid("tok-1", "default"))
}

func TestAlwaysValid(t *testing.T) {
	var s AlwaysValid
	require.True(t, s.IsValid("anything", "default"))
	require.True(t, s.SignatureContains("anything", "default", "anything"))
}
