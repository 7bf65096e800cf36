package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.True(t, WellFormedToken(token))
		assert.False(t, seen[token], "duplicate token")
		seen[token] = true
	}
}

func TestWellFormedToken(t *testing.T) {
	assert.False(t, WellFormedToken(""))
	assert.False(t, WellFormedToken("abc"))
	assert.False(t, WellFormedToken(strings.Repeat("g", 64)))
	assert.False(t, WellFormedToken(strings.Repeat("A", 64)))
	assert.True(t, WellFormedToken(strings.Repeat("0a", 32)))
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token-a"))
	assert.NotEqual(t, a, HashToken("token-b"))
	assert.NotEqual(t, "token-a", a)
}
