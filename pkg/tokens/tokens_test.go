package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterCount(t *testing.T) {
	counter, err := NewCounter("gpt-4")
	require.NoError(t, err)

	assert.Zero(t, counter.Count(""))
	assert.Positive(t, counter.Count("Hello, world!"))

	// Longer text costs more tokens.
	short := counter.Count("hi")
	long := counter.Count("The quick brown fox jumps over the lazy dog, twice.")
	assert.Greater(t, long, short)
}

func TestCounterNilCodecFallback(t *testing.T) {
	c := &Counter{}
	assert.Equal(t, 3, c.Count("twelve chars"))
}

func TestCountSimple(t *testing.T) {
	assert.Positive(t, CountSimple("estimate me"))
}
