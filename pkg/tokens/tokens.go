// Package tokens provides tiktoken-based token counting utilities.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter provides token counting for a target model.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a counter for the given model. All supported providers
// are approximated with the GPT-4 encoding; exact counts are only needed for
// the OpenAI family and the others are close enough for budgeting.
func NewCounter(model string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in the text, falling back to a
// character-based estimate (4 chars per token) when the codec fails.
func (c *Counter) Count(text string) int {
	if c.codec == nil {
		return len(text) / 4
	}
	count, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountSimple counts tokens with the default GPT-4 encoding.
func CountSimple(text string) int {
	counter, err := NewCounter("gpt-4")
	if err != nil {
		return len(text) / 4
	}
	return counter.Count(text)
}
