package ai

import (
	"github.com/cloudwego/eino/schema"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt size for logging. Counts use cl100k_base,
// which is close enough for providers with their own tokenizers.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter loads the cl100k_base codec.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text, or 0 if encoding fails.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// CountMessages sums the token counts of all message bodies.
func (c *TokenCounter) CountMessages(messages []*schema.Message) int {
	total := 0
	for _, msg := range messages {
		total += c.Count(msg.Content)
	}
	return total
}
