// Package tokens provides approximate token counting for rate limiting and
// usage accounting.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Chat models across providers tokenize closely enough to the GPT-4
// encoding for budgeting purposes, so a single shared codec serves all of
// them.
var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func sharedCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.ForModel(tokenizer.GPT4)
		if err != nil {
			return
		}
		codec = c
	})
	return codec
}

// Count returns the number of tokens in text. When the tokenizer is
// unavailable it falls back to the four-characters-per-token heuristic.
func Count(text string) int {
	if text == "" {
		return 0
	}

	c := sharedCodec()
	if c == nil {
		return len(text) / 4
	}

	n, err := c.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}
