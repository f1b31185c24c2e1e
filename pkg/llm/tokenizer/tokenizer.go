// Package tokenizer provides client-side token counting for prompt
// budgeting. Counts are computed locally with tiktoken and are close
// enough across current models for budget decisions.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/craftd/anvil/pkg/types"
)

// encodingName is the BPE encoding used for counting.
const encodingName = "cl100k_base"

// messageOverheadTokens approximates the per-message framing cost (role
// markers and separators) chat APIs add around content.
const messageOverheadTokens = 4

// Tokenizer counts tokens in text and conversations.
type Tokenizer struct {
	encoder *tiktoken.Tiktoken
}

// New creates a tokenizer. Initialization can fail when the encoding data
// is unavailable; callers typically fall back to running without counts.
func New() (*Tokenizer, error) {
	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	return &Tokenizer{encoder: encoder}, nil
}

// CountTokens returns the token count for a piece of text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoder.Encode(text, nil, nil))
}

// CountMessagesTokens returns the approximate token count for a full
// conversation, including per-message framing overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content) + messageOverheadTokens
	}
	return total
}
