package chatgpt

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

type tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the BPE encoding for a chat model, falling back to
// cl100k_base for models tiktoken does not know.
func NewTokenizer(model string) (*tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("loading encoding: %w", err)
		}
	}
	return &tokenizer{enc: enc}, nil
}

func (t *tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
