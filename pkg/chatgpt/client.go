package chatgpt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type client struct {
	api *openai.Client
}

func NewClient(token string) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	return &client{
		api: openai.NewClient(token),
	}, nil
}

type CompletionResult struct {
	Content     string
	TotalTokens int
	Raw         string
}

// CreateChatCompletion sends one provider request and returns the assistant
// text along with token usage and the raw response for the audit log.
func (c *client) CreateChatCompletion(
	ctx context.Context,
	model string,
	messages []domain.ProviderMessage,
	user string,
) (*CompletionResult, error) {
	providerMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		providerMessages = append(providerMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: providerMessages,
		User:     user,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshaling raw response: %w", err)
	}

	return &CompletionResult{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
		Raw:         string(raw),
	}, nil
}
