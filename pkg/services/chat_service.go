package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/chatgpt"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/reply"
)

type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, model string, messages []domain.ProviderMessage, user string) (*chatgpt.CompletionResult, error)
}

type ChatLogRepository interface {
	Save(ctx context.Context, log *domain.ChatLog) error
	Get(ctx context.Context, inferID string) (*domain.ChatLog, error)
	Update(ctx context.Context, inferID string, fn func(*domain.ChatLog) error) error
}

type UserHasher interface {
	Hash(userID string) string
}

type chatService struct {
	client CompletionClient
	logs   ChatLogRepository
	hasher UserHasher
}

func NewChatService(client CompletionClient, logs ChatLogRepository, hasher UserHasher) *chatService {
	return &chatService{
		client: client,
		logs:   logs,
		hasher: hasher,
	}
}

type CompletionOutput struct {
	InferID string
	Reply   []domain.ReplyElement
	Raw     string
	Cost    float64
	Elapsed time.Duration
}

// Complete runs one chat completion: build the provider request, invoke the
// provider once, price the usage, parse the structured reply leniently and
// persist the chat log as its final action. No retry at this layer; a failed
// turn surfaces as an error.
func (s *chatService) Complete(
	ctx context.Context,
	inferID string,
	messages []domain.Message,
	opts domain.GenerationOptions,
	userID string,
) (*CompletionOutput, error) {
	model := opts.ChatModelOrDefault()
	hashedUser := s.hasher.Hash(userID)

	// A model missing from the pricing table is a configuration error; fail
	// before paying for a completion.
	price, err := domain.ChatTokenPrice(model)
	if err != nil {
		return nil, err
	}

	providerMessages, err := buildProviderMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("building provider messages: %w", err)
	}

	slog.InfoContext(ctx, "Creating chat completion", "model", model, "messagesCount", len(providerMessages))

	start := time.Now()
	result, err := s.client.CreateChatCompletion(ctx, model, providerMessages, hashedUser)
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}
	elapsed := time.Since(start)

	cost := price * float64(result.TotalTokens)

	parsed := reply.ExpandMarkers(reply.Parse(result.Content))

	slog.InfoContext(ctx, "Chat completion received",
		"elements", len(parsed), "totalTokens", result.TotalTokens, "cost", cost, "elapsed", elapsed)

	history := make([]domain.Message, 0, len(messages)+1)
	history = append(history, messages...)
	history = append(history, domain.Message{Role: domain.RoleAssistant, Content: parsed})

	log := &domain.ChatLog{
		InferID: inferID,
		Input: domain.ChatLogInput{
			Model:      model,
			Messages:   providerMessages,
			HashedUser: hashedUser,
		},
		RawResponse:    result.Raw,
		Cost:           cost,
		ResponseTimeMs: float64(elapsed.Milliseconds()),
		Messages:       history,
		Reply:          parsed,
		Options:        opts,
	}
	if err := s.logs.Save(ctx, log); err != nil {
		return nil, fmt.Errorf("saving chat log: %w", err)
	}

	return &CompletionOutput{
		InferID: inferID,
		Reply:   parsed,
		Raw:     result.Content,
		Cost:    cost,
		Elapsed: elapsed,
	}, nil
}

// buildProviderMessages serializes each message's element array to a JSON
// string, the content format the provider request uses.
func buildProviderMessages(messages []domain.Message) ([]domain.ProviderMessage, error) {
	out := make([]domain.ProviderMessage, 0, len(messages))
	for _, m := range messages {
		content, err := json.Marshal(m.Content)
		if err != nil {
			return nil, fmt.Errorf("marshaling message content: %w", err)
		}
		out = append(out, domain.ProviderMessage{
			Role:    string(m.Role),
			Content: string(content),
		})
	}
	return out, nil
}
