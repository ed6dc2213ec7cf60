package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/reply"
)

type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

const defaultTokensPerChunk = 3000

type summaryService struct {
	chat           ChatCompleter
	tokenizer      Tokenizer
	tokensPerChunk int
}

func NewSummaryService(chat ChatCompleter, tokenizer Tokenizer) *summaryService {
	return &summaryService{
		chat:           chat,
		tokenizer:      tokenizer,
		tokensPerChunk: defaultTokensPerChunk,
	}
}

// Chunk splits text on token boundaries into pieces of at most tokensPerChunk
// tokens. Decoding each piece yields a contiguous slice of the original token
// sequence, so the concatenation round-trips to the original text.
func (s *summaryService) Chunk(text string, tokensPerChunk int) []string {
	tokens := s.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(tokens); start += tokensPerChunk {
		end := min(start+tokensPerChunk, len(tokens))
		chunks = append(chunks, s.tokenizer.Decode(tokens[start:end]))
	}
	return chunks
}

type SummaryResult struct {
	InferIDs []string `json:"inferIds"`
	Summary  string   `json:"summary"`
}

// Summarize condenses text that may exceed the model's context. Multiple
// chunks are summarized independently, concatenated and summarized once more;
// a single chunk is summarized directly. A question steers the prompt from
// summarizing to answering.
func (s *summaryService) Summarize(
	ctx context.Context,
	text, question string,
	opts domain.GenerationOptions,
	userID string,
) (*SummaryResult, error) {
	chunks := s.Chunk(text, s.tokensPerChunk)
	if len(chunks) == 0 {
		return &SummaryResult{}, nil
	}

	slog.InfoContext(ctx, "Summarizing text", "chunks", len(chunks), "question", question)

	result := &SummaryResult{}

	if len(chunks) == 1 {
		summary, err := s.summarizeOnce(ctx, chunks[0], question, opts, userID, result)
		if err != nil {
			return nil, err
		}
		result.Summary = summary
		return result, nil
	}

	var parts []string
	for i, chunk := range chunks {
		summary, err := s.summarizeOnce(ctx, chunk, question, opts, userID, result)
		if err != nil {
			return nil, fmt.Errorf("summarizing chunk %d: %w", i, err)
		}
		parts = append(parts, summary)
	}

	summary, err := s.summarizeOnce(ctx, strings.Join(parts, "\n\n"), question, opts, userID, result)
	if err != nil {
		return nil, fmt.Errorf("summarizing combined chunks: %w", err)
	}
	result.Summary = summary
	return result, nil
}

func (s *summaryService) summarizeOnce(
	ctx context.Context,
	text, question string,
	opts domain.GenerationOptions,
	userID string,
	result *SummaryResult,
) (string, error) {
	prompt := "Summarize the following text:\n\n" + text
	if question != "" {
		prompt = fmt.Sprintf(
			"Answer the following question based on the text below. If the text does not contain the answer, summarize the text instead.\n\nQuestion: %s\n\nText:\n%s",
			question, text)
	}

	inferID := domain.NewInferID()
	out, err := s.chat.Complete(ctx, inferID, []domain.Message{
		{Role: domain.RoleUser, Content: []domain.ReplyElement{domain.TextElement(prompt)}},
	}, opts, userID)
	if err != nil {
		return "", err
	}

	result.InferIDs = append(result.InferIDs, inferID)
	return reply.JoinText(out.Reply), nil
}
