package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/reply"
	"github.com/dskvich/ai-chat-server/pkg/repository"
)

type ChatCompleter interface {
	Complete(ctx context.Context, inferID string, messages []domain.Message, opts domain.GenerationOptions, userID string) (*CompletionOutput, error)
}

type ImageGenerator interface {
	GenerateWithRetry(ctx context.Context, req GenerateImageRequest) (string, error)
}

type LanguageDetector interface {
	Detect(text string) string
}

type ReplyRenderer interface {
	Provisional(elements []domain.ReplyElement) string
	Final(elements []domain.ReplyElement) string
}

type ChatLogUpdater interface {
	Update(ctx context.Context, inferID string, fn func(*domain.ChatLog) error) error
}

// streamService sequences one chat turn into the three ordered events of the
// push channel: setInferId, chatResponse, imagesLoaded. Image generation for a
// turn fans out concurrently; the events stay strictly ordered regardless.
type streamService struct {
	chat     ChatCompleter
	images   ImageGenerator
	language LanguageDetector
	renderer ReplyRenderer
	logs     ChatLogUpdater
}

func NewStreamService(
	chat ChatCompleter,
	images ImageGenerator,
	language LanguageDetector,
	renderer ReplyRenderer,
	logs ChatLogUpdater,
) *streamService {
	return &streamService{
		chat:     chat,
		images:   images,
		language: language,
		renderer: renderer,
		logs:     logs,
	}
}

// Run executes one chat turn, pushing events into the channel and closing it
// when the turn is done. Any unrecovered error emits a terminal exception
// event; failures local to a single image never abort the turn.
func (s *streamService) Run(ctx context.Context, args repository.ChatArgs, events chan<- domain.StreamEvent) {
	defer close(events)

	inferID := domain.NewInferID()
	ctx = logger.ContextWithTurnID(ctx, inferID)

	if err := s.runTurn(ctx, inferID, args, events); err != nil {
		slog.ErrorContext(ctx, "Chat turn failed", logger.Err(err))
		events <- domain.StreamEvent{
			Name:    domain.EventException,
			Payload: domain.ExceptionPayload{Error: err.Error()},
		}
	}
}

func (s *streamService) runTurn(
	ctx context.Context,
	inferID string,
	args repository.ChatArgs,
	events chan<- domain.StreamEvent,
) error {
	events <- domain.StreamEvent{Name: domain.EventSetInferID, Payload: inferID}

	out, err := s.chat.Complete(ctx, inferID, args.Messages, args.Options, args.UserID)
	if err != nil {
		return fmt.Errorf("completing chat: %w", err)
	}

	detected := s.language.Detect(reply.JoinText(out.Reply))

	events <- domain.StreamEvent{
		Name: domain.EventChatResponse,
		Payload: domain.ChatResponsePayload{
			DetectedLanguage: detected,
			Reply:            out.Reply,
			HTML:             s.renderer.Provisional(out.Reply),
		},
	}

	final := s.generateImages(ctx, args, out.Reply)

	if err := s.logs.Update(ctx, inferID, func(log *domain.ChatLog) error {
		log.Reply = final
		if n := len(log.Messages); n > 0 && log.Messages[n-1].Role == domain.RoleAssistant {
			log.Messages[n-1].Content = final
		}
		return nil
	}); err != nil {
		return fmt.Errorf("updating chat log: %w", err)
	}

	events <- domain.StreamEvent{
		Name: domain.EventImagesLoaded,
		Payload: domain.ChatResponsePayload{
			DetectedLanguage: detected,
			Reply:            final,
			HTML:             s.renderer.Final(final),
		},
	}
	return nil
}

// generateImages starts one task per image-bearing element, no fan-out bound,
// and merges results back by element position. An element whose generation
// exhausted its retries keeps imageFile unset.
func (s *streamService) generateImages(
	ctx context.Context,
	args repository.ChatArgs,
	elements []domain.ReplyElement,
) []domain.ReplyElement {
	final := make([]domain.ReplyElement, len(elements))
	copy(final, elements)

	var wg sync.WaitGroup
	for i := range final {
		if !final[i].NeedsImage() {
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			el := final[i]
			req := GenerateImageRequest{
				Prompt:         el.Prompt,
				NegativePrompt: el.NegativePrompt,
				Options:        args.Options,
				UserID:         args.UserID,
			}
			if el.Type == domain.ElementEditImage {
				req.Edit = true
				req.InputImage, _ = lo.Coalesce(el.InputFile, domain.LastImageFile(args.Messages))
			}

			url, err := s.images.GenerateWithRetry(ctx, req)
			if err != nil {
				slog.WarnContext(ctx, "Image generation exhausted retries",
					"prompt", el.Prompt, logger.Err(err))
				return
			}
			final[i].ImageFile = url
		}(i)
	}
	wg.Wait()

	return final
}

// RetryImage regenerates the image for one failed element and patches the
// persisted chat log in place, overwriting imageFile on the first element
// matching by type and prompt.
func (s *streamService) RetryImage(
	ctx context.Context,
	inferID string,
	el domain.ReplyElement,
	opts domain.GenerationOptions,
	userID string,
) (string, error) {
	if el.Type != domain.ElementImage && el.Type != domain.ElementEditImage {
		return "", fmt.Errorf("element type %q carries no image", el.Type)
	}

	req := GenerateImageRequest{
		Prompt:         el.Prompt,
		NegativePrompt: el.NegativePrompt,
		Options:        opts,
		UserID:         userID,
		Edit:           el.Type == domain.ElementEditImage,
		InputImage:     el.InputFile,
	}

	url, err := s.images.GenerateWithRetry(ctx, req)
	if err != nil {
		return "", err
	}

	el.ImageFile = url
	if err := s.logs.Update(ctx, inferID, func(log *domain.ChatLog) error {
		if !log.PatchImage(el) {
			return fmt.Errorf("%w: no element matching %q in chat log %s", domain.ErrNotFound, el.Prompt, inferID)
		}
		return nil
	}); err != nil {
		return "", err
	}

	return url, nil
}
