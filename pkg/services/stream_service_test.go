package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/repository"
)

type stubCompleter struct {
	reply []domain.ReplyElement
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, inferID string, _ []domain.Message, _ domain.GenerationOptions, _ string) (*CompletionOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &CompletionOutput{InferID: inferID, Reply: s.reply}, nil
}

type stubImages struct {
	mu       sync.Mutex
	failFor  map[string]bool
	requests []GenerateImageRequest
}

func (s *stubImages) GenerateWithRetry(_ context.Context, req GenerateImageRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.failFor[req.Prompt] {
		return "", errors.New("exhausted retries")
	}
	return "https://cdn/" + strings.ReplaceAll(req.Prompt, " ", "-") + ".png", nil
}

type stubDetector struct{ language string }

func (s *stubDetector) Detect(string) string { return s.language }

type stubRenderer struct{}

func (stubRenderer) Provisional([]domain.ReplyElement) string { return "provisional-html" }
func (stubRenderer) Final([]domain.ReplyElement) string       { return "final-html" }

type stubLogUpdater struct {
	mu   sync.Mutex
	logs map[string]*domain.ChatLog
}

func newStubLogUpdater() *stubLogUpdater {
	return &stubLogUpdater{logs: map[string]*domain.ChatLog{}}
}

func (s *stubLogUpdater) Update(_ context.Context, inferID string, fn func(*domain.ChatLog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[inferID]
	if !ok {
		log = &domain.ChatLog{InferID: inferID}
		s.logs[inferID] = log
	}
	return fn(log)
}

func collectEvents(t *testing.T, s *streamService, args repository.ChatArgs) []domain.StreamEvent {
	t.Helper()
	events := make(chan domain.StreamEvent)
	go s.Run(context.Background(), args, events)

	var collected []domain.StreamEvent
	for e := range events {
		collected = append(collected, e)
	}
	return collected
}

func TestRunEventOrdering(t *testing.T) {
	reply := []domain.ReplyElement{
		domain.TextElement("two foxes coming up"),
		{Type: domain.ElementImage, Prompt: "fox one"},
		{Type: domain.ElementImage, Prompt: "fox two"},
	}
	s := NewStreamService(
		&stubCompleter{reply: reply},
		&stubImages{},
		&stubDetector{language: "en"},
		stubRenderer{},
		newStubLogUpdater(),
	)

	events := collectEvents(t, s, repository.ChatArgs{UserID: "u1"})

	want := []domain.EventName{domain.EventSetInferID, domain.EventChatResponse, domain.EventImagesLoaded}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, name := range want {
		if events[i].Name != name {
			t.Errorf("event %d = %s, want %s", i, events[i].Name, name)
		}
	}

	inferID, ok := events[0].Payload.(string)
	if !ok || inferID == "" {
		t.Fatalf("setInferId payload = %v, want non-empty string", events[0].Payload)
	}

	chatPayload := events[1].Payload.(domain.ChatResponsePayload)
	if chatPayload.DetectedLanguage != "en" {
		t.Errorf("detected language = %q, want en", chatPayload.DetectedLanguage)
	}
	if chatPayload.HTML != "provisional-html" {
		t.Errorf("chatResponse HTML = %q", chatPayload.HTML)
	}
	for _, el := range chatPayload.Reply {
		if el.ImageFile != "" {
			t.Errorf("chatResponse carries imageFile %q before generation finished", el.ImageFile)
		}
	}

	finalPayload := events[2].Payload.(domain.ChatResponsePayload)
	if finalPayload.HTML != "final-html" {
		t.Errorf("imagesLoaded HTML = %q", finalPayload.HTML)
	}
	if got := finalPayload.Reply[1].ImageFile; got != "https://cdn/fox-one.png" {
		t.Errorf("element 1 imageFile = %q", got)
	}
	if got := finalPayload.Reply[2].ImageFile; got != "https://cdn/fox-two.png" {
		t.Errorf("element 2 imageFile = %q", got)
	}
	if got := finalPayload.Reply[0].Text; got != "two foxes coming up" {
		t.Errorf("text element = %q", got)
	}
}

func TestRunPartialImageFailure(t *testing.T) {
	reply := []domain.ReplyElement{
		{Type: domain.ElementImage, Prompt: "good"},
		{Type: domain.ElementImage, Prompt: "bad"},
	}
	s := NewStreamService(
		&stubCompleter{reply: reply},
		&stubImages{failFor: map[string]bool{"bad": true}},
		&stubDetector{},
		stubRenderer{},
		newStubLogUpdater(),
	)

	events := collectEvents(t, s, repository.ChatArgs{})

	if len(events) != 3 || events[2].Name != domain.EventImagesLoaded {
		t.Fatalf("expected a full turn despite one failed image, got %+v", events)
	}

	final := events[2].Payload.(domain.ChatResponsePayload)
	if final.Reply[0].ImageFile == "" {
		t.Error("successful element lost its image")
	}
	if final.Reply[1].ImageFile != "" {
		t.Errorf("failed element has imageFile %q, want unset", final.Reply[1].ImageFile)
	}
}

func TestRunChatFailureEmitsException(t *testing.T) {
	s := NewStreamService(
		&stubCompleter{err: errors.New("provider down")},
		&stubImages{},
		&stubDetector{},
		stubRenderer{},
		newStubLogUpdater(),
	)

	events := collectEvents(t, s, repository.ChatArgs{})

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Name != domain.EventSetInferID {
		t.Errorf("first event = %s, want setInferId", events[0].Name)
	}
	if events[1].Name != domain.EventException {
		t.Fatalf("second event = %s, want exception", events[1].Name)
	}
	payload := events[1].Payload.(domain.ExceptionPayload)
	if !strings.Contains(payload.Error, "provider down") {
		t.Errorf("exception payload = %q", payload.Error)
	}
}

func TestRunEditImageInheritsLastImage(t *testing.T) {
	reply := []domain.ReplyElement{
		{Type: domain.ElementEditImage, Prompt: "make it blue"},
	}
	images := &stubImages{}
	s := NewStreamService(&stubCompleter{reply: reply}, images, &stubDetector{}, stubRenderer{}, newStubLogUpdater())

	args := repository.ChatArgs{
		Messages: []domain.Message{
			{Role: domain.RoleAssistant, Content: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "a fox", ImageFile: "https://cdn/fox.png"},
			}},
		},
	}
	collectEvents(t, s, args)

	if len(images.requests) != 1 {
		t.Fatalf("got %d generation requests, want 1", len(images.requests))
	}
	req := images.requests[0]
	if !req.Edit {
		t.Error("expected an edit request")
	}
	if req.InputImage != "https://cdn/fox.png" {
		t.Errorf("input image = %q, want the last image from history", req.InputImage)
	}
}

func TestRetryImage(t *testing.T) {
	images := &stubImages{}
	logs := newStubLogUpdater()
	logs.logs["abc123"] = &domain.ChatLog{
		InferID: "abc123",
		Reply:   []domain.ReplyElement{{Type: domain.ElementImage, Prompt: "a fox"}},
	}

	s := NewStreamService(&stubCompleter{}, images, &stubDetector{}, stubRenderer{}, logs)

	url, err := s.RetryImage(context.Background(), "abc123",
		domain.ReplyElement{Type: domain.ElementImage, Prompt: "a fox"},
		domain.GenerationOptions{}, "u1")
	if err != nil {
		t.Fatalf("RetryImage: %v", err)
	}
	if url != "https://cdn/a-fox.png" {
		t.Errorf("url = %q", url)
	}
	if got := logs.logs["abc123"].Reply[0].ImageFile; got != url {
		t.Errorf("patched imageFile = %q, want %q", got, url)
	}
}

func TestRetryImageNoMatch(t *testing.T) {
	logs := newStubLogUpdater()
	logs.logs["abc123"] = &domain.ChatLog{InferID: "abc123"}

	s := NewStreamService(&stubCompleter{}, &stubImages{}, &stubDetector{}, stubRenderer{}, logs)

	_, err := s.RetryImage(context.Background(), "abc123",
		domain.ReplyElement{Type: domain.ElementImage, Prompt: "nothing like this"},
		domain.GenerationOptions{}, "u1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRetryImageRejectsTextElement(t *testing.T) {
	s := NewStreamService(&stubCompleter{}, &stubImages{}, &stubDetector{}, stubRenderer{}, newStubLogUpdater())

	_, err := s.RetryImage(context.Background(), "abc123",
		domain.TextElement("hi"), domain.GenerationOptions{}, "u1")
	if err == nil {
		t.Error("expected error for a text element")
	}
}
