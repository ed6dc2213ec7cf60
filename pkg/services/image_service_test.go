package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/replicate"
)

type fakeDallE struct {
	mu    sync.Mutex
	calls int
	fails int
	data  []byte
}

func (f *fakeDallE) GenerateImage(_ context.Context, _, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("provider unavailable")
	}
	return f.data, nil
}

type fakePredictions struct {
	prediction *replicate.Prediction
	waitErr    error
	data       []byte

	gotInput map[string]any
}

func (f *fakePredictions) CreatePrediction(_ context.Context, _ string, input map[string]any) (*replicate.Prediction, error) {
	f.gotInput = input
	return f.prediction, nil
}

func (f *fakePredictions) WaitForCompletion(_ context.Context, _ string) (*replicate.Prediction, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.prediction, nil
}

func (f *fakePredictions) Download(_ context.Context, _ string) ([]byte, error) {
	return f.data, nil
}

type fakeImageStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{blobs: map[string][]byte{}}
}

func (s *fakeImageStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *fakeImageStore) PublicURL(key string) string {
	return "https://cdn/" + key
}

func newTestImageService(dallE DallEClient, predictions PredictionClient, store ImageStore) *imageService {
	s := NewImageService(dallE, predictions, store)
	s.retryInitialDelay = time.Millisecond
	return s
}

func TestGenerateDallE(t *testing.T) {
	store := newFakeImageStore()
	s := newTestImageService(&fakeDallE{data: []byte("png-bytes")}, &fakePredictions{}, store)

	url, err := s.Generate(context.Background(), GenerateImageRequest{Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected image URL %q", url)
	}

	var imageKey, auditKey string
	for key := range store.blobs {
		if strings.HasSuffix(key, ".png") {
			imageKey = key
		}
		if strings.HasPrefix(key, "image-") && strings.HasSuffix(key, ".json") {
			auditKey = key
		}
	}
	if imageKey == "" || auditKey == "" {
		t.Fatalf("expected image and audit blobs, got keys %v", keys(store.blobs))
	}

	var log domain.ImageLog
	if err := json.Unmarshal(store.blobs[auditKey], &log); err != nil {
		t.Fatalf("unmarshaling audit log: %v", err)
	}
	if log.Model != domain.ImageModelDallE || log.Prompt != "a red fox" {
		t.Errorf("audit log = %+v", log)
	}
	if log.Cost != domain.DallEImagePrice(domain.DefaultImageSize) {
		t.Errorf("cost = %v, want fixed DALL-E price", log.Cost)
	}
}

func TestGeneratePredictionBackend(t *testing.T) {
	p := &replicate.Prediction{ID: "p1", Status: "succeeded", Output: json.RawMessage(`"https://delivery/fox.png"`)}
	p.Metrics.PredictTime = 4.0
	predictions := &fakePredictions{prediction: p, data: []byte("png-bytes")}

	s := newTestImageService(&fakeDallE{}, predictions, newFakeImageStore())

	url, err := s.Generate(context.Background(), GenerateImageRequest{
		Prompt:         "a red fox",
		NegativePrompt: "blurry",
		Options:        domain.GenerationOptions{ImageModel: domain.ImageModelStableDiffusion},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if url == "" {
		t.Error("expected non-empty URL")
	}
	if predictions.gotInput["prompt"] != "a red fox" || predictions.gotInput["negative_prompt"] != "blurry" {
		t.Errorf("prediction input = %v", predictions.gotInput)
	}
}

func TestGenerateImg2ImgNeedsInputImage(t *testing.T) {
	s := newTestImageService(&fakeDallE{}, &fakePredictions{}, newFakeImageStore())

	_, err := s.Generate(context.Background(), GenerateImageRequest{
		Prompt:  "make it blue",
		Options: domain.GenerationOptions{ImageModel: domain.ImageModelStableDiffusionImg2Img},
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateWithRetryExhaustsAttempts(t *testing.T) {
	dallE := &fakeDallE{fails: 100}
	s := newTestImageService(dallE, &fakePredictions{}, newFakeImageStore())

	_, err := s.GenerateWithRetry(context.Background(), GenerateImageRequest{Prompt: "a red fox"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if dallE.calls != imageRetryAttempts {
		t.Errorf("attempts = %d, want %d", dallE.calls, imageRetryAttempts)
	}
}

func TestGenerateWithRetrySucceedsAfterFailure(t *testing.T) {
	dallE := &fakeDallE{fails: 1, data: []byte("png-bytes")}
	s := newTestImageService(dallE, &fakePredictions{}, newFakeImageStore())

	url, err := s.GenerateWithRetry(context.Background(), GenerateImageRequest{Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if url == "" {
		t.Error("expected non-empty URL")
	}
	if dallE.calls != 2 {
		t.Errorf("attempts = %d, want 2", dallE.calls)
	}
}

func TestGenerateWithRetryUnsupportedModelIsPermanent(t *testing.T) {
	dallE := &fakeDallE{}
	s := newTestImageService(dallE, &fakePredictions{}, newFakeImageStore())

	_, err := s.GenerateWithRetry(context.Background(), GenerateImageRequest{
		Prompt:  "a red fox",
		Options: domain.GenerationOptions{ImageModel: "midjourney"},
	})
	if !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
	if dallE.calls != 0 {
		t.Errorf("expected no provider calls for unsupported model, got %d", dallE.calls)
	}
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
