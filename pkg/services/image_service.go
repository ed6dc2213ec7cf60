package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/replicate"
)

type DallEClient interface {
	GenerateImage(ctx context.Context, prompt, size string) ([]byte, error)
}

type PredictionClient interface {
	CreatePrediction(ctx context.Context, version string, input map[string]any) (*replicate.Prediction, error)
	WaitForCompletion(ctx context.Context, id string) (*replicate.Prediction, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Default prediction versions per backend, overridable via imageModelId.
var defaultPredictionVersions = map[domain.ImageModel]string{
	domain.ImageModelReplicate:              "db21e45d3f7023abc2a46ee38a23973f6dce16bb082a930b0c49861f96d1e5bf",
	domain.ImageModelStableDiffusion:        "db21e45d3f7023abc2a46ee38a23973f6dce16bb082a930b0c49861f96d1e5bf",
	domain.ImageModelStableDiffusionImg2Img: "15a3689ee13b0d2616e98820eca31d4c3abcd36672df6afce5cb6feb1d66087d",
	domain.ImageModelDreambooth:             "b1f45d0c2d704d5fc1c3cf59efbd1b5a0dd911aa327d2cf10a2e4b1f36b27e2f",
	domain.ImageModelDreamboothImg2Img:      "c21e45ddfc7023abc2a46ee38a239747dce16bb082a930b0c49861f96d1e5baa",
}

const (
	imageRetryAttempts     = 3
	imageRetryInitialDelay = 2 * time.Second
)

type imageService struct {
	dallE       DallEClient
	predictions PredictionClient
	store       ImageStore

	retryAttempts     uint64
	retryInitialDelay time.Duration
}

func NewImageService(dallE DallEClient, predictions PredictionClient, store ImageStore) *imageService {
	return &imageService{
		dallE:             dallE,
		predictions:       predictions,
		store:             store,
		retryAttempts:     imageRetryAttempts,
		retryInitialDelay: imageRetryInitialDelay,
	}
}

// GenerateImageRequest carries one generation or edit job. InputImage is the
// public URL of the source image for image-conditioned backends.
type GenerateImageRequest struct {
	Prompt         string
	NegativePrompt string
	Options        domain.GenerationOptions
	UserID         string
	Edit           bool
	InputImage     string
}

func (r GenerateImageRequest) model() domain.ImageModel {
	if r.Edit {
		return r.Options.ImageTransformModelOrDefault()
	}
	return r.Options.ImageModelOrDefault()
}

func (r GenerateImageRequest) predictionVersion(model domain.ImageModel) string {
	if r.Edit && r.Options.ImageTransformModelID != "" {
		return r.Options.ImageTransformModelID
	}
	if !r.Edit && r.Options.ImageModelID != "" {
		return r.Options.ImageModelID
	}
	return defaultPredictionVersions[model]
}

// Generate dispatches to the backend named by the options, uploads the result
// into the blob store under a fresh key and writes the audit record. Returns
// the public URL of the stored image.
func (s *imageService) Generate(ctx context.Context, req GenerateImageRequest) (string, error) {
	model := req.model()
	if !model.IsValid() {
		return "", fmt.Errorf("%w: image model %q", domain.ErrUnsupportedModel, model)
	}

	slog.InfoContext(ctx, "Starting image generation", "model", model, "prompt", req.Prompt)

	start := time.Now()

	log := domain.ImageLog{
		GenerationID:   uuid.NewString(),
		Model:          model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		InputImage:     req.InputImage,
	}

	var imageData []byte
	var err error
	switch model {
	case domain.ImageModelDallE:
		imageData, err = s.dallE.GenerateImage(ctx, req.Prompt, req.Options.ImageSizeOrDefault())
		if err != nil {
			return "", fmt.Errorf("generating DALL-E image: %w", err)
		}
		log.Cost = domain.DallEImagePrice(req.Options.ImageSizeOrDefault())
	default:
		imageData, err = s.predict(ctx, model, req, &log)
		if err != nil {
			return "", err
		}
	}

	log.ResponseTimeMs = float64(time.Since(start).Milliseconds())
	log.ImageKey = log.GenerationID + ".png"

	if err := s.store.Put(ctx, log.ImageKey, imageData, "image/png"); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}

	auditData, err := json.Marshal(log)
	if err != nil {
		return "", fmt.Errorf("marshaling image log: %w", err)
	}
	auditKey := fmt.Sprintf("image-%s.json", log.GenerationID)
	if err := s.store.Put(ctx, auditKey, auditData, "application/json"); err != nil {
		return "", fmt.Errorf("storing image log: %w", err)
	}

	slog.InfoContext(ctx, "Image generated",
		"generationId", log.GenerationID, "size", len(imageData), "cost", log.Cost)

	return s.store.PublicURL(log.ImageKey), nil
}

func (s *imageService) predict(
	ctx context.Context,
	model domain.ImageModel,
	req GenerateImageRequest,
	log *domain.ImageLog,
) ([]byte, error) {
	input := map[string]any{"prompt": req.Prompt}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if model.Img2Img() {
		if req.InputImage == "" {
			return nil, fmt.Errorf("%w: backend %s needs an input image", domain.ErrGenerationFailed, model)
		}
		input["image"] = req.InputImage
	}

	p, err := s.predictions.CreatePrediction(ctx, req.predictionVersion(model), input)
	if err != nil {
		return nil, fmt.Errorf("creating prediction: %w", err)
	}

	p, err = s.predictions.WaitForCompletion(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	outputURL, err := p.FirstOutputURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	imageData, err := s.predictions.Download(ctx, outputURL)
	if err != nil {
		return nil, fmt.Errorf("downloading output asset: %w", err)
	}

	log.PredictionID = p.ID
	log.PredictTimeSeconds = p.Metrics.PredictTime
	log.Cost = p.Metrics.PredictTime * domain.ComputeSecondPrice(model)

	return imageData, nil
}

// GenerateWithRetry wraps Generate in a bounded exponential-backoff retry.
// Exhausting the attempts surfaces the last error; the caller treats that as
// "leave imageFile unset", never as a turn failure.
func (s *imageService) GenerateWithRetry(ctx context.Context, req GenerateImageRequest) (string, error) {
	var url string
	attempt := 0

	operation := func() error {
		attempt++
		var err error
		url, err = s.Generate(ctx, req)
		if errors.Is(err, domain.ErrUnsupportedModel) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInitialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	notify := func(err error, next time.Duration) {
		slog.WarnContext(ctx, "Image generation attempt failed",
			"attempt", attempt, "nextDelay", next, logger.Err(err))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, s.retryAttempts-1), ctx), notify)
	if err != nil {
		return "", err
	}
	return url, nil
}
