package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/chatgpt"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
)

type AudioTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*chatgpt.Transcription, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, input, voice string) ([]byte, error)
}

type AuditStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type voiceService struct {
	transcriber AudioTranscriber
	speech      SpeechSynthesizer
	store       AuditStore
}

func NewVoiceService(transcriber AudioTranscriber, speech SpeechSynthesizer, store AuditStore) *voiceService {
	return &voiceService{
		transcriber: transcriber,
		speech:      speech,
		store:       store,
	}
}

// Transcribe runs speech-to-text over uploaded audio and writes an audit
// record. Transport failures are swallowed into an empty result; this is the
// one stage with that policy.
func (v *voiceService) Transcribe(ctx context.Context, audio []byte, filename string) string {
	inferID := domain.NewInferID()
	ctx = logger.ContextWithTurnID(ctx, inferID)

	slog.InfoContext(ctx, "Transcribing audio", "filename", filename, "sizeBytes", len(audio))

	start := time.Now()
	t, err := v.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		slog.WarnContext(ctx, "Transcription failed, returning empty result", logger.Err(err))
		return ""
	}

	log := domain.TranscribeLog{
		InferID:         inferID,
		Filename:        filename,
		DurationSeconds: t.DurationSeconds,
		Cost:            math.Ceil(t.DurationSeconds) * domain.WhisperPricePerSecond,
		ResponseTimeMs:  float64(time.Since(start).Milliseconds()),
		Text:            t.Text,
	}

	data, err := json.Marshal(log)
	if err == nil {
		err = v.store.Put(ctx, fmt.Sprintf("transcribe-%s.json", inferID), data, "application/json")
	}
	if err != nil {
		// Best effort: a lost audit record never fails the transcription.
		slog.WarnContext(ctx, "Storing transcription log failed", logger.Err(err))
	}

	return t.Text
}

// Synthesize turns text into speech. When the turn's language is known, the
// text is wrapped in a language-tagged markup envelope so the voice matches.
func (v *voiceService) Synthesize(ctx context.Context, text, language string, opts domain.GenerationOptions) ([]byte, error) {
	input := text
	if language != "" {
		input = fmt.Sprintf(`<speak xml:lang=%q>%s</speak>`, language, text)
	}

	audio, err := v.speech.Synthesize(ctx, input, opts.VoiceOrDefault())
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	return audio, nil
}
