package chatgpt

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

type audioClient struct {
	api *openai.Client
}

func NewAudioClient(token string) (*audioClient, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	return &audioClient{
		api: openai.NewClient(token),
	}, nil
}

type Transcription struct {
	Text            string
	DurationSeconds float64
}

// Transcribe runs Whisper over the uploaded audio. The verbose response format
// carries the audio duration used for the cost figure.
func (c *audioClient) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transcription: %w", err)
	}

	return &Transcription{
		Text:            resp.Text,
		DurationSeconds: resp.Duration,
	}, nil
}

func (c *audioClient) Synthesize(ctx context.Context, input, voice string) ([]byte, error) {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: input,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, fmt.Errorf("creating speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}
	return audio, nil
}
