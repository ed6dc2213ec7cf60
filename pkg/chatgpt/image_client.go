package chatgpt

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type imageClient struct {
	api *openai.Client
}

func NewImageClient(token string) (*imageClient, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	return &imageClient{
		api: openai.NewClient(token),
	}, nil
}

func (c *imageClient) GenerateImage(ctx context.Context, prompt, size string) ([]byte, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	})
	if err != nil {
		return nil, fmt.Errorf("creating image: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}

	imgBytes, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("base64 decoding: %w", err)
	}
	return imgBytes, nil
}
