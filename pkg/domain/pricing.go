package domain

import "fmt"

// Prices are USD. Chat prices are per token, image compute prices per
// provider-reported compute second, DALL-E prices per image by size.

var chatTokenPrices = map[string]float64{
	"gpt-4o-mini":   0.375 / 1_000_000,
	"gpt-4o":        6.25 / 1_000_000,
	"gpt-3.5-turbo": 1.00 / 1_000_000,
	"gpt-4-turbo":   20.00 / 1_000_000,
	"o3-mini":       2.75 / 1_000_000,
}

var dallEImagePrices = map[string]float64{
	"256x256":   0.016,
	"512x512":   0.018,
	"1024x1024": 0.020,
	"1024x1792": 0.080,
	"1792x1024": 0.080,
}

var computeSecondPrices = map[ImageModel]float64{
	ImageModelReplicate:              0.00055,
	ImageModelStableDiffusion:        0.00055,
	ImageModelStableDiffusionImg2Img: 0.00055,
	ImageModelDreambooth:             0.0023,
	ImageModelDreamboothImg2Img:      0.0023,
}

const WhisperPricePerSecond = 0.006 / 60.0

// ChatTokenPrice returns the per-token price for a chat model. An unknown
// model is a configuration error, never a silent zero cost.
func ChatTokenPrice(model string) (float64, error) {
	price, ok := chatTokenPrices[model]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModelPricing, model)
	}
	return price, nil
}

// DallEImagePrice returns the fixed per-image price for a requested size,
// falling back to the default size's price for unrecognized sizes.
func DallEImagePrice(size string) float64 {
	if price, ok := dallEImagePrices[size]; ok {
		return price
	}
	return dallEImagePrices[DefaultImageSize]
}

func ComputeSecondPrice(model ImageModel) float64 {
	return computeSecondPrices[model]
}
