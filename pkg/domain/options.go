package domain

import "github.com/samber/lo"

type ImageModel string

const (
	ImageModelDallE                  ImageModel = "dallE"
	ImageModelReplicate              ImageModel = "replicate"
	ImageModelStableDiffusion        ImageModel = "stableDiffusion"
	ImageModelStableDiffusionImg2Img ImageModel = "stableDiffusion_img2img"
	ImageModelDreambooth             ImageModel = "dreambooth"
	ImageModelDreamboothImg2Img      ImageModel = "dreambooth_img2img"
)

func (m ImageModel) IsValid() bool {
	switch m {
	case ImageModelDallE, ImageModelReplicate, ImageModelStableDiffusion,
		ImageModelStableDiffusionImg2Img, ImageModelDreambooth, ImageModelDreamboothImg2Img:
		return true
	}
	return false
}

// Img2Img reports whether the backend consumes an input image.
func (m ImageModel) Img2Img() bool {
	return m == ImageModelStableDiffusionImg2Img || m == ImageModelDreamboothImg2Img
}

const (
	DefaultChatModel  = "gpt-4o-mini"
	DefaultImageModel = ImageModelDallE
	DefaultImageSize  = "1024x1024"
	DefaultVoice      = "alloy"
)

// GenerationOptions is the per-request configuration object. Unknown JSON keys
// are ignored on decode; absent keys fall back to the defaults above.
type GenerationOptions struct {
	ChatModel             string     `json:"chatModel,omitempty"`
	ImageModel            ImageModel `json:"imageModel,omitempty"`
	ImageModelID          string     `json:"imageModelId,omitempty"`
	ImageSize             string     `json:"imageSize,omitempty"`
	ImageTransformModel   ImageModel `json:"imageTransformModel,omitempty"`
	ImageTransformModelID string     `json:"imageTransformModelId,omitempty"`
	Voice                 string     `json:"voice,omitempty"`
	VoiceGender           string     `json:"voiceGender,omitempty"`
}

func (o GenerationOptions) ChatModelOrDefault() string {
	model, _ := lo.Coalesce(o.ChatModel, DefaultChatModel)
	return model
}

func (o GenerationOptions) ImageModelOrDefault() ImageModel {
	model, _ := lo.Coalesce(o.ImageModel, DefaultImageModel)
	return model
}

func (o GenerationOptions) ImageSizeOrDefault() string {
	size, _ := lo.Coalesce(o.ImageSize, DefaultImageSize)
	return size
}

// ImageTransformModelOrDefault selects the backend for image-conditioned
// edits, falling back to the img2img Stable Diffusion backend.
func (o GenerationOptions) ImageTransformModelOrDefault() ImageModel {
	model, _ := lo.Coalesce(o.ImageTransformModel, ImageModelStableDiffusionImg2Img)
	return model
}

func (o GenerationOptions) VoiceOrDefault() string {
	if o.Voice != "" {
		return o.Voice
	}
	switch o.VoiceGender {
	case "male":
		return "onyx"
	case "female":
		return "nova"
	}
	return DefaultVoice
}
