package domain

// ImageLog is the audit record written for every successful image generation,
// keyed by a generation id independent of any chat turn.
type ImageLog struct {
	GenerationID       string     `json:"generationId"`
	Model              ImageModel `json:"model"`
	Prompt             string     `json:"prompt"`
	NegativePrompt     string     `json:"negativePrompt,omitempty"`
	InputImage         string     `json:"inputImage,omitempty"`
	PredictionID       string     `json:"predictionId,omitempty"`
	PredictTimeSeconds float64    `json:"predictTimeSeconds,omitempty"`
	Cost               float64    `json:"cost"`
	ResponseTimeMs     float64    `json:"responseTimeMs"`
	ImageKey           string     `json:"imageKey"`
}

// TranscribeLog is the audit record for one transcription call.
type TranscribeLog struct {
	InferID         string  `json:"inferId"`
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"durationSeconds"`
	Cost            float64 `json:"cost"`
	ResponseTimeMs  float64 `json:"responseTimeMs"`
	Text            string  `json:"text"`
}
