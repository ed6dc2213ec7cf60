package domain

import "errors"

var (
	// ErrUnsupportedModel marks an unrecognized model option. Fatal for the
	// request, rejected at the boundary.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrGenerationFailed marks an image job that the provider reported as
	// failed, or one that exhausted its retries.
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrTimeout marks a prediction that never reached a terminal status
	// within the polling bound.
	ErrTimeout = errors.New("prediction polling timed out")

	// ErrUnknownModelPricing marks a cost lookup for a model missing from the
	// pricing table.
	ErrUnknownModelPricing = errors.New("no pricing for model")

	// ErrStreamNotFound marks a stream id that was never submitted or was
	// already consumed.
	ErrStreamNotFound = errors.New("stream not found")

	ErrNotFound = errors.New("not found")
)
