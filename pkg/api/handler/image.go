package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type ImageRetryer interface {
	RetryImage(ctx context.Context, inferID string, el domain.ReplyElement, opts domain.GenerationOptions, userID string) (string, error)
}

type image struct {
	retryer ImageRetryer
	writer  response.JSONResponseWriter
}

func NewImage(retryer ImageRetryer) *image {
	return &image{retryer: retryer}
}

type retryImageRequest struct {
	InferID string                   `json:"inferId"`
	Element domain.ReplyElement      `json:"element"`
	Options domain.GenerationOptions `json:"options"`
}

// Retry regenerates a single failed image and patches the stored chat log so
// the conversation history shows the recovered picture.
func (h *image) Retry(w http.ResponseWriter, r *http.Request) {
	var req retryImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.InferID == "" {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "inferId must not be empty")
		return
	}

	if req.Options.ImageModel != "" && !req.Options.ImageModel.IsValid() {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("%s: %q", domain.ErrUnsupportedModel, req.Options.ImageModel))
		return
	}

	url, err := h.retryer.RetryImage(r.Context(), req.InferID, req.Element, req.Options, userID(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.writer.WriteErrorResponse(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrUnsupportedModel):
			h.writer.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		default:
			h.writer.WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writer.WriteSuccessResponse(w, map[string]string{"imageFile": url})
}
