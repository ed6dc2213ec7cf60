package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/services"
)

type SummaryProvider interface {
	Summarize(ctx context.Context, text, question string, opts domain.GenerationOptions, userID string) (*services.SummaryResult, error)
}

type summary struct {
	provider SummaryProvider
	writer   response.JSONResponseWriter
}

func NewSummary(provider SummaryProvider) *summary {
	return &summary{provider: provider}
}

type summarizeRequest struct {
	Text     string                   `json:"text"`
	Question string                   `json:"question"`
	Options  domain.GenerationOptions `json:"options"`
}

func (h *summary) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	result, err := h.provider.Summarize(r.Context(), req.Text, req.Question, req.Options, userID(r))
	if err != nil {
		h.writer.WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writer.WriteSuccessResponse(w, result)
}
