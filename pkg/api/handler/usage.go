package handler

import (
	"context"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/digitalocean"
)

type BalanceProvider interface {
	GetBalance(ctx context.Context) (*digitalocean.Balance, error)
}

type usage struct {
	provider BalanceProvider
	writer   response.JSONResponseWriter
}

func NewUsage(provider BalanceProvider) *usage {
	return &usage{provider: provider}
}

// Balance reports the hosting account balance so spend on generation can be
// eyeballed next to the per-call costs in the chat logs.
func (h *usage) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.provider.GetBalance(r.Context())
	if err != nil {
		h.writer.WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writer.WriteSuccessResponse(w, balance)
}
