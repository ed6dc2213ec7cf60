package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/repository"
)

type StreamRepository interface {
	Put(args repository.ChatArgs) string
	Consume(id string) (repository.ChatArgs, bool)
}

type TurnRunner interface {
	Run(ctx context.Context, args repository.ChatArgs, events chan<- domain.StreamEvent)
}

type chat struct {
	streams StreamRepository
	runner  TurnRunner
	writer  response.JSONResponseWriter
}

func NewChat(streams StreamRepository, runner TurnRunner) *chat {
	return &chat{
		streams: streams,
		runner:  runner,
	}
}

type submitRequest struct {
	Messages []domain.Message         `json:"messages"`
	Options  domain.GenerationOptions `json:"options"`
}

// Submit is phase one of the two-phase handshake: it parks the chat args and
// hands back the stream id the client opens the push channel with.
func (h *chat) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Messages) == 0 {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	// Unknown model variants are rejected here at the boundary, not deep in
	// the generation call chain.
	if req.Options.ImageModel != "" && !req.Options.ImageModel.IsValid() {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("%s: %q", domain.ErrUnsupportedModel, req.Options.ImageModel))
		return
	}
	if req.Options.ImageTransformModel != "" && !req.Options.ImageTransformModel.IsValid() {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("%s: %q", domain.ErrUnsupportedModel, req.Options.ImageTransformModel))
		return
	}

	streamID := h.streams.Put(repository.ChatArgs{
		Messages: req.Messages,
		Options:  req.Options,
		UserID:   userID(r),
	})

	slog.InfoContext(r.Context(), "Chat turn submitted", "streamId", streamID, "messagesCount", len(req.Messages))

	h.writer.WriteSuccessResponse(w, map[string]string{"streamId": streamID})
}

// Stream is phase two: it consumes the stream id exactly once and delivers
// the turn's events over a server-sent event stream. A second open on the
// same id fails.
func (h *chat) Stream(w http.ResponseWriter, r *http.Request) {
	streamID := r.URL.Query().Get("streamId")
	if streamID == "" {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "streamId parameter is missing")
		return
	}

	args, ok := h.streams.Consume(streamID)
	if !ok {
		h.writer.WriteErrorResponse(w, http.StatusNotFound, domain.ErrStreamNotFound.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writer.WriteErrorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The turn outlives the client: closing the stream only discards further
	// events, it never aborts the completion, the image jobs or the log update.
	events := make(chan domain.StreamEvent)
	go h.runner.Run(context.WithoutCancel(r.Context()), args, events)

	// A broken client stream stops emission but keeps draining, so the turn
	// goroutine never blocks on the channel.
	broken := false
	for event := range events {
		if broken {
			continue
		}
		if err := writeEvent(w, event); err != nil {
			slog.WarnContext(r.Context(), "Stream broken, discarding further events",
				"streamId", streamID, logger.Err(err))
			broken = true
			continue
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event domain.StreamEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// userID extracts the opaque user identifier set by the session layer in
// front of this server.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
