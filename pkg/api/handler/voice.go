package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
)

const maxAudioUploadBytes = 25 << 20 // provider's upload limit

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string, opts domain.GenerationOptions) ([]byte, error)
}

type voice struct {
	transcriber Transcriber
	synthesizer Synthesizer
	writer      response.JSONResponseWriter
}

func NewVoice(transcriber Transcriber, synthesizer Synthesizer) *voice {
	return &voice{
		transcriber: transcriber,
		synthesizer: synthesizer,
	}
}

// Transcribe accepts a multipart audio upload and returns the recognized text.
// Recognition failures come back as an empty text, not an error status.
func (h *voice) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "audio file is missing")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "reading audio file")
		return
	}

	text := h.transcriber.Transcribe(r.Context(), audio, header.Filename)

	h.writer.WriteSuccessResponse(w, map[string]string{"text": text})
}

type synthesizeRequest struct {
	Text     string                   `json:"text"`
	Language string                   `json:"language"`
	Options  domain.GenerationOptions `json:"options"`
}

// Synthesize turns text into speech and responds with the raw audio bytes.
func (h *voice) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		h.writer.WriteErrorResponse(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text, req.Language, req.Options)
	if err != nil {
		h.writer.WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := w.Write(audio); err != nil {
		slog.WarnContext(r.Context(), "Writing audio response", logger.Err(err))
	}
}
