package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/russross/blackfriday"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type renderer struct{}

// NewRenderer builds the reply-to-HTML renderer used by the streamed events.
func NewRenderer() *renderer {
	return &renderer{}
}

// Provisional renders the reply with a loading placeholder standing in for
// every element whose image has not completed yet, so the client can show a
// per-image loading indicator.
func (r *renderer) Provisional(elements []domain.ReplyElement) string {
	var sb strings.Builder
	for _, e := range elements {
		switch {
		case e.Type == domain.ElementText:
			sb.Write(blackfriday.MarkdownCommon([]byte(e.Text)))
		case e.NeedsImage():
			fmt.Fprintf(&sb, `<div class="image-loading" data-prompt="%s"></div>`,
				html.EscapeString(e.Prompt))
		default:
			sb.WriteString(r.renderStatic(e))
		}
	}
	return sb.String()
}

// Final renders the merged reply. Elements whose generation failed keep no
// imageFile and render as a manually retryable placeholder instead of failing
// the turn.
func (r *renderer) Final(elements []domain.ReplyElement) string {
	var sb strings.Builder
	for _, e := range elements {
		switch {
		case e.Type == domain.ElementText:
			sb.Write(blackfriday.MarkdownCommon([]byte(e.Text)))
		case e.NeedsImage():
			fmt.Fprintf(&sb, `<div class="image-retry" data-prompt="%s"></div>`,
				html.EscapeString(e.Prompt))
		default:
			sb.WriteString(r.renderStatic(e))
		}
	}
	return sb.String()
}

func (r *renderer) renderStatic(e domain.ReplyElement) string {
	switch e.Type {
	case domain.ElementImage, domain.ElementEditImage:
		return fmt.Sprintf(`<img src="%s" alt="%s"/>`,
			html.EscapeString(e.ImageFile), html.EscapeString(e.Prompt))
	case domain.ElementBrowse:
		return fmt.Sprintf(`<a href="%s">%s</a>`,
			html.EscapeString(e.URL), html.EscapeString(e.URL))
	}
	return ""
}
