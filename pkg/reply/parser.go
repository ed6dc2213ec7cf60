package reply

import (
	"encoding/json"
	"strings"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

// Parse turns raw provider text into a structured reply. Lenient on input,
// strict on output:
//   - a JSON array of typed elements is accepted as-is
//   - a bare JSON object with a type field becomes a single-element array
//   - a bare JSON string becomes a single Text element
//   - anything else, including arrays holding elements without a recognized
//     type, falls back to one Text element carrying the raw string verbatim
//
// Any imageFile the model hallucinated is stripped: only the image generation
// stage may set it.
func Parse(raw string) []domain.ReplyElement {
	trimmed := strings.TrimSpace(raw)

	var elements []domain.ReplyElement
	if err := json.Unmarshal([]byte(trimmed), &elements); err == nil {
		if allTypesValid(elements) {
			return stripImageFiles(elements)
		}
		return verbatim(raw)
	}

	if strings.HasPrefix(trimmed, "{") {
		var element domain.ReplyElement
		if err := json.Unmarshal([]byte(trimmed), &element); err == nil && element.IsValidType() {
			return stripImageFiles([]domain.ReplyElement{element})
		}
		return verbatim(raw)
	}

	var text string
	if err := json.Unmarshal([]byte(trimmed), &text); err == nil {
		return []domain.ReplyElement{domain.TextElement(text)}
	}

	return verbatim(raw)
}

func allTypesValid(elements []domain.ReplyElement) bool {
	if len(elements) == 0 {
		return false
	}
	for _, e := range elements {
		if !e.IsValidType() {
			return false
		}
	}
	return true
}

func stripImageFiles(elements []domain.ReplyElement) []domain.ReplyElement {
	for i := range elements {
		if elements[i].Type == domain.ElementImage || elements[i].Type == domain.ElementEditImage {
			elements[i].ImageFile = ""
		}
	}
	return elements
}

func verbatim(raw string) []domain.ReplyElement {
	return []domain.ReplyElement{domain.TextElement(raw)}
}

// JoinText concatenates the text of all Text elements, the input for language
// detection.
func JoinText(elements []domain.ReplyElement) string {
	var sb strings.Builder
	for _, e := range elements {
		if e.Type == domain.ElementText {
			sb.WriteString(e.Text)
			sb.WriteString(" ")
		}
	}
	return strings.TrimSpace(sb.String())
}
