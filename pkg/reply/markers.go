package reply

import (
	"regexp"
	"strings"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

// markerRe matches inline image directives the assistant may leave in plain
// text: IMAGE[...] / IMAGE3[...] for generation, EDIT[...] / EDIT2[...] for
// editing. Tag is case-insensitive, the bracket holds the prompt. The numeral
// is an index label on the directive and is discarded; each directive yields
// exactly one element.
var markerRe = regexp.MustCompile(`(?i)\b(IMAGE|EDIT)(\d*)\[([^\]]*)\]`)

// ExpandMarkers splits Text elements around inline image directives, turning
// each directive into the corresponding Image or EditImage element. Elements
// of other types pass through untouched.
func ExpandMarkers(elements []domain.ReplyElement) []domain.ReplyElement {
	var out []domain.ReplyElement
	for _, e := range elements {
		if e.Type != domain.ElementText {
			out = append(out, e)
			continue
		}
		out = append(out, expandText(e.Text)...)
	}
	return out
}

func expandText(text string) []domain.ReplyElement {
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []domain.ReplyElement{domain.TextElement(text)}
	}

	var out []domain.ReplyElement
	last := 0
	for _, m := range matches {
		if leading := strings.TrimSpace(text[last:m[0]]); leading != "" {
			out = append(out, domain.TextElement(leading))
		}

		tag := strings.ToUpper(text[m[2]:m[3]])
		prompt := strings.TrimSpace(text[m[6]:m[7]])

		elementType := domain.ElementImage
		if tag == "EDIT" {
			elementType = domain.ElementEditImage
		}
		out = append(out, domain.ReplyElement{Type: elementType, Prompt: prompt})

		last = m[1]
	}

	if trailing := strings.TrimSpace(text[last:]); trailing != "" {
		out = append(out, domain.TextElement(trailing))
	}
	return out
}
