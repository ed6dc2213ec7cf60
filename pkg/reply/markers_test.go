package reply

import (
	"reflect"
	"testing"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

func TestExpandMarkers(t *testing.T) {
	tests := []struct {
		name     string
		elements []domain.ReplyElement
		expected []domain.ReplyElement
	}{
		{
			name:     "text without markers passes through",
			elements: []domain.ReplyElement{domain.TextElement("plain text")},
			expected: []domain.ReplyElement{domain.TextElement("plain text")},
		},
		{
			name:     "single image marker",
			elements: []domain.ReplyElement{domain.TextElement("Here you go: IMAGE[a red fox]")},
			expected: []domain.ReplyElement{
				domain.TextElement("Here you go:"),
				{Type: domain.ElementImage, Prompt: "a red fox"},
			},
		},
		{
			name:     "numbered marker yields one element, index discarded",
			elements: []domain.ReplyElement{domain.TextElement("IMAGE2[a red fox]")},
			expected: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "a red fox"},
			},
		},
		{
			name:     "numbered markers keep distinct prompts",
			elements: []domain.ReplyElement{domain.TextElement("IMAGE1[a fox] IMAGE2[a wolf]")},
			expected: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "a fox"},
				{Type: domain.ElementImage, Prompt: "a wolf"},
			},
		},
		{
			name:     "edit marker yields editImage",
			elements: []domain.ReplyElement{domain.TextElement("EDIT[make it blue] done")},
			expected: []domain.ReplyElement{
				{Type: domain.ElementEditImage, Prompt: "make it blue"},
				domain.TextElement("done"),
			},
		},
		{
			name:     "lowercase marker is recognized",
			elements: []domain.ReplyElement{domain.TextElement("image[a red fox]")},
			expected: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "a red fox"},
			},
		},
		{
			name: "non-text elements pass through untouched",
			elements: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "IMAGE[nested]"},
			},
			expected: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "IMAGE[nested]"},
			},
		},
		{
			name:     "text between two markers survives",
			elements: []domain.ReplyElement{domain.TextElement("IMAGE[one] and IMAGE[two]")},
			expected: []domain.ReplyElement{
				{Type: domain.ElementImage, Prompt: "one"},
				domain.TextElement("and"),
				{Type: domain.ElementImage, Prompt: "two"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ExpandMarkers(test.elements)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("ExpandMarkers(%+v) = %+v, want %+v", test.elements, got, test.expected)
			}
		})
	}
}
