package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role           `json:"role"`
	Content []ReplyElement `json:"content"`
}

type ElementType string

const (
	ElementText      ElementType = "text"
	ElementImage     ElementType = "image"
	ElementEditImage ElementType = "editImage"
	ElementBrowse    ElementType = "browse"
)

// ReplyElement is one tagged unit of a structured reply. Exactly one tag is
// active per element; the active tag is named by Type.
type ReplyElement struct {
	Type           ElementType `json:"type"`
	Text           string      `json:"text,omitempty"`
	Prompt         string      `json:"prompt,omitempty"`
	NegativePrompt string      `json:"negativePrompt,omitempty"`
	InputFile      string      `json:"inputFile,omitempty"`
	ImageFile      string      `json:"imageFile,omitempty"`
	URL            string      `json:"url,omitempty"`
}

func TextElement(text string) ReplyElement {
	return ReplyElement{Type: ElementText, Text: text}
}

func (e ReplyElement) IsValidType() bool {
	switch e.Type {
	case ElementText, ElementImage, ElementEditImage, ElementBrowse:
		return true
	}
	return false
}

// NeedsImage reports whether the element is waiting for a generated image.
func (e ReplyElement) NeedsImage() bool {
	return (e.Type == ElementImage || e.Type == ElementEditImage) && e.ImageFile == ""
}

// Matches reports tag and prompt equality, the identity used by the
// late image-retry patch.
func (e ReplyElement) Matches(other ReplyElement) bool {
	return e.Type == other.Type && e.Prompt == other.Prompt
}

// LastImageFile returns the most recent image found by scanning messages in
// reverse order, or "" when no message carries one.
func LastImageFile(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		content := messages[i].Content
		for j := len(content) - 1; j >= 0; j-- {
			if content[j].ImageFile != "" {
				return content[j].ImageFile
			}
		}
	}
	return ""
}
