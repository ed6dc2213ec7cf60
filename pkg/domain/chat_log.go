package domain

// ChatLogInput captures the provider request as it was sent: the model, the
// serialized messages and the pseudonymized user identifier.
type ChatLogInput struct {
	Model      string            `json:"model"`
	Messages   []ProviderMessage `json:"messages"`
	HashedUser string            `json:"hashedUser"`
}

// ProviderMessage is one provider-facing chat message. Content holds the
// message's element array serialized to a JSON string.
type ProviderMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatLog is the durable artifact persisted once per chat turn. It is the sole
// source of truth for replaying a conversation and for patching in a
// regenerated image.
type ChatLog struct {
	InferID        string            `json:"inferId"`
	Input          ChatLogInput      `json:"input"`
	RawResponse    string            `json:"rawResponse"`
	Cost           float64           `json:"cost"`
	ResponseTimeMs float64           `json:"responseTimeMs"`
	Messages       []Message         `json:"messages"`
	Reply          []ReplyElement    `json:"reply"`
	Options        GenerationOptions `json:"options"`
	SelfLink       string            `json:"selfLink,omitempty"`
}

// PatchImage overwrites ImageFile on the first element matching el by
// {type, prompt} in the reply array and on the first match inside the message
// history. An ImageFile, once set, is never cleared. Reports whether any
// element was updated.
func (l *ChatLog) PatchImage(el ReplyElement) bool {
	if el.ImageFile == "" {
		return false
	}

	patched := false
	for i := range l.Reply {
		if l.Reply[i].Matches(el) {
			l.Reply[i].ImageFile = el.ImageFile
			patched = true
			break
		}
	}

	for i := range l.Messages {
		for j := range l.Messages[i].Content {
			if l.Messages[i].Content[j].Matches(el) {
				l.Messages[i].Content[j].ImageFile = el.ImageFile
				return true
			}
		}
	}
	return patched
}
