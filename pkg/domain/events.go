package domain

type EventName string

// The three ordered events of one chat turn, plus the terminal failure event.
const (
	EventSetInferID   EventName = "setInferId"
	EventChatResponse EventName = "chatResponse"
	EventImagesLoaded EventName = "imagesLoaded"
	EventException    EventName = "exception"
)

type StreamEvent struct {
	Name    EventName `json:"name"`
	Payload any       `json:"payload"`
}

type ChatResponsePayload struct {
	DetectedLanguage string         `json:"detectedLanguage,omitempty"`
	Reply            []ReplyElement `json:"reply"`
	HTML             string         `json:"html"`
}

type ExceptionPayload struct {
	Error string `json:"error"`
}
