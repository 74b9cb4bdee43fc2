package notify

import "encoding/json"

const (
	StatusUpdateEvent  = "status_update"
	NewMessageEvent    = "new_message"
	RefreshStatesEvent = "refresh_states"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type Event struct {
	Name    string
	Payload any
}

type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type MessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func StatusUpdate(status, message string) Event {
	return Event{Name: StatusUpdateEvent, Payload: StatusPayload{Status: status, Message: message}}
}

func NewMessage(sender, text string) Event {
	return Event{Name: NewMessageEvent, Payload: MessagePayload{Sender: sender, Text: text}}
}

// RefreshStates asks observers to re-read device states.
func RefreshStates() Event {
	return Event{Name: RefreshStatesEvent, Payload: struct{}{}}
}

func (e Event) JSON() ([]byte, error) {
	if e.Payload == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(e.Payload)
}

func topic(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}
