package websocket

import "github.com/isdelr/nota-be/internal/models"

// Message defines the structure for websocket messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DeletedPayload identifies a removed note.
type DeletedPayload struct {
	ID string `json:"id"`
}

// NewNoteMessage converts a note event into the message sent to clients.
func NewNoteMessage(event models.NoteEvent) Message {
	if event.Note == nil {
		return Message{Type: string(event.Type), Payload: DeletedPayload{ID: event.NoteID}}
	}
	return Message{Type: string(event.Type), Payload: event.Note}
}
