package domain

import "time"

// ConversationMessage is one stored turn of a query session. Sessions
// exist so follow-up questions can see prior exchanges; the generation
// engine receives them only as a pre-formatted opaque text blob.
type ConversationMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
