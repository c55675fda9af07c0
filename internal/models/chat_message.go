package models

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// ChatMessage is one immutable transcript entry.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionSummary is one row of the saved-sessions list.
type SessionSummary struct {
	Key       string    `json:"key"`
	Preview   string    `json:"preview"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}
