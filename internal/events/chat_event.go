package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Event names emitted over the lifetime of a chat turn.
const (
	ChatStreamStart = "chat:stream:start"
	ChatStreamDone  = "chat:stream:done"
	ChatStreamError = "chat:stream:error"
	DataSQL         = "data:sql"
	DataQuery       = "data:query"
	SessionSaved    = "session:saved"
	SessionLoaded   = "session:loaded"
)

// ChatEvent is one lifecycle notification from a chat session.
type ChatEvent struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionKey string            `json:"sessionKey,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "nexusai/events/session"

// WithSession returns a derived context annotated with the given session key
// so emitters can scope payloads.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

// SessionFromContext extracts the session key associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func CreateChatEvent(eventType EventType, message string) ChatEvent {
	return ChatEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) ChatEvent {
	return CreateChatEvent(EventInfo, message)
}

func NewWarn(message string) ChatEvent {
	return CreateChatEvent(EventWarn, message)
}

func NewError(message string) ChatEvent {
	return CreateChatEvent(EventError, message)
}

func NewSuccess(message string) ChatEvent {
	return CreateChatEvent(EventSuccess, message)
}

// With returns a copy of e with key set in its metadata.
func (e ChatEvent) With(key, value string) ChatEvent {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}
