package chat

import (
	"fmt"

	"nexusai/internal/models"
)

// Transcript is a bounded FIFO of chat messages. Appending past the bound
// evicts from the front. It is not safe for concurrent use; the owning
// Controller serialises access.
type Transcript struct {
	buf   []models.ChatMessage
	head  int
	count int
}

func NewTranscript(max int) *Transcript {
	if max < 1 {
		max = 1
	}
	return &Transcript{buf: make([]models.ChatMessage, max)}
}

func (t *Transcript) Max() int { return len(t.buf) }

func (t *Transcript) Len() int { return t.count }

func (t *Transcript) Append(msg models.ChatMessage) {
	if t.count < len(t.buf) {
		t.buf[(t.head+t.count)%len(t.buf)] = msg
		t.count++
		return
	}
	t.buf[t.head] = msg
	t.head = (t.head + 1) % len(t.buf)
}

// Messages returns a copy in insertion order.
func (t *Transcript) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, t.count)
	for i := 0; i < t.count; i++ {
		out[i] = t.buf[(t.head+i)%len(t.buf)]
	}
	return out
}

func (t *Transcript) Clear() {
	clear(t.buf)
	t.head = 0
	t.count = 0
}

// Resize changes the bound, dropping the oldest messages if the transcript
// is now over it.
func (t *Transcript) Resize(max int) error {
	if max < 1 {
		return fmt.Errorf("transcript size must be at least 1, got %d", max)
	}
	msgs := t.Messages()
	if len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	t.buf = make([]models.ChatMessage, max)
	copy(t.buf, msgs)
	t.head = 0
	t.count = len(msgs)
	return nil
}

// Replace discards the current contents and appends msgs, keeping only the
// newest Max() of them.
func (t *Transcript) Replace(msgs []models.ChatMessage) {
	t.Clear()
	for _, m := range msgs {
		t.Append(m)
	}
}
