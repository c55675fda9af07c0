package events

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_FillsSessionAndNotifiesListener(t *testing.T) {
	var got []ChatEvent
	SetListener(func(_ context.Context, name string, evt ChatEvent) {
		assert.Equal(t, ChatStreamDone, name)
		got = append(got, evt)
	})
	t.Cleanup(func() { SetListener(nil) })

	ctx := WithSession(context.Background(), "sess-1")
	Emit(ctx, ChatStreamDone, NewSuccess("done").With("provider", "Groq"))

	require.Len(t, got, 1)
	assert.Equal(t, "sess-1", got[0].SessionKey)
	assert.Equal(t, EventSuccess, got[0].Type)
	assert.Equal(t, "Groq", got[0].Metadata["provider"])
	assert.NotEmpty(t, got[0].ID)
}

func TestEmit_LogsAtEventLevel(t *testing.T) {
	hook := test.NewGlobal()
	t.Cleanup(hook.Reset)

	Emit(context.Background(), ChatStreamError, NewError("boom").With("provider", "Claude"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, ChatStreamError, entry.Data["event"])
	assert.Equal(t, "Claude", entry.Data["provider"])
}

func TestWith_DoesNotShareMetadata(t *testing.T) {
	base := NewInfo("x").With("a", "1")
	derived := base.With("b", "2")

	assert.Len(t, base.Metadata, 1)
	assert.Len(t, derived.Metadata, 2)
}

func TestWithSession_IgnoresBlank(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithSession(ctx, "  "))
	assert.Equal(t, "", SessionFromContext(ctx))
}
