package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusai/internal/apperr"
	"nexusai/internal/database"
	"nexusai/internal/models"
	"nexusai/internal/repositories"
)

// fixedClock returns t0 until advanced.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)}
}

func sampleChat() []models.ChatMessage {
	return []models.ChatMessage{
		userMsg("What is the capital of Australia, and why not Sydney?"),
		{Role: models.RoleAssistant, Content: "Canberra."},
	}
}

func TestArchive_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(nil, newClock().now)

	key, err := a.Save(ctx, sampleChat(), models.ProviderClaude)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09 14:05:07", key)

	msgs, provider, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleChat(), msgs)
	assert.Equal(t, models.ProviderClaude, provider)
}

func TestArchive_SaveCopiesMessages(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(nil, newClock().now)
	msgs := sampleChat()

	key, err := a.Save(ctx, msgs, models.ProviderGemini)
	require.NoError(t, err)
	msgs[0].Content = "changed"

	loaded, _, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleChat()[0].Content, loaded[0].Content)

	loaded[1].Content = "also changed"
	again, _, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Canberra.", again[1].Content)
}

func TestArchive_SameSecondSavesGetDistinctKeys(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(nil, newClock().now)

	first, err := a.Save(ctx, sampleChat(), models.ProviderGemini)
	require.NoError(t, err)
	second, err := a.Save(ctx, []models.ChatMessage{userMsg("second")}, models.ProviderGroq)
	require.NoError(t, err)
	third, err := a.Save(ctx, []models.ChatMessage{userMsg("third")}, models.ProviderGroq)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09 14:05:07", first)
	assert.Equal(t, "2024-03-09 14:05:07 #2", second)
	assert.Equal(t, "2024-03-09 14:05:07 #3", third)

	msgs, _, err := a.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, sampleChat(), msgs, "earlier snapshot is never overwritten")
}

func TestArchive_EmptyTranscriptIsRejected(t *testing.T) {
	a := NewArchive(nil, nil)

	_, err := a.Save(context.Background(), nil, models.ProviderGemini)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArchive_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	a := NewArchive(nil, clock.now)

	_, err := a.Save(ctx, []models.ChatMessage{userMsg("oldest")}, models.ProviderGemini)
	require.NoError(t, err)
	clock.advance(time.Minute)
	_, err = a.Save(ctx, []models.ChatMessage{userMsg("newest")}, models.ProviderDeepSeek)
	require.NoError(t, err)

	list, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newest...", list[0].Preview)
	assert.Equal(t, models.ProviderDeepSeek, list[0].Provider)
	assert.Equal(t, "2024-03-09 14:06:07", list[0].Key)
	assert.Equal(t, "oldest...", list[1].Preview)
}

func TestArchive_LoadAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(nil, nil)

	_, _, err := a.Load(ctx, "1999-01-01 00:00:00")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, a.Delete(ctx, "1999-01-01 00:00:00"), apperr.ErrNotFound)
}

func TestArchive_Delete(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(nil, newClock().now)
	key, err := a.Save(ctx, sampleChat(), models.ProviderGemini)
	require.NoError(t, err)

	require.NoError(t, a.Delete(ctx, key))
	_, _, err = a.Load(ctx, key)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "Empty", Preview(nil))
	assert.Equal(t, "hi...", Preview([]models.ChatMessage{userMsg("hi")}))
	assert.Equal(t, "What is the capital of Austral...", Preview(sampleChat()))
	long := strings.Repeat("é", 28) + "öö" + "xyz"
	assert.Equal(t, strings.Repeat("é", 28)+"öö...", Preview([]models.ChatMessage{userMsg(long)}))
}

func TestDBStore_PersistsPerOwner(t *testing.T) {
	ctx := context.Background()
	db, err := database.Init(database.Config{Path: filepath.Join(t.TempDir(), "nexus.db")})
	require.NoError(t, err)
	repo := repositories.NewChatSnapshotRepository(db)
	clock := newClock()

	ada := NewArchive(NewDBStore(repo, "ada@example.com"), clock.now)
	bob := NewArchive(NewDBStore(repo, "bob@example.com"), clock.now)

	first, err := ada.Save(ctx, sampleChat(), models.ProviderClaude)
	require.NoError(t, err)
	second, err := ada.Save(ctx, []models.ChatMessage{userMsg("again")}, models.ProviderGroq)
	require.NoError(t, err)
	assert.Equal(t, first+" #2", second)

	bobKey, err := bob.Save(ctx, []models.ChatMessage{userMsg("bob")}, models.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, first, bobKey, "keys are scoped per owner")

	msgs, provider, err := ada.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, sampleChat(), msgs)
	assert.Equal(t, models.ProviderClaude, provider)

	list, err := ada.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].Key)

	require.NoError(t, ada.Delete(ctx, first))
	list, err = ada.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	bobList, err := bob.List(ctx)
	require.NoError(t, err)
	assert.Len(t, bobList, 1)
}
