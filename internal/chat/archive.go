package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
	"nexusai/internal/repositories"
)

const (
	// KeyLayout formats snapshot keys. Same-second saves get a " #n" suffix.
	KeyLayout      = "2006-01-02 15:04:05"
	previewLength  = 30
	maxKeyAttempts = 1000
)

// Snapshot is an immutable copy of a transcript and the provider it was
// talking to.
type Snapshot struct {
	Key       string
	CreatedAt time.Time
	Messages  []models.ChatMessage
	Provider  models.Provider
}

// SnapshotStore holds snapshots for one owner. Put must report an existing
// key as apperr.ErrDuplicateKey and never overwrite it.
type SnapshotStore interface {
	Put(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, key string) (*Snapshot, error)
	List(ctx context.Context) ([]Snapshot, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// Archive saves and restores transcripts through a SnapshotStore.
type Archive struct {
	store SnapshotStore
	now   func() time.Time
}

func NewArchive(store SnapshotStore, now func() time.Time) *Archive {
	if store == nil {
		store = NewMemoryStore()
	}
	if now == nil {
		now = time.Now
	}
	return &Archive{store: store, now: now}
}

// Save stores a copy of msgs and returns the new key.
func (a *Archive) Save(ctx context.Context, msgs []models.ChatMessage, provider models.Provider) (string, error) {
	if len(msgs) == 0 {
		return "", apperr.Validation("Nothing to save: the chat is empty")
	}
	created := a.now()
	base := created.Format(KeyLayout)
	snap := Snapshot{
		CreatedAt: created,
		Messages:  append([]models.ChatMessage(nil), msgs...),
		Provider:  provider,
	}

	for n := 1; n <= maxKeyAttempts; n++ {
		snap.Key = base
		if n > 1 {
			snap.Key = fmt.Sprintf("%s #%d", base, n)
		}
		err := a.store.Put(ctx, snap)
		if err == nil {
			return snap.Key, nil
		}
		if apperr.KindOf(err) != apperr.KindDuplicateKey {
			return "", err
		}
	}
	return "", apperr.DuplicateKey(fmt.Sprintf("too many sessions saved at %s", base))
}

// List returns summaries newest first.
func (a *Archive) List(ctx context.Context) ([]models.SessionSummary, error) {
	snaps, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].Key > snaps[j].Key
	})

	out := make([]models.SessionSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, models.SessionSummary{
			Key:       s.Key,
			Preview:   Preview(s.Messages),
			Provider:  s.Provider,
			CreatedAt: s.CreatedAt,
		})
	}
	return out, nil
}

// Load returns a copy of the stored messages and provider.
func (a *Archive) Load(ctx context.Context, key string) ([]models.ChatMessage, models.Provider, error) {
	snap, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if snap == nil {
		return nil, "", apperr.NotFound(fmt.Sprintf("session %q not found", key))
	}
	return append([]models.ChatMessage(nil), snap.Messages...), snap.Provider, nil
}

func (a *Archive) Delete(ctx context.Context, key string) error {
	ok, err := a.store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(fmt.Sprintf("session %q not found", key))
	}
	return nil
}

// Preview is the first 30 characters of the first message followed by
// "...", or "Empty".
func Preview(msgs []models.ChatMessage) string {
	if len(msgs) == 0 {
		return "Empty"
	}
	content := msgs[0].Content
	if utf8.RuneCountInString(content) > previewLength {
		content = string([]rune(content)[:previewLength])
	}
	return content + "..."
}

// MemoryStore keeps snapshots for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Put(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[s.Key]; ok {
		return apperr.DuplicateKey(fmt.Sprintf("session %s already exists", s.Key))
	}
	s.Messages = append([]models.ChatMessage(nil), s.Messages...)
	m.snaps[s.Key] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[key]
	if !ok {
		return nil, nil
	}
	s.Messages = append([]models.ChatMessage(nil), s.Messages...)
	return &s, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[key]; !ok {
		return false, nil
	}
	delete(m.snaps, key)
	return true, nil
}

// DBStore persists snapshots in the chat_snapshots table, scoped to one owner.
type DBStore struct {
	repo  repositories.ChatSnapshotRepository
	owner string
}

func NewDBStore(repo repositories.ChatSnapshotRepository, ownerEmail string) *DBStore {
	return &DBStore{repo: repo, owner: strings.TrimSpace(ownerEmail)}
}

func (d *DBStore) Put(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	return d.repo.Create(ctx, &models.ChatSnapshot{
		OwnerEmail:   d.owner,
		Key:          s.Key,
		Provider:     string(s.Provider),
		MessagesJSON: string(data),
		CreatedAt:    s.CreatedAt,
	})
}

func (d *DBStore) Get(ctx context.Context, key string) (*Snapshot, error) {
	row, err := d.repo.GetByOwnerAndKey(ctx, d.owner, key)
	if err != nil || row == nil {
		return nil, err
	}
	snap, err := fromRow(*row)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (d *DBStore) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := d.repo.ListByOwner(ctx, d.owner)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (d *DBStore) Delete(ctx context.Context, key string) (bool, error) {
	return d.repo.DeleteByOwnerAndKey(ctx, d.owner, key)
}

func fromRow(row models.ChatSnapshot) (Snapshot, error) {
	var msgs []models.ChatMessage
	if raw := strings.TrimSpace(row.MessagesJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
			return Snapshot{}, apperr.Storage(fmt.Sprintf("decode session %s", row.Key), err)
		}
	}
	return Snapshot{
		Key:       row.Key,
		CreatedAt: row.CreatedAt,
		Messages:  msgs,
		Provider:  models.Provider(row.Provider),
	}, nil
}
