package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"nexusai/internal/apperr"
	"nexusai/internal/config"
	"nexusai/internal/events"
	"nexusai/internal/llm/adapter"
	"nexusai/internal/models"
	"nexusai/internal/tabular"
)

// dataKeywords route a prompt to the data assistant when a dataset is
// attached.
var dataKeywords = []string{"data", "table", "select", "where"}

// SQLGenerator turns a question about ds into a SQL query using provider.
type SQLGenerator interface {
	Generate(ctx context.Context, provider models.Provider, ds *tabular.Dataset, question string) (string, error)
}

// TurnResult is what the user sees after one submitted message.
type TurnResult struct {
	Response string          `json:"response"`
	Provider models.Provider `json:"provider"`
	SQL      string          `json:"sql,omitempty"`
	Result   *tabular.Result `json:"result,omitempty"`
}

type Options struct {
	MaxHistory   int
	Provider     models.Provider
	SystemPrompt string
	// SessionTTL bounds how long the Manager keeps a session alive.
	SessionTTL time.Duration
}

// Controller owns the state of one chat session. Every method takes the
// controller mutex, so a session handles one interaction at a time.
type Controller struct {
	mu sync.Mutex

	id           string
	transcript   *Transcript
	provider     models.Provider
	systemPrompt string

	registry *adapter.Registry
	archive  *Archive
	sqlgen   SQLGenerator

	dataset *tabular.Dataset
	engine  *tabular.Engine
}

func NewController(id string, registry *adapter.Registry, archive *Archive, sqlgen SQLGenerator, opts Options) *Controller {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = config.DefaultMaxHistory
	}
	if opts.Provider == "" {
		opts.Provider = models.Provider(config.DefaultProvider)
	}
	if archive == nil {
		archive = NewArchive(nil, nil)
	}
	return &Controller{
		id:           id,
		transcript:   NewTranscript(opts.MaxHistory),
		provider:     opts.Provider,
		systemPrompt: opts.SystemPrompt,
		registry:     registry,
		archive:      archive,
		sqlgen:       sqlgen,
	}
}

func (c *Controller) ID() string { return c.id }

// Submit runs one chat turn. onChunk receives the cumulative answer while it
// streams. When the provider fails the transcript keeps the user message,
// the response is the apology text and the provider error is returned.
func (c *Controller) Submit(ctx context.Context, content string, onChunk func(cumulative string)) (TurnResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return TurnResult{}, apperr.Validation("Message is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = events.WithSession(ctx, c.id)
	if c.dataset != nil && IsDataQuestion(content) {
		return c.dataTurn(ctx, content)
	}
	return c.chatTurn(ctx, content, onChunk)
}

func (c *Controller) chatTurn(ctx context.Context, content string, onChunk func(string)) (TurnResult, error) {
	res := TurnResult{Provider: c.provider}
	a, err := c.registry.Get(c.provider)
	if err != nil {
		return res, err
	}

	c.transcript.Append(models.ChatMessage{Role: models.RoleUser, Content: content})
	events.Emit(ctx, events.ChatStreamStart, events.NewInfo("streaming response").With("provider", string(c.provider)))

	text, err := c.stream(ctx, a, onChunk)
	if err != nil {
		events.Emit(ctx, events.ChatStreamError, events.NewError(err.Error()).With("provider", string(c.provider)))
		res.Response = adapter.Apology
		return res, apperr.Provider(err)
	}

	c.transcript.Append(models.ChatMessage{Role: models.RoleAssistant, Content: text})
	events.Emit(ctx, events.ChatStreamDone, events.NewSuccess("response complete").
		With("provider", string(c.provider)).
		With("chars", fmt.Sprint(len(text))))
	res.Response = text
	return res, nil
}

func (c *Controller) stream(ctx context.Context, a adapter.Adapter, onChunk func(string)) (string, error) {
	req, err := a.BuildRequest(c.transcript.Messages(), c.systemPrompt)
	if err != nil {
		return "", err
	}
	return adapter.Collect(a.Stream(ctx, req), onChunk)
}

// dataTurn answers a question about the attached dataset by generating SQL
// and running it. Nothing is appended when generation fails.
func (c *Controller) dataTurn(ctx context.Context, content string) (TurnResult, error) {
	res := TurnResult{Provider: c.provider}
	sql, err := c.generateSQL(ctx, content)
	if err != nil {
		return res, err
	}

	res.SQL = sql
	res.Response = fmt.Sprintf("Generated SQL:\n```sql\n%s\n```", sql)
	c.transcript.Append(models.ChatMessage{Role: models.RoleUser, Content: content})
	c.transcript.Append(models.ChatMessage{Role: models.RoleAssistant, Content: res.Response})

	out, err := c.runSQL(ctx, sql)
	if err != nil {
		return res, err
	}
	results := "Query Results:\n" + tabular.Markdown(out)
	c.transcript.Append(models.ChatMessage{Role: models.RoleAssistant, Content: results})
	res.Result = out
	res.Response += "\n\n" + results
	return res, nil
}

// IsDataQuestion reports whether prompt mentions one of the data keywords.
func IsDataQuestion(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, k := range dataKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (c *Controller) SelectProvider(p models.Provider) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.registry.Get(p); err != nil {
		return apperr.Validationf("Unknown provider %q", p)
	}
	c.provider = p
	return nil
}

func (c *Controller) Provider() models.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

func (c *Controller) History() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript.Clear()
}

// Memory returns the transcript bound.
func (c *Controller) Memory() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Max()
}

// SetMemory changes how many messages are kept, between MinMemory and
// MaxMemory inclusive.
func (c *Controller) SetMemory(n int) error {
	if n < config.MinMemory || n > config.MaxMemory {
		return apperr.Validationf("Memory must be between %d and %d messages", config.MinMemory, config.MaxMemory)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Resize(n)
}

func (c *Controller) SaveSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.archive.Save(ctx, c.transcript.Messages(), c.provider)
	if err != nil {
		return "", err
	}
	events.Emit(events.WithSession(ctx, c.id), events.SessionSaved, events.NewSuccess("session saved").With("key", key))
	return key, nil
}

func (c *Controller) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.archive.List(ctx)
}

// LoadSession replaces the transcript and provider with a saved snapshot.
// Both change together or not at all.
func (c *Controller) LoadSession(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, provider, err := c.archive.Load(ctx, key)
	if err != nil {
		return err
	}
	if _, err := c.registry.Get(provider); err != nil {
		return apperr.Validationf("Session %s uses unknown provider %q", key, provider)
	}
	c.transcript.Replace(msgs)
	c.provider = provider
	events.Emit(events.WithSession(ctx, c.id), events.SessionLoaded, events.NewInfo("session loaded").With("key", key))
	return nil
}

func (c *Controller) DeleteSession(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.archive.Delete(ctx, key)
}

// AttachDataset loads ds into a fresh query engine, replacing any previous
// dataset.
func (c *Controller) AttachDataset(ctx context.Context, ds *tabular.Dataset) error {
	if ds == nil {
		return apperr.Validation("No dataset provided")
	}
	eng, err := tabular.NewEngine(ctx, ds)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeEngine()
	c.dataset = ds
	c.engine = eng
	log.WithFields(log.Fields{"session": c.id, "dataset": ds.Name, "rows": len(ds.Rows)}).Info("dataset attached")
	return nil
}

func (c *Controller) Dataset() *tabular.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset
}

func (c *Controller) GenerateSQL(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generateSQL(events.WithSession(ctx, c.id), question)
}

func (c *Controller) RunSQL(ctx context.Context, sql string) (*tabular.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runSQL(events.WithSession(ctx, c.id), sql)
}

func (c *Controller) generateSQL(ctx context.Context, question string) (string, error) {
	if c.dataset == nil {
		return "", apperr.Validation("Upload a CSV or Excel file first")
	}
	if c.sqlgen == nil {
		return "", apperr.Provider(errors.New("SQL generation is not configured"))
	}
	sql, err := c.sqlgen.Generate(ctx, c.provider, c.dataset, question)
	if err != nil {
		events.Emit(ctx, events.DataSQL, events.NewError(err.Error()).With("provider", string(c.provider)))
		return "", err
	}
	events.Emit(ctx, events.DataSQL, events.NewSuccess("SQL generated").With("provider", string(c.provider)))
	return sql, nil
}

func (c *Controller) runSQL(ctx context.Context, sql string) (*tabular.Result, error) {
	if c.engine == nil {
		return nil, apperr.Validation("Upload a CSV or Excel file first")
	}
	out, err := c.engine.Query(ctx, sql)
	if err != nil {
		events.Emit(ctx, events.DataQuery, events.NewWarn(err.Error()))
		return nil, err
	}
	events.Emit(ctx, events.DataQuery, events.NewSuccess("query executed").With("rows", fmt.Sprint(len(out.Rows))))
	return out, nil
}

// Close releases the dataset engine.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeEngine()
	c.dataset = nil
}

func (c *Controller) closeEngine() {
	if c.engine == nil {
		return
	}
	if err := c.engine.Close(); err != nil {
		log.WithError(err).WithField("session", c.id).Warn("closing dataset engine")
	}
	c.engine = nil
}
