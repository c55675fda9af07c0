// Package sqlgen asks a chat model to turn a natural-language question about
// an uploaded table into a single SQLite query.
package sqlgen

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/apperr"
	"nexusai/internal/llm/client"
	"nexusai/internal/models"
	"nexusai/internal/tabular"
)

// Temperature used for SQL generation.
const Temperature float32 = 0.3

// ModelFactory builds the chat model for a provider.
type ModelFactory func(ctx context.Context, provider models.Provider) (model.BaseChatModel, error)

var fenced = regexp.MustCompile("(?s)```(?:[a-zA-Z]*[ \t]*\n)?(.*?)```")

type Generator struct {
	newModel ModelFactory
}

func NewGenerator(newModel ModelFactory) *Generator {
	return &Generator{newModel: newModel}
}

// Prompt renders the generation prompt for question over ds.
func Prompt(ds *tabular.Dataset, question string) (string, error) {
	preview, err := json.Marshal(ds.Preview())
	if err != nil {
		return "", err
	}
	return client.RenderPrompt("sql.txt", map[string]string{
		"COLUMNS": strings.Join(ds.Columns, ", "),
		"SCHEMA":  strings.Join(ds.Schema(), ", "),
		"PREVIEW": string(preview),
		"REQUEST": question,
	})
}

// Generate returns the SQL the provider proposes for question. Failures to
// reach the provider are apperr provider errors.
func (g *Generator) Generate(ctx context.Context, provider models.Provider, ds *tabular.Dataset, question string) (string, error) {
	if ds == nil {
		return "", apperr.Validation("Upload a CSV or Excel file first")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.Validation("Question is required")
	}

	prompt, err := Prompt(ds, question)
	if err != nil {
		return "", err
	}

	cm, err := g.newModel(ctx, provider)
	if err != nil {
		return "", apperr.Provider(err)
	}
	resp, err := cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, model.WithTemperature(Temperature))
	if err != nil {
		log.WithError(err).WithField("provider", provider).Warn("SQL generation failed")
		return "", apperr.Provider(err)
	}
	if resp == nil {
		return "", apperr.Provider(errors.New("empty response"))
	}

	sql := StripFences(resp.Content)
	if sql == "" {
		return "", apperr.Provider(errors.New("model returned no SQL"))
	}
	log.WithFields(log.Fields{"provider": provider, "dataset": ds.Name}).Debug("SQL generated")
	return sql, nil
}

// StripFences returns the body of the first Markdown code fence in s, or s
// itself when there is none, trimmed.
func StripFences(s string) string {
	if m := fenced.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}
