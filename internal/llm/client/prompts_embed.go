package client

import (
	"embed"
	"fmt"
	"strings"
)

// embeddedPrompts holds the built-in prompt templates so packaged executables
// can load them without needing access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// LoadPrompt returns the named template, e.g. "sql.txt".
func LoadPrompt(name string) (string, error) {
	data, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// RenderPrompt loads the named template and substitutes {{KEY}} placeholders.
func RenderPrompt(name string, values map[string]string) (string, error) {
	tmpl, err := LoadPrompt(name)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}
