// Package adapter translates a transcript into each provider's request shape
// and streams the provider's answer back as text chunks.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

// Apology is shown in place of the answer when a provider call fails.
const Apology = "I'm sorry, I'm having trouble responding right now."

// Request is a provider-shaped request built by an Adapter.
type Request interface {
	Format() string
}

// ErrStreamConsumed is yielded when a stream is ranged over a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// Adapter converts transcripts for one provider and streams its answers.
//
// Stream is lazy and single-use: nothing is sent until the sequence is
// ranged over, and a consumed sequence must not be ranged over again. Every
// error yielded is an apperr provider error; iteration stops after it.
type Adapter interface {
	Provider() models.Provider
	BuildRequest(msgs []models.ChatMessage, systemPrompt string) (Request, error)
	DecodeRequest(req Request) ([]models.ChatMessage, string, error)
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect drains a stream, calling onChunk with the cumulative text after
// every chunk. It returns the full text, or the first error.
func Collect(stream iter.Seq2[string, error], onChunk func(cumulative string)) (string, error) {
	var sb strings.Builder
	for chunk, err := range stream {
		if err != nil {
			return "", apperr.Provider(err)
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(sb.String())
		}
	}
	return sb.String(), nil
}

// Registry maps a provider to its adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

func (r *Registry) Get(p models.Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("no adapter registered for provider %s", p))
	}
	return a, nil
}

func (r *Registry) Providers() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Provider, 0, len(r.adapters))
	for _, p := range models.Providers {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// singleUse lets seq run once; later iterations only yield ErrStreamConsumed.
func singleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", apperr.Provider(ErrStreamConsumed))
			return
		}
		seq(yield)
	}
}

// failed returns a stream that yields err once.
func failed(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", apperr.Provider(err))
	}
}

func wrongRequest(want string, got Request) error {
	if got == nil {
		return fmt.Errorf("expected %s request, got nil", want)
	}
	return fmt.Errorf("expected %s request, got %s", want, got.Format())
}

func checkRole(m models.ChatMessage) error {
	if !m.Role.Valid() {
		return apperr.Validationf("unknown message role %q", m.Role)
	}
	return nil
}

// splitSystem separates system-role entries from the conversation. Providers
// with an out-of-band system field receive them appended to the prompt.
func splitSystem(msgs []models.ChatMessage) (conversation []models.ChatMessage, system []string, err error) {
	for _, m := range msgs {
		if err := checkRole(m); err != nil {
			return nil, nil, err
		}
		if m.Role == models.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		conversation = append(conversation, m)
	}
	return conversation, system, nil
}
