package events

import (
	"context"
	"sync"
)

var (
	mu       sync.RWMutex
	listener func(ctx context.Context, name string, evt ChatEvent)
)

// Emit logs evt and forwards it to the registered listener, if any. The
// session key is filled from ctx when evt has none.
func Emit(ctx context.Context, name string, evt ChatEvent) {
	if evt.SessionKey == "" {
		evt.SessionKey = SessionFromContext(ctx)
	}
	logEvent(name, evt)

	mu.RLock()
	f := listener
	mu.RUnlock()
	if f != nil {
		f(ctx, name, evt)
	}
}

// SetListener registers f to receive every emitted event. A nil f removes
// the current listener.
func SetListener(f func(ctx context.Context, name string, evt ChatEvent)) {
	mu.Lock()
	defer mu.Unlock()
	listener = f
}
