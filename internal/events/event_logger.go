package events

import (
	log "github.com/sirupsen/logrus"
)

func logEvent(name string, event ChatEvent) {
	entry := log.WithFields(log.Fields{
		"event":   name,
		"id":      event.ID,
		"session": event.SessionKey,
	})
	for k, v := range event.Metadata {
		entry = entry.WithField(k, v)
	}

	switch event.Type {
	case EventError:
		entry.Error(event.Message)
	case EventWarn:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}
