package testutils

import (
	"context"
	"log/slog"
	"sync"
)

// MockHandler is a slog handler recording every record it is given.
type MockHandler struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
}

// Enabled implements Handler.Enabled.
func (h *MockHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements Handler.Handle. Attributes set with WithAttrs are added to the record.
func (h *MockHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := record.Clone()
	r.AddAttrs(h.attrs...)
	h.records = append(h.records, r)
	return nil
}

// WithAttrs implements Handler.WithAttrs. The attributes are shared with the returned handler.
func (h *MockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.attrs = append(h.attrs, attrs...)
	return h
}

// WithGroup implements Handler.WithGroup. Groups are ignored.
func (h *MockHandler) WithGroup(string) slog.Handler {
	return h
}

// Messages returns the messages logged at level or above.
func (h *MockHandler) Messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var msgs []string
	for _, r := range h.records {
		if r.Level >= level {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

// Attr returns the values of the attribute key in the records with message msg.
func (h *MockHandler) Attr(msg, key string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var values []string
	for _, r := range h.records {
		if r.Message != msg {
			continue
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				values = append(values, a.Value.String())
			}
			return true
		})
	}
	return values
}
