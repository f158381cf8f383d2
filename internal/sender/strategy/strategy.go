// Package strategy defines the interface for alert delivery channels.
package strategy

import (
	"context"
	"errors"

	"hsr-monitor/internal/render"
)

// ErrNotConfigured is returned by a channel that has nothing to deliver to
// (no credentials, webhook or recipients). Dispatch treats it as a skip.
var ErrNotConfigured = errors.New("channel not configured")

// Channel is the interface that all alert delivery channels must implement.
type Channel interface {
	// Send delivers the alert, or returns ErrNotConfigured.
	Send(ctx context.Context, alert *render.Alert) error

	// Type returns the channel name (e.g., "email", "slack", "kafka").
	Type() string
}

// Registry keeps channels in registration order.
type Registry struct {
	channels map[string]Channel
	order    []string
}

// NewRegistry creates a new channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register registers a channel, replacing any channel of the same type.
func (r *Registry) Register(ch Channel) {
	if _, exists := r.channels[ch.Type()]; !exists {
		r.order = append(r.order, ch.Type())
	}
	r.channels[ch.Type()] = ch
}

// Get retrieves a channel by type.
func (r *Registry) Get(channelType string) (Channel, bool) {
	ch, ok := r.channels[channelType]
	return ch, ok
}

// List returns all registered channel types in registration order.
func (r *Registry) List() []string {
	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}
