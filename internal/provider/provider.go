package provider

import (
	"context"
	"encoding/json"
)

// Provider abstracts the downstream push service. Mocking this interface in
// tests gives full control over delivery behaviour without real HTTP calls.
type Provider interface {
	// Trigger pushes one event onto a channel. The data blob is already
	// serialized; signature construction is the provider's concern.
	Trigger(ctx context.Context, channel, event string, data json.RawMessage) error
}
