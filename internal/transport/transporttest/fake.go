// Package transporttest provides an in-memory transport.Adapter double
// for agent unit tests, so the runtime and its timing logic can be
// exercised without a live Redis instance.
package transporttest

import (
	"context"
	"sync"

	"github.com/sentryd/sentryd/internal/transport"
)

// PublishedMessage records one call to Fake.Publish.
type PublishedMessage struct {
	Pipe    string
	Pattern transport.DeliveryPattern
	Payload []byte
}

// Fake is an in-process transport.Adapter: Publish appends to an
// in-memory log and, if a handler is subscribed to the same pipe,
// delivers the payload to it synchronously; Subscribe/Unsubscribe
// maintain a simple pipe-to-handler map.
type Fake struct {
	mu          sync.Mutex
	published   []PublishedMessage
	handlers    map[string]func([]byte)
	connected   bool
	closeCalled bool
}

var _ transport.Adapter = (*Fake)(nil)

// New returns a Fake that reports itself as connected.
func New() *Fake {
	return &Fake{handlers: make(map[string]func([]byte)), connected: true}
}

func (f *Fake) Publish(ctx context.Context, pipe string, pattern transport.DeliveryPattern, payload []byte) error {
	f.mu.Lock()
	f.published = append(f.published, PublishedMessage{Pipe: pipe, Pattern: pattern, Payload: payload})
	handler := f.handlers[pipe]
	f.mu.Unlock()

	if handler != nil {
		handler(payload)
	}
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, pipe string, pattern transport.DeliveryPattern, funnel string, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[pipe] = handler
	return nil
}

func (f *Fake) Unsubscribe(pipe string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, pipe)
	return nil
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalled = true
	f.connected = false
	return nil
}

// SetConnected overrides the connected flag Connected reports, for
// exercising reconnect paths.
func (f *Fake) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// Published returns a snapshot of every message Publish has recorded.
func (f *Fake) Published() []PublishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PublishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalled
}

// HasSubscription reports whether pipe currently has a registered
// handler.
func (f *Fake) HasSubscription(pipe string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[pipe]
	return ok
}
