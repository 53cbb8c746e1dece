// Package result builds and emits the check result envelope — the one
// piece of the agent's output path that has its own lifecycle (it is
// reachable both from the agent's command/extension completions and
// directly from the local socket listeners).
package result

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sentryd/sentryd/internal/events"
	"github.com/sentryd/sentryd/internal/transport"
)

// Transport is the narrow publish-only slice of the transport adapter that
// the publisher needs.
type Transport interface {
	Publish(ctx context.Context, pipe string, pattern transport.DeliveryPattern, payload []byte) error
}

const resultsPipe = "results"

// Publisher builds and emits result envelopes: {client, check, signature?}.
type Publisher struct {
	transport  Transport
	clientName string
	signature  string
	log        *events.Logger
}

// New creates a Publisher bound to a client identity and transport.
// signature may be empty, in which case the envelope omits it.
func New(transport Transport, clientName, signature string, log *events.Logger) *Publisher {
	if log == nil {
		log = events.Noop()
	}
	return &Publisher{transport: transport, clientName: clientName, signature: signature, log: log}
}

// Publish serializes {client, check, signature?} and fire-and-forgets it to
// the results pipe. Publish errors are logged with the full payload; there
// is no retry, per the agent's non-goals. A marshal error is returned
// without being logged. The returned error is informational — the agent
// core only feeds it to its result metrics.
func (p *Publisher) Publish(ctx context.Context, check json.Marshaler) error {
	envelope := map[string]any{
		"client": p.clientName,
		"check":  check,
	}
	if p.signature != "" {
		envelope["signature"] = p.signature
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal result envelope: %w", err)
	}

	if err := p.transport.Publish(ctx, resultsPipe, transport.Direct, payload); err != nil {
		p.log.PublishError(resultsPipe, payload, err)
		return err
	}
	return nil
}
