package agent

import (
	"encoding/json"
	"time"

	"github.com/sentryd/sentryd/internal/transport"
)

const keepalivesPipe = "keepalives"

// publishKeepalive builds the keepalive payload (the client settings
// block merged with version/timestamp, then redacted) and fire-and-
// forgets it to the keepalives pipe. Publish errors are logged but never
// retried, per §4.2.
func (a *Agent) publishKeepalive() {
	block := a.settings.ClientAttributes()
	payload := make(map[string]any, len(block)+2)
	for k, v := range block {
		payload[k] = v
	}
	payload["version"] = a.version
	payload["timestamp"] = a.now().Unix()

	redacted := a.redactor(payload, a.settings.RedactKeys())

	data, err := json.Marshal(redacted)
	if err != nil {
		a.log.Warn("keepalive.marshal_error", "error", err.Error())
		return
	}

	err = a.transport.Publish(a.ctx, keepalivesPipe, transport.Direct, data)
	a.metrics.KeepaliveResult(a.ctx, err)
	if err != nil {
		a.log.PublishError(keepalivesPipe, data, err)
	}
}

func (a *Agent) now() time.Time {
	if a.clock != nil {
		return a.clock()
	}
	return time.Now()
}
