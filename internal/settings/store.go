// Package settings provides the viper-backed implementation of
// agent.Settings: a read-only, dotted-path view over the client identity
// block and the local checks map loaded from YAML/JSON/env at startup.
package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sentryd/sentryd/internal/agent"
)

const (
	defaultSocketBind = "127.0.0.1"
	defaultSocketPort = 3030
)

// Store wraps a *viper.Viper already populated by the caller (config file,
// flags, env) and an immutable snapshot of its contents taken at New. The
// agent treats settings as read-only for its whole lifetime. The checks
// map, ClientAttributes and Lookup use the snapshot; the client identity
// getters (ClientName, Subscriptions, SocketPort, ...) read through v.
type Store struct {
	v        *viper.Viper
	snapshot map[string]any
	checks   map[string]agent.CheckDefinition
}

var _ agent.Settings = (*Store)(nil)

// New snapshots v into a Store. v must already have client.name and
// client.subscriptions set (by config file, flag, or default) — New does
// not validate them; the caller does, through Validate.
func New(v *viper.Viper) *Store {
	s := &Store{
		v:        v,
		snapshot: v.AllSettings(),
		checks:   make(map[string]agent.CheckDefinition),
	}
	s.loadChecks()
	return s
}

func (s *Store) loadChecks() {
	raw, ok := s.snapshot["checks"].(map[string]any)
	if !ok {
		return
	}
	for name, def := range raw {
		fields, ok := def.(map[string]any)
		if !ok {
			continue
		}
		s.checks[name] = checkDefinitionFromMap(name, fields)
	}
}

func checkDefinitionFromMap(name string, fields map[string]any) agent.CheckDefinition {
	cd := agent.CheckDefinition{Name: name, Extra: map[string]any{}}
	for k, v := range fields {
		switch k {
		case "command":
			cd.Command, _ = v.(string)
		case "extension":
			cd.Extension, _ = v.(string)
		case "interval":
			cd.Interval = toInt(v)
		case "timeout":
			cd.Timeout = toFloat(v)
		case "standalone":
			cd.Standalone, _ = v.(bool)
		case "handle":
			if b, ok := v.(bool); ok {
				cd.Handle = &b
			}
		default:
			cd.Extra[k] = v
		}
	}
	return cd
}

// ClientName returns client.name.
func (s *Store) ClientName() string {
	return s.v.GetString("client.name")
}

// Subscriptions returns client.subscriptions.
func (s *Store) Subscriptions() []string {
	return s.v.GetStringSlice("client.subscriptions")
}

// Signature returns client.signature, empty if unconfigured.
func (s *Store) Signature() string {
	return s.v.GetString("client.signature")
}

// SafeMode returns client.safe_mode.
func (s *Store) SafeMode() bool {
	return s.v.GetBool("client.safe_mode")
}

// RedactKeys returns client.redact.
func (s *Store) RedactKeys() []string {
	return s.v.GetStringSlice("client.redact")
}

// SocketBind returns client.socket.bind, defaulting to 127.0.0.1.
func (s *Store) SocketBind() string {
	if v := s.v.GetString("client.socket.bind"); v != "" {
		return v
	}
	return defaultSocketBind
}

// SocketPort returns client.socket.port, defaulting to 3030.
func (s *Store) SocketPort() int {
	if s.v.IsSet("client.socket.port") {
		return s.v.GetInt("client.socket.port")
	}
	return defaultSocketPort
}

// ClientAttributes returns the client settings block as a plain nested
// map, suitable for redaction and keepalive serialization.
func (s *Store) ClientAttributes() map[string]any {
	block, ok := s.snapshot["client"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return block
}

// Lookup walks a dotted path against the full settings snapshot, starting
// at its root (so client keys are reached as "client.<key>").
func (s *Store) Lookup(dottedPath string) (any, bool) {
	parts := strings.Split(dottedPath, ".")
	var cur any = s.snapshot
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// LocalCheck returns the locally-defined check by name, if any.
func (s *Store) LocalCheck(name string) (agent.CheckDefinition, bool) {
	cd, ok := s.checks[name]
	return cd, ok
}

// CheckNames lists every key under checks.*, so the standalone scheduler
// can enumerate local checks without widening agent.Settings.
func (s *Store) CheckNames() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	return names
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

// errInvalidPort is returned by Validate when client.socket.port is out of
// the valid TCP/UDP port range.
var errInvalidPort = fmt.Errorf("client.socket.port must be in 1-65535")

// Validate checks the identity fields bootstrap requires before the agent
// can enter the running state: a non-empty client name, at least one
// subscription, and a well-formed socket port.
func (s *Store) Validate() error {
	if s.ClientName() == "" {
		return fmt.Errorf("client.name is required")
	}
	if len(s.Subscriptions()) == 0 {
		return fmt.Errorf("client.subscriptions must have at least one entry")
	}
	if port := s.SocketPort(); port < 1 || port > 65535 {
		return errInvalidPort
	}
	return nil
}
