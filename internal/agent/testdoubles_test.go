package agent

import (
	"context"
	"sync"

	"github.com/sentryd/sentryd/internal/socket"
)

// fakeSettings is a minimal in-memory agent.Settings double for tests
// that don't need viper's full dotted-path resolution.
type fakeSettings struct {
	mu            sync.Mutex
	clientName    string
	subscriptions []string
	signature     string
	safeMode      bool
	redactKeys    []string
	socketBind    string
	socketPort    int
	attributes    map[string]any
	lookups       map[string]any
	checks        map[string]CheckDefinition
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		clientName:    "test-client",
		subscriptions: []string{"default"},
		socketBind:    "127.0.0.1",
		socketPort:    3030,
		attributes:    map[string]any{"name": "test-client"},
		lookups:       map[string]any{},
		checks:        map[string]CheckDefinition{},
	}
}

func (s *fakeSettings) ClientName() string      { return s.clientName }
func (s *fakeSettings) Subscriptions() []string { return s.subscriptions }
func (s *fakeSettings) Signature() string       { return s.signature }
func (s *fakeSettings) SafeMode() bool          { return s.safeMode }
func (s *fakeSettings) RedactKeys() []string    { return s.redactKeys }
func (s *fakeSettings) SocketBind() string      { return s.socketBind }
func (s *fakeSettings) SocketPort() int         { return s.socketPort }
func (s *fakeSettings) ClientAttributes() map[string]any {
	return s.attributes
}

func (s *fakeSettings) Lookup(dottedPath string) (any, bool) {
	v, ok := s.lookups[dottedPath]
	return v, ok
}

func (s *fakeSettings) LocalCheck(name string) (CheckDefinition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cd, ok := s.checks[name]
	return cd, ok
}

func (s *fakeSettings) CheckNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	return names
}

func (s *fakeSettings) setCheck(cd CheckDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[cd.Name] = cd
}

var _ Settings = (*fakeSettings)(nil)

// noopSocketBinder satisfies SocketBinder without opening any real
// listener — agent tests exercise the event loop, not the network stack.
type noopSocketBinder struct{}

func (noopSocketBinder) Bind(ctx context.Context, out chan<- socket.Event) ([]SocketHandle, error) {
	return nil, nil
}

// fakeSubprocess records every command it's asked to run. With auto set,
// it completes immediately on its own goroutine; otherwise the test
// drives completion via completePending, to exercise the in-progress
// drain on stop.
type fakeSubprocess struct {
	mu       sync.Mutex
	auto     bool
	commands []string
	timeouts []float64
	pending  []func(SubprocessResult)
}

func (f *fakeSubprocess) Start(ctx context.Context, command string, timeout float64, onComplete func(SubprocessResult)) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.timeouts = append(f.timeouts, timeout)
	if f.auto {
		f.mu.Unlock()
		go onComplete(SubprocessResult{Output: "ok", ExitCode: 0})
		return
	}
	f.pending = append(f.pending, onComplete)
	f.mu.Unlock()
}

func (f *fakeSubprocess) lastCommand() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

// completePending fires the oldest pending completion callback, if any.
func (f *fakeSubprocess) completePending(result SubprocessResult) bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	cb := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	go cb(result)
	return true
}

// fakeExtensionRunner completes synchronously with a fixed result.
type fakeExtensionRunner struct {
	output string
	status int
	calls  int32
}

func (f *fakeExtensionRunner) Run(ctx context.Context, request CheckRequest, onComplete func(output string, status int)) {
	onComplete(f.output, f.status)
}

// fakeRegistry is a single-entry agent.ExtensionRegistry double.
type fakeRegistry struct {
	name   string
	runner ExtensionRunner
}

func (r *fakeRegistry) Lookup(name string) (ExtensionRunner, bool) {
	if name != r.name {
		return nil, false
	}
	return r.runner, true
}
