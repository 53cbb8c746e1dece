package settings

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
)

func newTestStore(t *testing.T, yaml string) *Store {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return New(v)
}

const sampleConfig = `
client:
  name: host1
  subscriptions: ["all", "linux"]
  safe_mode: true
  redact:
    - password
  socket:
    port: 4040
  db:
    name: prod
checks:
  chk1:
    command: "echo hi"
    interval: 30
    standalone: true
`

func TestStoreReadsClientIdentity(t *testing.T) {
	s := newTestStore(t, sampleConfig)

	if s.ClientName() != "host1" {
		t.Fatalf("expected client name host1, got %q", s.ClientName())
	}
	if len(s.Subscriptions()) != 2 {
		t.Fatalf("expected 2 subscriptions, got %v", s.Subscriptions())
	}
	if !s.SafeMode() {
		t.Fatal("expected safe mode true")
	}
	if s.SocketPort() != 4040 {
		t.Fatalf("expected configured port 4040, got %d", s.SocketPort())
	}
	if s.SocketBind() != defaultSocketBind {
		t.Fatalf("expected default bind, got %q", s.SocketBind())
	}
}

func TestStoreDefaultsSocketPortWhenUnset(t *testing.T) {
	s := newTestStore(t, "client:\n  name: h\n  subscriptions: [\"all\"]\n")

	if s.SocketPort() != defaultSocketPort {
		t.Fatalf("expected default port %d, got %d", defaultSocketPort, s.SocketPort())
	}
}

func TestStoreLookupWalksDottedPath(t *testing.T) {
	s := newTestStore(t, sampleConfig)

	v, ok := s.Lookup("client.db.name")
	if !ok || v != "prod" {
		t.Fatalf("expected client.db.name=prod, got %v ok=%v", v, ok)
	}

	_, ok = s.Lookup("client.db.missing")
	if ok {
		t.Fatal("expected lookup miss for unset path")
	}
}

func TestStoreLocalCheckParsesFields(t *testing.T) {
	s := newTestStore(t, sampleConfig)

	cd, ok := s.LocalCheck("chk1")
	if !ok {
		t.Fatal("expected chk1 to be found")
	}
	if cd.Command != "echo hi" || cd.Interval != 30 || !cd.Standalone {
		t.Fatalf("unexpected check definition: %+v", cd)
	}
}

func TestStoreValidateRequiresNameAndSubscriptions(t *testing.T) {
	s := newTestStore(t, "client:\n  name: \"\"\n")
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}
