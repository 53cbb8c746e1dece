package redact

import (
	"reflect"
	"testing"
)

func TestRedactMasksTopLevelKey(t *testing.T) {
	in := map[string]any{"name": "host1", "password": "hunter2"}
	out := Redact(in, []string{"password"})

	if out["password"] != mask {
		t.Fatalf("expected password masked, got %v", out["password"])
	}
	if out["name"] != "host1" {
		t.Fatalf("expected name untouched, got %v", out["name"])
	}
	if in["password"] != "hunter2" {
		t.Fatal("Redact must not mutate its input")
	}
}

func TestRedactDescendsNestedMaps(t *testing.T) {
	in := map[string]any{
		"db": map[string]any{"name": "prod", "password": "s3cr3t"},
	}
	out := Redact(in, []string{"password"})

	db := out["db"].(map[string]any)
	if db["password"] != mask {
		t.Fatalf("expected nested password masked, got %v", db["password"])
	}
}

func TestRedactIsIdempotent(t *testing.T) {
	in := map[string]any{"token": "abc", "nested": map[string]any{"token": "def"}}
	once := Redact(in, []string{"token"})
	twice := Redact(once, []string{"token"})

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("redacting twice should equal redacting once: %v vs %v", once, twice)
	}
}

func TestRedactNoSensitiveKeysCopiesUnchanged(t *testing.T) {
	in := map[string]any{"a": 1}
	out := Redact(in, nil)

	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected unchanged copy, got %v", out)
	}
}
