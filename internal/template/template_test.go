package template

import (
	"reflect"
	"testing"
)

func lookupFrom(tree map[string]any) Lookup {
	return func(path string) (any, bool) {
		parts := split(path)
		var cur any = tree
		for _, p := range parts {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[p]
			if !ok || cur == nil {
				return nil, false
			}
		}
		return cur, true
	}
}

func split(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	out = append(out, path[start:])
	return out
}

func TestSubstituteNoTokensReturnsUnchanged(t *testing.T) {
	cmd, unmatched := Substitute("echo hello", lookupFrom(nil))
	if cmd != "echo hello" {
		t.Fatalf("expected unchanged command, got %q", cmd)
	}
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched tokens, got %v", unmatched)
	}
}

func TestSubstituteResolvesDottedPath(t *testing.T) {
	tree := map[string]any{"db": map[string]any{"name": "prod"}}
	cmd, unmatched := Substitute(":::db.name|dev::: ping", lookupFrom(tree))

	if cmd != "prod ping" {
		t.Fatalf("expected %q, got %q", "prod ping", cmd)
	}
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched tokens, got %v", unmatched)
	}
}

func TestSubstituteFallsBackToDefault(t *testing.T) {
	cmd, unmatched := Substitute(":::a.b|fallback:::", lookupFrom(nil))
	if cmd != "fallback" {
		t.Fatalf("expected %q, got %q", "fallback", cmd)
	}
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched tokens, got %v", unmatched)
	}
}

func TestSubstituteReportsUnmatchedWithoutDefault(t *testing.T) {
	_, unmatched := Substitute(":::missing:::", lookupFrom(nil))
	if !reflect.DeepEqual(unmatched, []string{"missing"}) {
		t.Fatalf("expected [missing], got %v", unmatched)
	}
}

func TestSubstituteReportsMultipleUnmatchedInOrder(t *testing.T) {
	_, unmatched := Substitute(":::a::: :::b:::", lookupFrom(nil))
	if !reflect.DeepEqual(unmatched, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", unmatched)
	}
}

func TestSubstituteNilLeafTreatedAsUnmatched(t *testing.T) {
	tree := map[string]any{"a": nil}
	_, unmatched := Substitute(":::a:::", lookupFrom(tree))
	if !reflect.DeepEqual(unmatched, []string{"a"}) {
		t.Fatalf("expected [a], got %v", unmatched)
	}
}
