package extension

import (
	"context"
	"reflect"
	"testing"

	"github.com/sentryd/sentryd/internal/agent"
)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, req agent.CheckRequest, onComplete func(string, int)) {
	onComplete("ok", 0)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubRunner{})

	runner, ok := r.Lookup("stub")
	if !ok {
		t.Fatal("expected stub to be found")
	}
	if runner == nil {
		t.Fatal("expected non-nil runner")
	}
}

func TestRegistryLookupMissReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("missing")
	if ok {
		t.Fatal("expected lookup miss")
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zebra", stubRunner{})
	r.Register("alpha", stubRunner{})

	if got := r.List(); !reflect.DeepEqual(got, []string{"alpha", "zebra"}) {
		t.Fatalf("expected sorted names, got %v", got)
	}
}

func TestRegistryUnregisterRemovesRunner(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubRunner{})

	if !r.Unregister("stub") {
		t.Fatal("expected unregister to report true")
	}
	if _, ok := r.Lookup("stub"); ok {
		t.Fatal("expected stub to be gone")
	}
	if r.Unregister("stub") {
		t.Fatal("expected second unregister to report false")
	}
}

func TestRegisterBuiltinsAddsAllThree(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	for _, name := range []string{"cpu", "memory", "load"} {
		if _, ok := r.Lookup(name); !ok {
			t.Fatalf("expected builtin %q to be registered", name)
		}
	}
}

func TestStatusForPercentClassifiesThresholds(t *testing.T) {
	cases := []struct {
		percent, warning, critical float64
		want                       int
	}{
		{50, 80, 95, statusOK},
		{85, 80, 95, statusWarning},
		{97, 80, 95, statusCritical},
	}
	for _, tc := range cases {
		if got := statusForPercent(tc.percent, tc.warning, tc.critical); got != tc.want {
			t.Fatalf("statusForPercent(%v,%v,%v) = %d, want %d", tc.percent, tc.warning, tc.critical, got, tc.want)
		}
	}
}

func TestThresholdsReadsOverridesFromExtra(t *testing.T) {
	req := agent.CheckRequest{
		CheckDefinition: agent.CheckDefinition{
			Extra: map[string]any{"warning": 50.0, "critical": 75.0},
		},
	}
	warning, critical := thresholds(req, 80, 95)
	if warning != 50 || critical != 75 {
		t.Fatalf("expected overrides 50/75, got %v/%v", warning, critical)
	}
}

func TestThresholdsFallsBackToDefaults(t *testing.T) {
	req := agent.CheckRequest{}
	warning, critical := thresholds(req, 80, 95)
	if warning != 80 || critical != 95 {
		t.Fatalf("expected defaults 80/95, got %v/%v", warning, critical)
	}
}
