package journey_test

import (
	"context"
	"testing"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/journey"
	"github.com/paulb-elastic/synthetics/monitor"
)

func TestRegisterOrder(t *testing.T) {
	reg := journey.NewRegistry()
	reg.Register(journey.New("b", nil))
	reg.Register(journey.New("a", nil))
	reg.Register(journey.New("c", nil))

	names := make([]string, 0, reg.Len())
	for _, j := range reg.Journeys() {
		names = append(names, j.Name)
	}

	want := []string{"b", "a", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("journeys = %v, want %v", names, want)
		}
	}
}

func TestReset(t *testing.T) {
	reg := journey.NewRegistry()
	reg.Register(journey.New("a", nil))
	reg.Reset()
	if reg.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", reg.Len())
	}
}

func TestResetBuilt(t *testing.T) {
	reg := journey.NewRegistry()
	j := journey.New("a", func(b *journey.Builder) {
		b.Step("s", func(context.Context, driver.Driver) error { return nil })
	})
	reg.Register(j)
	journey.Build(j, nil, nil)

	reg.ResetBuilt()

	if reg.Len() != 1 {
		t.Errorf("Len after ResetBuilt = %d, want 1", reg.Len())
	}
	if got := len(j.Steps()); got != 0 {
		t.Errorf("built steps after ResetBuilt = %d, want 0", got)
	}
}

func TestGet(t *testing.T) {
	reg := journey.NewRegistry()
	reg.Register(journey.New("a", nil))

	if _, ok := reg.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get(missing) unexpectedly found")
	}
}

func TestBuildPopulatesSteps(t *testing.T) {
	j := journey.New("checkout", func(b *journey.Builder) {
		b.Step("one", func(context.Context, driver.Driver) error { return nil })
		b.Step("two", func(context.Context, driver.Driver) error { return nil })
		b.Before(func(context.Context, hook.Payload) error { return nil })
		b.After(func(context.Context, hook.Payload) error { return nil })
	})

	journey.Build(j, nil, nil)

	steps := j.Steps()
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(steps))
	}
	if steps[0].Name != "one" || steps[1].Name != "two" {
		t.Errorf("step names = %q, %q", steps[0].Name, steps[1].Name)
	}
	if steps[0].Index != 0 || steps[1].Index != 1 {
		t.Errorf("step indexes = %d, %d", steps[0].Index, steps[1].Index)
	}
	if steps[0].Location == "" {
		t.Error("expected step location to be captured")
	}
	if steps[0].ID.IsNil() {
		t.Error("expected step ID to be generated")
	}
	if len(j.BeforeHooks()) != 1 || len(j.AfterHooks()) != 1 {
		t.Errorf("hooks = %d before, %d after; want 1 and 1",
			len(j.BeforeHooks()), len(j.AfterHooks()))
	}
}

// Rebuilding a journey discards the previous run's steps and hooks —
// the step list is not fixed at registration time.
func TestBuildIsPerRun(t *testing.T) {
	calls := 0
	j := journey.New("grows", func(b *journey.Builder) {
		calls++
		for range calls {
			b.Step("s", func(context.Context, driver.Driver) error { return nil })
		}
	})

	journey.Build(j, nil, nil)
	journey.Build(j, nil, nil)

	if got := len(j.Steps()); got != 2 {
		t.Errorf("steps after second build = %d, want 2", got)
	}
}

func TestBuilderParams(t *testing.T) {
	var got any
	j := journey.New("params", func(b *journey.Builder) {
		got = b.Params()["key"]
	})

	journey.Build(j, nil, synthetics.Params{"key": "value"})

	if got != "value" {
		t.Errorf("params[key] = %v, want %q", got, "value")
	}
}

func TestFilterMatch(t *testing.T) {
	opts := synthetics.DefaultRunOptions()
	opts.Match = "^check"

	f, err := journey.NewFilter(opts)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	if !f.Matches(journey.New("checkout", nil)) {
		t.Error("expected checkout to match ^check")
	}
	if f.Matches(journey.New("login", nil)) {
		t.Error("expected login not to match ^check")
	}
}

func TestFilterInvalidMatch(t *testing.T) {
	opts := synthetics.DefaultRunOptions()
	opts.Match = "("
	if _, err := journey.NewFilter(opts); err == nil {
		t.Error("expected error for invalid match expression")
	}
}

func TestFilterTags(t *testing.T) {
	opts := synthetics.DefaultRunOptions()
	opts.Tags = []string{"smoke-*"}

	f, err := journey.NewFilter(opts)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	tagged := journey.New("a", nil)
	cfg := monitor.New("a", "")
	cfg.Tags = []string{"smoke-eu"}
	tagged.WithMonitor(cfg)

	if !f.Matches(tagged) {
		t.Error("expected tagged journey to match smoke-*")
	}
	if f.Matches(journey.New("untagged", nil)) {
		t.Error("expected untagged journey to be filtered out")
	}
}
