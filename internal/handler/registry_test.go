package handler

import (
	"context"
	"testing"

	"github.com/hookgate/hookgate/internal/hook"
)

type stubHandler struct {
	name   string
	points []hook.Point
}

func (s stubHandler) Name() string                              { return s.name }
func (s stubHandler) Points() []hook.Point                      { return s.points }
func (s stubHandler) Evaluate(context.Context, Request) Verdict { return Neutral(s.name) }

func TestRegistry_RegistrationOrderPreserved(t *testing.T) {
	r := NewRegistry()
	names := []string{"first", "second", "third"}
	for _, name := range names {
		if err := r.Register(stubHandler{name: name, points: []hook.Point{hook.PointPreAction}}); err != nil {
			t.Fatalf("Register %q error: %v", name, err)
		}
	}

	listed := r.ForPoint(hook.PointPreAction)
	if len(listed) != 3 {
		t.Fatalf("expected 3 handlers, got %d", len(listed))
	}
	for i, h := range listed {
		if h.Name() != names[i] {
			t.Fatalf("expected %q at position %d, got %q", names[i], i, h.Name())
		}
	}
}

func TestRegistry_RejectsDuplicatesAndInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(stubHandler{name: "dup", points: []hook.Point{hook.PointPreAction}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(stubHandler{name: "dup", points: []hook.Point{hook.PointPreAction}}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := r.Register(stubHandler{name: "", points: []hook.Point{hook.PointPreAction}}); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if err := r.Register(stubHandler{name: "pointless"}); err == nil {
		t.Fatal("expected empty subscription set to fail")
	}
	if err := r.Register(stubHandler{name: "dispatcher", points: []hook.Point{hook.PointPreAction}}); err == nil {
		t.Fatal("expected reserved name to fail")
	}
}

func TestRegistry_ForPointFilters(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubHandler{name: "pre-only", points: []hook.Point{hook.PointPreAction}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(stubHandler{name: "post-only", points: []hook.Point{hook.PointPostAction}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	post := r.ForPoint(hook.PointPostAction)
	if len(post) != 1 || post[0].Name() != "post-only" {
		t.Fatalf("unexpected post_action handlers: %v", post)
	}
	if compact := r.ForPoint(hook.PointPreCompact); len(compact) != 0 {
		t.Fatalf("expected no pre_compact handlers, got %d", len(compact))
	}
}

func TestDefaultRegistry_CoversEveryLifecyclePoint(t *testing.T) {
	r := DefaultRegistry()

	if len(r.List()) != 6 {
		t.Fatalf("expected 6 builtin handlers, got %d", len(r.List()))
	}
	for _, point := range hook.AllPoints {
		if len(r.ForPoint(point)) == 0 {
			t.Fatalf("no builtin handler subscribed to %s", point)
		}
	}
}
