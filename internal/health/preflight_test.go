package health

import (
	"context"
	"errors"
	"testing"
)

type fakeLiveness struct{ alive bool }

func (f fakeLiveness) Alive(context.Context) bool { return f.alive }

type fakeLoopback struct{ err error }

func (f fakeLoopback) Detect(context.Context) error { return f.err }

func TestPreflightFatalOnMissingLoopback(t *testing.T) {
	t.Parallel()

	m := New()
	_, err := Preflight(context.Background(), fakeLiveness{alive: true}, fakeLoopback{err: errors.New("not found")}, t.TempDir(), m)
	if !errors.Is(err, ErrNoLoopbackDevice) {
		t.Errorf("error = %v, want ErrNoLoopbackDevice", err)
	}
}

func TestPreflightWarnsAndLatchesOnLMDown(t *testing.T) {
	t.Parallel()

	m := New()
	result, err := Preflight(context.Background(), fakeLiveness{alive: false}, fakeLoopback{}, t.TempDir(), m)
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if !result.LMDown {
		t.Error("result.LMDown = false, want true")
	}
	if !m.IsLMDown() {
		t.Error("monitor not pre-latched down")
	}
}

func TestPreflightSucceedsWhenAllHealthy(t *testing.T) {
	t.Parallel()

	m := New()
	result, err := Preflight(context.Background(), fakeLiveness{alive: true}, fakeLoopback{}, t.TempDir(), m)
	if err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if result.LMDown {
		t.Error("result.LMDown = true, want false")
	}
	if m.IsLMDown() {
		t.Error("monitor latched down unexpectedly")
	}
}
