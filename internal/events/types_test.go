package events

import (
	"strings"
	"testing"
)

func TestEvent_String(t *testing.T) {
	e := NewEvent(CommandFailed, "style").WithCommand(1)
	got := e.String()

	if !strings.Contains(got, "[cmd.failed]") {
		t.Errorf("expected type in string, got %q", got)
	}
	if !strings.Contains(got, "style") {
		t.Errorf("expected env in string, got %q", got)
	}
	if !strings.Contains(got, "cmd=#1") {
		t.Errorf("expected command index in string, got %q", got)
	}
}

func TestEvent_IsFailure(t *testing.T) {
	if !NewEvent(EnvFailed, "test").IsFailure() {
		t.Error("expected env.failed to be a failure event")
	}
	if NewEvent(EnvCompleted, "test").IsFailure() {
		t.Error("expected env.completed not to be a failure event")
	}
}

func TestBus_EmitDeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []EventType
	bus.Subscribe(func(e Event) {
		got = append(got, e.Type)
	})

	bus.Emit(NewEvent(EnvStarted, "test"))
	bus.Emit(NewEvent(EnvCompleted, "test"))

	if len(got) != 2 || got[0] != EnvStarted || got[1] != EnvCompleted {
		t.Errorf("expected [env.started env.completed], got %v", got)
	}
}

func TestBus_EmitAfterClose(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(func(e Event) { called = true })
	bus.Close()

	bus.Emit(NewEvent(EnvStarted, "test"))
	if called {
		t.Error("expected no delivery after close")
	}
}
