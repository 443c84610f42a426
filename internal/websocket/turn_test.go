package websocket

import (
	"reflect"
	"testing"
)

func TestTurnMachine_Lifecycle(t *testing.T) {
	var m TurnMachine

	if m.State() != TurnIdle {
		t.Fatalf("Expected idle, got %s", m.State())
	}

	m.AddOutput("Hi")
	if m.State() != TurnActive {
		t.Errorf("Expected active after content, got %s", m.State())
	}

	if !m.Interrupt() {
		t.Error("First interruption should notify")
	}
	if m.Interrupt() {
		t.Error("Second interruption in the same turn should not notify")
	}

	m.AddOutput("more")
	if m.State() != TurnInterrupted {
		t.Errorf("Content after interruption must keep state interrupted, got %s", m.State())
	}

	notify, summary := m.Complete()
	if notify {
		t.Error("Interrupted turn should not notify completion")
	}
	if !summary.Interrupted {
		t.Error("Summary should record the interruption")
	}
	if m.State() != TurnIdle {
		t.Errorf("Expected idle after completion, got %s", m.State())
	}
	if acc := m.Accumulator(); len(acc.Inputs) != 0 || len(acc.Outputs) != 0 {
		t.Errorf("Accumulator not reset: %+v", acc)
	}
}

func TestTurnMachine_CompleteDeduplicates(t *testing.T) {
	var m TurnMachine
	m.AddInput("hello")
	m.AddInput("hello")
	m.AddInput("there")
	m.AddOutput("Hi")
	m.AddOutput("Hi there!")
	m.AddOutput("Hi")

	notify, summary := m.Complete()
	if !notify {
		t.Error("Uninterrupted turn should notify completion")
	}
	if !reflect.DeepEqual(summary.Inputs, []string{"hello", "there"}) {
		t.Errorf("Unexpected inputs %v", summary.Inputs)
	}
	if !reflect.DeepEqual(summary.Outputs, []string{"Hi", "Hi there!"}) {
		t.Errorf("Unexpected outputs %v", summary.Outputs)
	}
	if summary.InputTranscript() != "hello there" {
		t.Errorf("Unexpected transcript %q", summary.InputTranscript())
	}
}

func TestTurnMachine_InterruptFromIdle(t *testing.T) {
	var m TurnMachine
	if !m.Interrupt() {
		t.Error("Interruption with no content yet should still notify")
	}
	if m.State() != TurnInterrupted {
		t.Errorf("Expected interrupted, got %s", m.State())
	}
}

func TestUniqueInOrder(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{"a"}, []string{"a"}},
		{[]string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		if got := uniqueInOrder(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("uniqueInOrder(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
