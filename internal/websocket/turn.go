package websocket

import "strings"

// TurnState is the per-connection turn lifecycle
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnActive
	TurnInterrupted
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnActive:
		return "active"
	case TurnInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// TurnAccumulator collects the text fragments seen during one turn
type TurnAccumulator struct {
	Inputs  []string
	Outputs []string
}

// TurnSummary is what remains of a turn once it completes
type TurnSummary struct {
	Inputs      []string
	Outputs     []string
	Interrupted bool
}

// InputTranscript joins the unique input fragments
func (s TurnSummary) InputTranscript() string {
	return strings.Join(s.Inputs, " ")
}

// OutputTranscript joins the unique output fragments
func (s TurnSummary) OutputTranscript() string {
	return strings.Join(s.Outputs, " ")
}

// TurnMachine tracks interruption and completion for one connection.
// It is owned by a single demultiplexer and needs no locking.
type TurnMachine struct {
	state TurnState
	acc   TurnAccumulator
}

// State returns the current turn state
func (m *TurnMachine) State() TurnState {
	return m.state
}

// Accumulator returns the fragments gathered so far in this turn
func (m *TurnMachine) Accumulator() TurnAccumulator {
	return m.acc
}

func (m *TurnMachine) activate() {
	if m.state == TurnIdle {
		m.state = TurnActive
	}
}

// AddInput records transcribed client speech
func (m *TurnMachine) AddInput(text string) {
	m.activate()
	m.acc.Inputs = append(m.acc.Inputs, text)
}

// AddOutput records assistant text, partial or final
func (m *TurnMachine) AddOutput(text string) {
	m.activate()
	m.acc.Outputs = append(m.acc.Outputs, text)
}

// MarkContent notes non-text content (audio) for the current turn
func (m *TurnMachine) MarkContent() {
	m.activate()
}

// Interrupt moves to INTERRUPTED and reports whether the client should be
// told. Only the first interruption of a turn is reported.
func (m *TurnMachine) Interrupt() bool {
	if m.state == TurnInterrupted {
		return false
	}
	m.state = TurnInterrupted
	return true
}

// Complete ends the turn. notify is false when the turn was interrupted.
// The accumulator and state are reset to IDLE.
func (m *TurnMachine) Complete() (notify bool, summary TurnSummary) {
	interrupted := m.state == TurnInterrupted
	summary = TurnSummary{
		Inputs:      uniqueInOrder(m.acc.Inputs),
		Outputs:     uniqueInOrder(m.acc.Outputs),
		Interrupted: interrupted,
	}
	m.state = TurnIdle
	m.acc = TurnAccumulator{}
	return !interrupted, summary
}

// uniqueInOrder drops repeated fragments keeping first occurrences
func uniqueInOrder(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
