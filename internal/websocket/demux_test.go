package websocket

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

func newTestDemux() (*Demultiplexer, *recordingSender) {
	out := &recordingSender{}
	return NewDemultiplexer(newFakeSession(false), out, zap.NewNop()), out
}

func assistantText(text string, partial bool) repositories.ContentPart {
	return repositories.ContentPart{Role: repositories.AssistantRole, Text: text, Partial: partial}
}

func TestDemultiplexer_UserTextNotEmitted(t *testing.T) {
	d, out := newTestDemux()

	err := d.Handle(&repositories.BackendEvent{
		Parts: []repositories.ContentPart{{Role: repositories.UserRole, Text: "what is my order status", Partial: true}},
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(out.messages()) != 0 {
		t.Errorf("User text must not reach the client, got %v", out.messages())
	}
	if got := d.turn.Accumulator().Inputs; !reflect.DeepEqual(got, []string{"what is my order status"}) {
		t.Errorf("User text should be accumulated, got %v", got)
	}
}

func TestDemultiplexer_PartialAndFinalText(t *testing.T) {
	d, out := newTestDemux()

	if err := d.Handle(&repositories.BackendEvent{Parts: []repositories.ContentPart{assistantText("Hello!", false)}}); err != nil {
		t.Fatal(err)
	}
	if len(out.messages()) != 0 {
		t.Fatalf("Final text must be suppressed, got %v", out.messages())
	}

	if err := d.Handle(&repositories.BackendEvent{Parts: []repositories.ContentPart{assistantText("Hello!", true)}}); err != nil {
		t.Fatal(err)
	}
	want := []domain.WireMessage{domain.TextMessage("Hello!")}
	if !reflect.DeepEqual(out.messages(), want) {
		t.Errorf("Expected %v, got %v", want, out.messages())
	}
	if got := d.turn.Accumulator().Outputs; len(got) != 2 {
		t.Errorf("Both partial and final should be accumulated, got %v", got)
	}
}

func TestDemultiplexer_AudioPassesThrough(t *testing.T) {
	d, out := newTestDemux()

	audio := []byte{0x10, 0x20, 0x30}
	err := d.Handle(&repositories.BackendEvent{
		Parts: []repositories.ContentPart{
			{Role: repositories.AssistantRole, Audio: audio},
			{Role: repositories.AssistantRole, Audio: audio},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.WireMessage{domain.AudioMessage(audio), domain.AudioMessage(audio)}
	if !reflect.DeepEqual(out.messages(), want) {
		t.Errorf("Audio must never be deduplicated: expected %v, got %v", want, out.messages())
	}
	if d.State() != TurnActive {
		t.Errorf("Expected active turn after audio, got %s", d.State())
	}
}

// Three partials then a final duplicate with turn_complete.
func TestDemultiplexer_StreamedTurn(t *testing.T) {
	d, out := newTestDemux()

	events := []*repositories.BackendEvent{
		{Parts: []repositories.ContentPart{assistantText("Hi", true)}},
		{Parts: []repositories.ContentPart{assistantText("Hi there", true)}},
		{Parts: []repositories.ContentPart{assistantText("Hi there!", true)}},
		{Parts: []repositories.ContentPart{assistantText("Hi there!", false)}, TurnComplete: true},
	}
	for _, ev := range events {
		if err := d.Handle(ev); err != nil {
			t.Fatal(err)
		}
	}

	want := []domain.WireMessage{
		domain.TextMessage("Hi"),
		domain.TextMessage("Hi there"),
		domain.TextMessage("Hi there!"),
		domain.TurnCompleteMessage(),
	}
	if !reflect.DeepEqual(out.messages(), want) {
		t.Errorf("Expected %v, got %v", want, out.messages())
	}
}

func TestDemultiplexer_InterruptionIdempotent(t *testing.T) {
	d, out := newTestDemux()

	for _, ev := range []*repositories.BackendEvent{
		{Interrupted: true},
		{Interrupted: true},
		{TurnComplete: true},
	} {
		if err := d.Handle(ev); err != nil {
			t.Fatal(err)
		}
	}

	want := []domain.MessageType{domain.MessageTypeInterrupted}
	if !reflect.DeepEqual(out.types(), want) {
		t.Errorf("Expected exactly one interrupted and no turn_complete, got %v", out.types())
	}
	if d.State() != TurnIdle {
		t.Errorf("Expected idle after turn_complete, got %s", d.State())
	}
}

func TestDemultiplexer_TurnReset(t *testing.T) {
	d, out := newTestDemux()

	_ = d.Handle(&repositories.BackendEvent{
		Parts:       []repositories.ContentPart{assistantText("first", true)},
		Interrupted: true,
	})
	_ = d.Handle(&repositories.BackendEvent{TurnComplete: true})

	if d.State() != TurnIdle {
		t.Fatalf("Expected idle, got %s", d.State())
	}
	if acc := d.turn.Accumulator(); len(acc.Inputs) != 0 || len(acc.Outputs) != 0 {
		t.Fatalf("Accumulator should be empty after turn_complete, got %+v", acc)
	}

	_ = d.Handle(&repositories.BackendEvent{Parts: []repositories.ContentPart{assistantText("second", true)}})
	if acc := d.turn.Accumulator(); !reflect.DeepEqual(acc.Outputs, []string{"second"}) {
		t.Errorf("New turn should start fresh, got %v", acc.Outputs)
	}

	// A new turn may be interrupted again.
	_ = d.Handle(&repositories.BackendEvent{Interrupted: true})
	want := []domain.MessageType{
		domain.MessageTypeText, domain.MessageTypeInterrupted,
		domain.MessageTypeText, domain.MessageTypeInterrupted,
	}
	if !reflect.DeepEqual(out.types(), want) {
		t.Errorf("Expected %v, got %v", want, out.types())
	}
}

// A turn that only ever carries a non-partial chunk reaches the client with no text.
func TestDemultiplexer_FinalOnlyTurnSendsNoText(t *testing.T) {
	d, out := newTestDemux()

	_ = d.Handle(&repositories.BackendEvent{
		Parts:        []repositories.ContentPart{assistantText("Only final", false)},
		TurnComplete: true,
	})

	want := []domain.MessageType{domain.MessageTypeTurnComplete}
	if !reflect.DeepEqual(out.types(), want) {
		t.Errorf("Expected only turn_complete, got %v", out.types())
	}
}

func TestDemultiplexer_MalformedEventSkipped(t *testing.T) {
	d, out := newTestDemux()

	for _, ev := range []*repositories.BackendEvent{
		nil,
		{},
		{Parts: []repositories.ContentPart{{Role: repositories.AssistantRole}}},
	} {
		if err := d.Handle(ev); err != nil {
			t.Errorf("Malformed event should be skipped, got %v", err)
		}
	}
	if len(out.messages()) != 0 {
		t.Errorf("Malformed events should emit nothing, got %v", out.messages())
	}
}

func TestDemultiplexer_EmptyPartKeepsEvent(t *testing.T) {
	d, out := newTestDemux()

	if err := d.Handle(&repositories.BackendEvent{Parts: []repositories.ContentPart{assistantText("Hi", true)}}); err != nil {
		t.Fatal(err)
	}
	err := d.Handle(&repositories.BackendEvent{
		Parts: []repositories.ContentPart{
			{Role: repositories.AssistantRole, Audio: []byte{1, 2}},
			{Role: repositories.AssistantRole},
		},
		TurnComplete: true,
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	want := []domain.WireMessage{
		domain.TextMessage("Hi"),
		domain.AudioMessage([]byte{1, 2}),
		domain.TurnCompleteMessage(),
	}
	if got := out.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if d.State() != TurnIdle {
		t.Errorf("Expected IDLE after turn completion, got %s", d.State())
	}
	if acc := d.turn.Accumulator(); len(acc.Outputs) != 0 || len(acc.Inputs) != 0 {
		t.Errorf("Accumulator should be reset, got %+v", acc)
	}
}

func TestDemultiplexer_RunStreamEnd(t *testing.T) {
	session := newFakeSession(false)
	out := &recordingSender{}
	d := NewDemultiplexer(session, out, zap.NewNop())

	session.events <- &repositories.BackendEvent{Parts: []repositories.ContentPart{assistantText("Hi", true)}}
	close(session.events)

	err := d.Run(context.Background())
	if !errors.Is(err, errBackendStreamEnded) {
		t.Errorf("Expected errBackendStreamEnded, got %v", err)
	}
	if len(out.messages()) != 1 {
		t.Errorf("Expected the event before the end to be delivered, got %v", out.messages())
	}
}

func TestDemultiplexer_RunStopsOnCancel(t *testing.T) {
	d, _ := newTestDemux()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestDemultiplexer_SendFailureIsFatal(t *testing.T) {
	session := newFakeSession(false)
	out := &recordingSender{err: errors.New("broken pipe")}
	d := NewDemultiplexer(session, out, zap.NewNop())

	session.events <- &repositories.BackendEvent{Interrupted: true}

	if err := d.Run(context.Background()); err == nil {
		t.Error("Expected client write failure to end the demultiplexer")
	}
}
