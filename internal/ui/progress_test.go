package ui

import (
	"errors"
	"strings"
	"testing"

	"fwkit/internal/flashpipeline"
)

func TestApplyEventTracksStages(t *testing.T) {
	m := NewProgressModel("flash app.elf", nil).(*progressModel)

	m.applyEvent(flashpipeline.Event{Stage: flashpipeline.StageConvert, Status: flashpipeline.StatusDone})
	m.applyEvent(flashpipeline.Event{Stage: flashpipeline.StageInspect, Status: flashpipeline.StatusWorking, Detail: "6 bytes"})
	if got := m.percent(); got != 0.5 {
		t.Fatalf("percent = %v, want 0.5", got)
	}
	if m.items[1].detail != "6 bytes" {
		t.Fatalf("detail = %q", m.items[1].detail)
	}

	m.applyEvent(flashpipeline.Event{Stage: flashpipeline.StageInspect, Status: flashpipeline.StatusError, Err: errors.New("image contains no data")})
	if !m.failed {
		t.Fatalf("expected failed state")
	}
	m.applyEvent(flashpipeline.Event{Stage: "unknown", Status: flashpipeline.StatusDone})

	m.done = true
	view := m.View()
	for _, want := range []string{"failed: flash app.elf", "convert", "image contains no data", "queued"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUpdateQuitsWhenEventsClose(t *testing.T) {
	events := make(chan flashpipeline.Event)
	close(events)
	m := NewProgressModel("flash", events).(*progressModel)

	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("msg = %T, want doneMsg", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil || !m.done {
		t.Fatalf("expected quit command and done state")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a-rather-long-path.elf", 10, "a-rathe..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
