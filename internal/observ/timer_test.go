package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	collect := tm.Begin("collect")
	tm.End(collect, "")
	run := tm.Begin("reflow")
	time.Sleep(2 * time.Millisecond)
	tm.End(run, "3 files")
	tm.End(42, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(report.Phases))
	}
	if report.Phases[1].Name != "reflow" || report.Phases[1].Note != "3 files" {
		t.Fatalf("phase = %+v", report.Phases[1])
	}
	if report.Phases[1].DurationMS < 2 {
		t.Fatalf("reflow duration = %.3f ms, want >= 2", report.Phases[1].DurationMS)
	}
	if report.TotalMS < report.Phases[1].DurationMS {
		t.Fatalf("total %.3f < phase %.3f", report.TotalMS, report.Phases[1].DurationMS)
	}

	summary := tm.Summary()
	for _, want := range []string{"timings:", "collect", "reflow", "// 3 files", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || len(r.Phases) != 0 {
		t.Fatalf("empty report = %+v", r)
	}
	if got := Millis(1500 * time.Microsecond); got != 1.5 {
		t.Fatalf("Millis = %v, want 1.5", got)
	}
}
