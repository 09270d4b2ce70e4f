package flashpipeline

import "time"

// Stage describes a pipeline phase.
type Stage string

const (
	// StageConvert runs the binary format converter.
	StageConvert Stage = "convert"
	// StageInspect summarises the converted image.
	StageInspect Stage = "inspect"
	// StageProgram runs the device programmer.
	StageProgram Stage = "program"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageConvert, StageInspect, StageProgram}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the stage has not started.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusSkipped indicates the stage was not needed.
	StatusSkipped Status = "skipped"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress of a stage for the image being flashed.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Detail  string
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent sends evt on the channel; a nil channel drops it.
func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

// OnEvent calls f.
func (f FuncSink) OnEvent(evt Event) { f(evt) }

func emitStage(sink ProgressSink, file string, stage Stage, status Status, err error, detail string, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Detail: detail, Elapsed: elapsed})
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the total across stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
