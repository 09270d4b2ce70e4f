package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fwkit/internal/flashpipeline"
	"fwkit/internal/ui"
)

type flashOutcome struct {
	result flashpipeline.FlashResult
	err    error
}

// runFlashWithUI runs the pipeline in the background and renders its events
// until the pipeline closes the channel.
func runFlashWithUI(ctx context.Context, title string, req *flashpipeline.FlashRequest) (flashpipeline.FlashResult, error) {
	if req == nil {
		return flashpipeline.FlashResult{}, fmt.Errorf("missing flash request")
	}
	events := make(chan flashpipeline.Event, 64)
	outcomeCh := make(chan flashOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = flashpipeline.ChannelSink{Ch: events}
		res, err := flashpipeline.Flash(ctx, &reqCopy)
		outcomeCh <- flashOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
