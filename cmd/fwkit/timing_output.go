package main

import (
	"fmt"
	"io"

	"fwkit/internal/flashpipeline"
	"fwkit/internal/observ"
)

func printStageTimings(out io.Writer, timings flashpipeline.Timings) {
	if out == nil {
		return
	}
	labels := map[flashpipeline.Stage]string{
		flashpipeline.StageConvert: "converted",
		flashpipeline.StageInspect: "inspected",
		flashpipeline.StageProgram: "programmed",
	}
	for _, stage := range flashpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		_, printErr := fmt.Fprintf(out, "%s %.1f ms\n", labels[stage], observ.Millis(timings.Duration(stage)))
		if printErr != nil {
			panic(printErr)
		}
	}
}
