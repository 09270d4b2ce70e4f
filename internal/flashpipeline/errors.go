package flashpipeline

import (
	"fmt"
	"strings"
)

// ToolError reports a failed external tool: it could not be started, exited
// non-zero or was killed. It is the only error kind the pipeline produces
// once a request is valid.
type ToolError struct {
	Stage    Stage
	Tool     string
	Args     []string
	ExitCode int    // -1 when the tool never ran or was killed
	Stderr   string // trimmed
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Stage, e.Tool)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

// UsageError reports a request that is missing required input. It is raised
// before any tool runs.
type UsageError struct {
	Field   string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
