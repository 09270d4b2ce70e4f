package flashpipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"fwkit/internal/trace"
)

// Tool is an external command and its argument template. Arguments may use
// {format}, {input}, {output}, {target} and {image}.
type Tool struct {
	Name string
	Args []string
}

func expandArgs(template []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = r.Replace(arg)
	}
	return out
}

// ensureTool checks that name resolves to an executable.
func ensureTool(stage Stage, name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return &ToolError{Stage: stage, Tool: name, ExitCode: -1, Err: err}
	}
	return nil
}

// CommandLine renders name and args the way a shell user would type them.
func CommandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{name}, args...) {
		if s == "" || strings.ContainsAny(s, " \t\"'\\$") {
			s = strconv.Quote(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// runCommand runs name with args. stderr is captured for the error and the
// trace; stdout goes to stdout (io.Discard when nil).
func runCommand(ctx context.Context, stage Stage, stdout io.Writer, name string, args ...string) error {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeItem, string(stage)+":"+name, trace.CurrentSpan(ctx).SpanID)

	if stdout == nil {
		stdout = io.Discard
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	scanner := bufio.NewScanner(bytes.NewReader(stderr.Bytes()))
	for scanner.Scan() {
		trace.Point(tracer, trace.ScopeOutput, name, scanner.Text(), span.ID())
	}

	if runErr == nil {
		span.End("ok")
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.End(ctxErr.Error())
		return ctxErr
	}

	toolErr := &ToolError{
		Stage:    stage,
		Tool:     name,
		Args:     args,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      runErr,
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	span.End(fmt.Sprintf("exit %d", toolErr.ExitCode))
	return toolErr
}
