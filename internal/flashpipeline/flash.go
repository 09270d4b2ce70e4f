// Package flashpipeline converts a firmware image with an external binary
// format converter and programs it onto a device with an external programmer.
//
// Both tools are black boxes: each is run once, in order, and a non-zero exit
// aborts the pipeline. Intermediate files live in a temporary directory that
// is removed on every exit path unless the caller asks to keep it.
package flashpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fwkit/internal/flashcache"
	"fwkit/internal/image"
	"fwkit/internal/trace"
)

// FlashRequest configures a flash run.
type FlashRequest struct {
	ImagePath  string
	Target     string
	Format     image.Format
	Converter  Tool
	Programmer Tool

	// TmpRoot is the parent of the scoped temp dir ("" = os.TempDir()).
	TmpRoot string
	// KeepTmp leaves the temp dir and the converted image in place.
	KeepTmp bool
	// PrintCommands writes each command line to Stdout before running it.
	PrintCommands bool
	// DryRun prints commands without running them.
	DryRun bool
	// SkipUnchanged skips programming when Cache holds the same image for Target.
	SkipUnchanged bool
	Cache         *flashcache.Cache
	// Stdout receives tool stdout and printed commands (nil discards).
	Stdout   io.Writer
	Progress ProgressSink
}

// FlashResult captures what happened.
type FlashResult struct {
	TmpDir        string // removed unless KeepTmp
	ConvertedPath string
	Image         image.Summary
	Digest        flashcache.Digest
	Skipped       bool     // programming skipped by SkipUnchanged
	Commands      []string // command lines, in order
	CacheErr      error    // cache update failed after a successful flash
	Timings       Timings
}

// Flash runs convert, inspect and program for req.
func Flash(ctx context.Context, req *FlashRequest) (result FlashResult, err error) {
	if req == nil {
		return result, &UsageError{Field: "request", Message: "missing flash request"}
	}
	reqCopy := *req
	req = &reqCopy
	if err := validate(req); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, "flash", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("target", req.Target).WithExtra("format", string(req.Format))
	defer func() {
		detail := "ok"
		switch {
		case err != nil:
			detail = err.Error()
		case result.Skipped:
			detail = "skipped"
		}
		span.End(detail)
	}()
	ctx = trace.WithSpan(ctx, span)

	if !req.DryRun {
		if err := ensureTool(StageConvert, req.Converter.Name); err != nil {
			emitStage(req.Progress, req.ImagePath, StageConvert, StatusError, err, "", 0)
			return result, err
		}
		if err := ensureTool(StageProgram, req.Programmer.Name); err != nil {
			emitStage(req.Progress, req.ImagePath, StageProgram, StatusError, err, "", 0)
			return result, err
		}
	}

	err = withTempDir(req.TmpRoot, req.KeepTmp, func(dir string) error {
		result.TmpDir = dir
		return runStages(ctx, req, dir, &result)
	})
	return result, err
}

func validate(req *FlashRequest) error {
	if strings.TrimSpace(req.ImagePath) == "" {
		return &UsageError{Field: "image", Message: "no image to flash"}
	}
	if strings.TrimSpace(req.Target) == "" {
		return &UsageError{Field: "target", Message: "no target device (set --target or [flash].target)"}
	}
	if req.Format == "" {
		req.Format = image.FormatIHex
	}
	if req.Converter.Name == "" || req.Programmer.Name == "" {
		return &UsageError{Field: "tools", Message: "converter and programmer must be set"}
	}
	info, err := os.Stat(req.ImagePath)
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if info.IsDir() {
		return &UsageError{Field: "image", Message: req.ImagePath + " is a directory"}
	}
	return nil
}

// withTempDir creates a temp dir under root, passes it to fn and removes it
// afterwards, panics included, unless keep is set.
func withTempDir(root string, keep bool, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp(root, "fwkit-flash-*")
	if err != nil {
		return fmt.Errorf("failed to create tmp dir: %w", err)
	}
	defer func() {
		if keep {
			return
		}
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to clean tmp dir: %w", rmErr)
		}
	}()
	return fn(dir)
}

func runStages(ctx context.Context, req *FlashRequest, dir string, result *FlashResult) error {
	converted := filepath.Join(dir, "image"+req.Format.Ext())
	result.ConvertedPath = converted
	vars := map[string]string{
		"format": string(req.Format),
		"input":  req.ImagePath,
		"output": converted,
		"target": req.Target,
		"image":  converted,
	}

	// convert
	start := time.Now()
	emitStage(req.Progress, req.ImagePath, StageConvert, StatusWorking, nil, req.Converter.Name, 0)
	if err := runTool(ctx, req, StageConvert, req.Converter, vars, result); err != nil {
		emitStage(req.Progress, req.ImagePath, StageConvert, StatusError, err, "", time.Since(start))
		return err
	}
	result.Timings.Set(StageConvert, time.Since(start))
	emitStage(req.Progress, req.ImagePath, StageConvert, StatusDone, nil, "", result.Timings.Duration(StageConvert))

	if req.DryRun {
		emitStage(req.Progress, req.ImagePath, StageInspect, StatusSkipped, nil, "dry run", 0)
		if err := runTool(ctx, req, StageProgram, req.Programmer, vars, result); err != nil {
			return err
		}
		emitStage(req.Progress, req.ImagePath, StageProgram, StatusSkipped, nil, "dry run", 0)
		return nil
	}

	// inspect
	start = time.Now()
	emitStage(req.Progress, req.ImagePath, StageInspect, StatusWorking, nil, "", 0)
	if err := inspect(ctx, req, converted, result); err != nil {
		emitStage(req.Progress, req.ImagePath, StageInspect, StatusError, err, "", time.Since(start))
		return err
	}
	result.Timings.Set(StageInspect, time.Since(start))
	emitStage(req.Progress, req.ImagePath, StageInspect, StatusDone, nil, result.Image.String(), result.Timings.Duration(StageInspect))

	if req.SkipUnchanged && unchanged(req, result.Digest) {
		result.Skipped = true
		emitStage(req.Progress, req.ImagePath, StageProgram, StatusSkipped, nil, "image unchanged", 0)
		return nil
	}

	// program
	start = time.Now()
	emitStage(req.Progress, req.ImagePath, StageProgram, StatusWorking, nil, req.Programmer.Name, 0)
	if err := runTool(ctx, req, StageProgram, req.Programmer, vars, result); err != nil {
		emitStage(req.Progress, req.ImagePath, StageProgram, StatusError, err, "", time.Since(start))
		return err
	}
	result.Timings.Set(StageProgram, time.Since(start))
	emitStage(req.Progress, req.ImagePath, StageProgram, StatusDone, nil, "", result.Timings.Duration(StageProgram))

	if req.Cache != nil {
		result.CacheErr = req.Cache.Put(&flashcache.Record{
			Target:    req.Target,
			Image:     req.ImagePath,
			Format:    string(req.Format),
			Digest:    result.Digest,
			Size:      result.Image.Size,
			FlashedAt: time.Now(),
		})
		if result.CacheErr != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeItem, "cache", result.CacheErr.Error(), trace.CurrentSpan(ctx).SpanID)
		}
	}
	return nil
}

func runTool(ctx context.Context, req *FlashRequest, stage Stage, tool Tool, vars map[string]string, result *FlashResult) error {
	args := expandArgs(tool.Args, vars)
	line := CommandLine(tool.Name, args)
	result.Commands = append(result.Commands, line)
	if req.PrintCommands || req.DryRun {
		if req.Stdout != nil {
			if _, err := fmt.Fprintln(req.Stdout, line); err != nil {
				return fmt.Errorf("failed to print command: %w", err)
			}
		}
	}
	if req.DryRun {
		return nil
	}
	return runCommand(ctx, stage, req.Stdout, tool.Name, args...)
}

func inspect(ctx context.Context, req *FlashRequest, converted string, result *FlashResult) error {
	sum, err := image.Inspect(converted, req.Format)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("inspect: converter produced no output at %s", converted)
		}
		return fmt.Errorf("inspect: %w", err)
	}
	result.Image = sum

	digest, _, err := flashcache.HashFile(converted)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	result.Digest = digest

	trace.Point(trace.FromContext(ctx), trace.ScopeItem, "image", sum.String(), trace.CurrentSpan(ctx).SpanID)
	return nil
}

func unchanged(req *FlashRequest, digest flashcache.Digest) bool {
	if req.Cache == nil {
		return false
	}
	rec, ok, err := req.Cache.Get(req.Target)
	if err != nil || !ok {
		return false
	}
	return rec.Digest == digest && rec.Format == string(req.Format)
}

// Summary renders a short human-readable description of a finished run.
func (r FlashResult) Summary(target string) string {
	if r.Skipped {
		return "skipped " + target + ": image unchanged"
	}
	total := r.Timings.Sum(Stages...)
	return "flashed " + target + " (" + r.Image.String() + ", " + strconv.FormatFloat(float64(total)/float64(time.Millisecond), 'f', 1, 64) + " ms)"
}
