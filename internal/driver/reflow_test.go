package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fwkit/internal/reflow"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestOutputPath(t *testing.T) {
	sep := string(filepath.Separator)
	cases := []struct {
		in, suffix, want string
	}{
		{"expanded.rs", ".pretty", "expanded.pretty.rs"},
		{"dump", ".pretty", "dump.pretty"},
		{"dir" + sep + "tokens.txt", ".fmt", "dir" + sep + "tokens.fmt.txt"},
		{".dump", ".pretty", ".dump.pretty"},
		{"dir" + sep + ".dump", ".pretty", "dir" + sep + ".dump.pretty"},
	}
	for _, tc := range cases {
		if got := OutputPath(tc.in, tc.suffix); got != tc.want {
			t.Fatalf("OutputPath(%q, %q) = %q, want %q", tc.in, tc.suffix, got, tc.want)
		}
	}
}

func TestReflowPathsWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "expanded.rs")
	writeFile(t, in, "App { a: 1, b: [2, 3] }\nsecond line is ignored\n")

	results, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("result error: %v", res.Err)
	}
	if !res.Changed {
		t.Fatalf("expected Changed for a fresh output")
	}
	wantOut := filepath.Join(dir, "expanded.pretty.rs")
	if res.Output != wantOut {
		t.Fatalf("Output = %q, want %q", res.Output, wantOut)
	}
	want := "App {\n  a: 1,\n  b: [\n    2,\n    3] }\n"
	if got := readFile(t, wantOut); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if got := readFile(t, in); got != "App { a: 1, b: [2, 3] }\nsecond line is ignored\n" {
		t.Fatalf("input was modified: %q", got)
	}

	again, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{})
	if err != nil {
		t.Fatalf("second ReflowPaths: %v", err)
	}
	if again[0].Changed {
		t.Fatalf("expected no change on second run against the same input")
	}
}

func TestReflowPathsCheck(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dump.txt")
	writeFile(t, in, "{a}")

	results, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{Check: true})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if !results[0].Changed {
		t.Fatalf("expected Changed when output is missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "dump.pretty.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("check mode must not write output, stat err = %v", err)
	}

	writeFile(t, filepath.Join(dir, "dump.pretty.txt"), "{\n  a}")
	results, err = ReflowPaths(context.Background(), []string{in}, ReflowOptions{Check: true})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if results[0].Changed {
		t.Fatalf("expected up-to-date output to be unchanged")
	}
}

func TestReflowPathsStdoutAndOptions(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dump")
	// "e" followed by a combining acute accent composes to one rune under NFC.
	writeFile(t, in, "{cafe\u0301,x}")

	results, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{
		Stdout:       true,
		NormalizeNFC: true,
		Reflow:       reflow.Options{IndentWidth: 4},
	})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	res := results[0]
	if res.Output != "" {
		t.Fatalf("stdout mode should not name an output, got %q", res.Output)
	}
	if want := "{\n    caf\u00e9,\n    x}"; string(res.Formatted) != want {
		t.Fatalf("Formatted = %q, want %q", res.Formatted, want)
	}
	if _, err := os.Stat(OutputPath(in, ".pretty")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stdout mode must not write output")
	}
}

func TestReflowPathsExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out", "result.txt")
	writeFile(t, in, "[1,2]")
	writeFile(t, out, "stale content that is fully replaced")
	if err := os.Chmod(out, 0o640); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	results, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{Output: out})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("result error: %v", results[0].Err)
	}
	if got := readFile(t, out); got != "[\n  1,\n  2]" {
		t.Fatalf("output = %q", got)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %v, want 0640 preserved", info.Mode().Perm())
	}

	other := filepath.Join(dir, "other.txt")
	writeFile(t, other, "x")
	if _, err := ReflowPaths(context.Background(), []string{in, other}, ReflowOptions{Output: out}); !errors.Is(err, ErrOutputWithMany) {
		t.Fatalf("error = %v, want ErrOutputWithMany", err)
	}
}

func TestReflowPathsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "{a}")
	writeFile(t, filepath.Join(dir, "nested", "b.txt"), "[b]")
	writeFile(t, filepath.Join(dir, "a.pretty.txt"), "previous output")
	writeFile(t, filepath.Join(dir, ".hidden"), "{h}")
	writeFile(t, filepath.Join(dir, ".git", "config"), "{g}")

	results, err := ReflowPaths(context.Background(), []string{dir, filepath.Join(dir, "a.txt")}, ReflowOptions{Jobs: 2})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Path != filepath.Join(dir, "a.txt") || results[1].Path != filepath.Join(dir, "nested", "b.txt") {
		t.Fatalf("unexpected paths: %q, %q", results[0].Path, results[1].Path)
	}
	if got := readFile(t, filepath.Join(dir, "nested", "b.pretty.txt")); got != "[\n  b]" {
		t.Fatalf("nested output = %q", got)
	}
}

func TestReflowPathsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.txt")
	writeFile(t, in, "")

	results, err := ReflowPaths(context.Background(), []string{in}, ReflowOptions{})
	if err != nil {
		t.Fatalf("ReflowPaths: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("empty input must not fail: %v", results[0].Err)
	}
	if got := readFile(t, filepath.Join(dir, "empty.pretty.txt")); got != "" {
		t.Fatalf("output = %q, want empty", got)
	}
}

func TestReflowPathsErrors(t *testing.T) {
	if _, err := ReflowPaths(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, ReflowOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
	if _, err := ReflowPaths(context.Background(), []string{t.TempDir()}, ReflowOptions{}); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("error = %v, want ErrNoInputs", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReflowPaths(ctx, []string{"x"}, ReflowOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
