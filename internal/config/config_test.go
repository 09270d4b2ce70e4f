package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", FileName, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `[flash]
target = "nrf52840"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Flash.Target != "nrf52840" {
		t.Fatalf("Target = %q, want nrf52840", cfg.Flash.Target)
	}
	if cfg.Flash.Converter != DefaultConverter || cfg.Flash.Programmer != DefaultProgrammer {
		t.Fatalf("tools = %q/%q, want defaults", cfg.Flash.Converter, cfg.Flash.Programmer)
	}
	if cfg.Reflow.IndentWidth != 2 || cfg.Reflow.Suffix != DefaultSuffix {
		t.Fatalf("reflow = %+v, want defaults", cfg.Reflow)
	}
	if !slices.Equal(cfg.Flash.ProgrammerArgs, DefaultProgrammerArgs()) {
		t.Fatalf("ProgrammerArgs = %v", cfg.Flash.ProgrammerArgs)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `[reflow]
indent_width = 4
suffix = ".fmt"
nfc = true

[flash]
format = "BINARY"
programmer = "probe-rs"
programmer_args = ["download", "--chip", "{target}", "--binary-format", "bin", "{image}"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reflow.IndentWidth != 4 || cfg.Reflow.Suffix != ".fmt" || !cfg.Reflow.NFC {
		t.Fatalf("reflow = %+v", cfg.Reflow)
	}
	if cfg.Flash.Format != "binary" {
		t.Fatalf("Format = %q, want binary", cfg.Flash.Format)
	}
	if cfg.Flash.Programmer != "probe-rs" || len(cfg.Flash.ProgrammerArgs) != 6 {
		t.Fatalf("programmer = %q %v", cfg.Flash.Programmer, cfg.Flash.ProgrammerArgs)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"zero indent", "[reflow]\nindent_width = 0\n", ErrInvalidIndentWidth},
		{"bad format", "[flash]\nformat = \"elf\"\n", ErrInvalidFormat},
		{"empty converter", "[flash]\nconverter = \"\"\n", ErrEmptyTool},
		{"empty programmer", "[flash]\nprogrammer = \" \"\n", ErrEmptyTool},
		{"no output placeholder", "[flash]\nconverter_args = [\"{input}\"]\n", ErrMissingPlaceholder},
		{"no image placeholder", "[flash]\nprogrammer_args = [\"flash\"]\n", ErrMissingPlaceholder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.data)
			_, err := Load(path)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Load error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[flash]\nchip = \"x\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown key flash.chip") {
		t.Fatalf("Load error = %v, want unknown key", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[flash\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "failed to parse TOML") {
		t.Fatalf("Load error = %v, want parse failure", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[flash]\ntarget = \"rp2040\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	file, found, err := Discover(nested, "")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !found {
		t.Fatalf("expected %s to be found", FileName)
	}
	if file.Config.Flash.Target != "rp2040" {
		t.Fatalf("Target = %q, want rp2040", file.Config.Flash.Target)
	}
	wantRoot, _ := filepath.Abs(root)
	if file.Root != wantRoot {
		t.Fatalf("Root = %q, want %q", file.Root, wantRoot)
	}
}

func TestDiscoverExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[reflow]\nsuffix = \".x\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, found, err := Discover(t.TempDir(), path)
	if err != nil || !found {
		t.Fatalf("Discover = %v, %v", found, err)
	}
	if file.Config.Reflow.Suffix != ".x" {
		t.Fatalf("Suffix = %q", file.Config.Reflow.Suffix)
	}

	if _, _, err := Discover("", filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	path := writeConfig(t, t.TempDir(), Template("samd21"))
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(Template): %v", err)
	}
	def := Default()
	def.Flash.Target = "samd21"
	if cfg.Flash.Target != def.Flash.Target || cfg.Flash.Format != def.Flash.Format {
		t.Fatalf("flash = %+v", cfg.Flash)
	}
	if !slices.Equal(cfg.Flash.ConverterArgs, def.Flash.ConverterArgs) {
		t.Fatalf("ConverterArgs = %v", cfg.Flash.ConverterArgs)
	}
}
