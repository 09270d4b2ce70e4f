// Package config loads fwkit.toml, the per-project settings shared by the
// reflow and flash commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project settings file.
const FileName = "fwkit.toml"

// Built-in defaults, used for any key the settings file leaves out.
const (
	DefaultSuffix     = ".pretty"
	DefaultFormat     = "ihex"
	DefaultConverter  = "arm-none-eabi-objcopy"
	DefaultProgrammer = "pyocd"
)

// Formats lists the output format selectors the converter is asked for.
var Formats = []string{"ihex", "binary", "srec"}

var (
	// ErrInvalidIndentWidth indicates a non-positive [reflow].indent_width.
	ErrInvalidIndentWidth = errors.New("[reflow].indent_width must be positive")
	// ErrInvalidFormat indicates an unknown [flash].format.
	ErrInvalidFormat = errors.New("[flash].format must be one of ihex|binary|srec")
	// ErrEmptyTool indicates an explicitly empty converter or programmer.
	ErrEmptyTool = errors.New("tool name must not be empty")
	// ErrMissingPlaceholder indicates an argument template without a required placeholder.
	ErrMissingPlaceholder = errors.New("argument template is missing a placeholder")
)

// Config is the decoded settings file.
type Config struct {
	Reflow ReflowConfig `toml:"reflow"`
	Flash  FlashConfig  `toml:"flash"`
}

// ReflowConfig holds [reflow].
type ReflowConfig struct {
	IndentWidth int    `toml:"indent_width"`
	Suffix      string `toml:"suffix"`
	NFC         bool   `toml:"nfc"`
}

// FlashConfig holds [flash]. Argument templates may reference {format},
// {input}, {output}, {target} and {image}.
type FlashConfig struct {
	Target         string   `toml:"target"`
	Format         string   `toml:"format"`
	Converter      string   `toml:"converter"`
	ConverterArgs  []string `toml:"converter_args"`
	Programmer     string   `toml:"programmer"`
	ProgrammerArgs []string `toml:"programmer_args"`
}

// File is a settings file located on disk.
type File struct {
	Path   string
	Root   string
	Config Config
}

// DefaultConverterArgs returns the objcopy-style converter template.
func DefaultConverterArgs() []string {
	return []string{"-O", "{format}", "{input}", "{output}"}
}

// DefaultProgrammerArgs returns the pyocd-style programmer template.
func DefaultProgrammerArgs() []string {
	return []string{"flash", "--target", "{target}", "{image}"}
}

// Default returns the settings used when no fwkit.toml exists.
func Default() Config {
	return Config{
		Reflow: ReflowConfig{
			IndentWidth: 2,
			Suffix:      DefaultSuffix,
		},
		Flash: FlashConfig{
			Format:         DefaultFormat,
			Converter:      DefaultConverter,
			ConverterArgs:  DefaultConverterArgs(),
			Programmer:     DefaultProgrammer,
			ProgrammerArgs: DefaultProgrammerArgs(),
		},
	}
}

// Find walks up from startDir looking for fwkit.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads explicitPath when set, otherwise the nearest fwkit.toml
// above startDir. The boolean reports whether a file was found; when it is
// false the returned File carries Default().
func Discover(startDir, explicitPath string) (*File, bool, error) {
	path := explicitPath
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return &File{Config: Default()}, false, nil
		}
		path = found
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return &File{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// Load decodes path on top of Default() and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("reflow", "indent_width") && cfg.Reflow.IndentWidth <= 0 {
		return Config{}, fmt.Errorf("%s: %w", path, ErrInvalidIndentWidth)
	}
	cfg.Flash.Format = strings.ToLower(strings.TrimSpace(cfg.Flash.Format))
	if !slices.Contains(Formats, cfg.Flash.Format) {
		return Config{}, fmt.Errorf("%s: %w (got %q)", path, ErrInvalidFormat, cfg.Flash.Format)
	}
	if strings.TrimSpace(cfg.Flash.Converter) == "" {
		return Config{}, fmt.Errorf("%s: [flash].converter: %w", path, ErrEmptyTool)
	}
	if strings.TrimSpace(cfg.Flash.Programmer) == "" {
		return Config{}, fmt.Errorf("%s: [flash].programmer: %w", path, ErrEmptyTool)
	}
	if err := requirePlaceholders(cfg.Flash.ConverterArgs, "{input}", "{output}"); err != nil {
		return Config{}, fmt.Errorf("%s: [flash].converter_args: %w", path, err)
	}
	if err := requirePlaceholders(cfg.Flash.ProgrammerArgs, "{image}"); err != nil {
		return Config{}, fmt.Errorf("%s: [flash].programmer_args: %w", path, err)
	}
	return cfg, nil
}

func requirePlaceholders(args []string, placeholders ...string) error {
	joined := strings.Join(args, " ")
	for _, p := range placeholders {
		if !strings.Contains(joined, p) {
			return fmt.Errorf("%w %s", ErrMissingPlaceholder, p)
		}
	}
	return nil
}

// Template returns the commented settings file written by `fwkit init`.
func Template(target string) string {
	if target == "" {
		target = "stm32f411re"
	}
	return fmt.Sprintf(`# fwkit settings
[reflow]
# spaces per nesting level
indent_width = 2
# inserted before the extension of the output file: dump.txt -> dump.pretty.txt
suffix = %q
nfc = false

[flash]
target = %q
format = %q
converter = %q
converter_args = ["-O", "{format}", "{input}", "{output}"]
programmer = %q
programmer_args = ["flash", "--target", "{target}", "{image}"]
`, DefaultSuffix, target, DefaultFormat, DefaultConverter, DefaultProgrammer)
}
