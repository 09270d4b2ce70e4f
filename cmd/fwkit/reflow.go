package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fwkit/internal/driver"
	"fwkit/internal/observ"
	"fwkit/internal/reflow"
)

var reflowCmd = &cobra.Command{
	Use:   "reflow [flags] <path> [path...]",
	Short: "Re-indent the first line of token dump files",
	Long: `Reflow reads the first line of each input, breaks it after every ','
and open bracket, indents by nesting depth and writes the result next to the
input (expanded.rs -> expanded.pretty.rs). Directories are walked recursively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReflow,
}

func init() {
	reflowCmd.Flags().Bool("check", false, "report outputs that are missing or stale without writing")
	reflowCmd.Flags().Bool("stdout", false, "print reflowed text to stdout instead of writing files")
	reflowCmd.Flags().StringP("output", "o", "", "write the result to this path (single input only)")
	reflowCmd.Flags().String("suffix", "", "suffix inserted before the extension of output files")
	reflowCmd.Flags().Int("indent", 0, "spaces per nesting level")
	reflowCmd.Flags().Int("jobs", 0, "max files processed in parallel (0=auto)")
	reflowCmd.Flags().Bool("nfc", false, "apply Unicode NFC normalization before reflowing")
	reflowCmd.Flags().String("format", "text", "output format (text|json)")
}

func runReflow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	timer := observ.NewTimer()
	configPhase := timer.Begin("config")

	opts, outputFormat, err := reflowOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	quiet := isQuiet(cmd)
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	timer.End(configPhase, "")

	reflowPhase := timer.Begin("reflow")
	results, err := driver.ReflowPaths(cmd.Context(), args, opts)
	timer.End(reflowPhase, fmt.Sprintf("%d files", len(results)))
	if err != nil {
		return fmt.Errorf("reflow: %w", err)
	}

	var hasErrors, hasChanges bool
	switch outputFormat {
	case "text":
		if opts.Stdout {
			renderReflowStdout(os.Stdout, results, &hasErrors)
		} else {
			renderReflowText(os.Stdout, results, opts.Check, quiet, &hasErrors, &hasChanges)
		}
	case "json":
		if err := renderReflowJSON(os.Stdout, results, opts.Check); err != nil {
			return err
		}
		for _, res := range results {
			hasErrors = hasErrors || res.Err != nil
			hasChanges = hasChanges || res.Changed
		}
	}

	if timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if hasErrors {
		return fmt.Errorf("reflow: failed to reflow some files")
	}
	if opts.Check && hasChanges {
		return fmt.Errorf("reflow: outputs are out of date")
	}
	return nil
}

// reflowOptionsFromFlags layers command flags over fwkit.toml.
func reflowOptionsFromFlags(cmd *cobra.Command) (driver.ReflowOptions, string, error) {
	var opts driver.ReflowOptions

	settings, _, err := loadSettings(cmd)
	if err != nil {
		return opts, "", fmt.Errorf("reflow: %w", err)
	}
	opts.Reflow = reflow.Options{IndentWidth: settings.Reflow.IndentWidth}
	opts.Suffix = settings.Reflow.Suffix
	opts.NormalizeNFC = settings.Reflow.NFC

	flags := cmd.Flags()
	if opts.Check, err = flags.GetBool("check"); err != nil {
		return opts, "", err
	}
	if opts.Stdout, err = flags.GetBool("stdout"); err != nil {
		return opts, "", err
	}
	if opts.Output, err = flags.GetString("output"); err != nil {
		return opts, "", err
	}
	if opts.Jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, "", err
	}
	if flags.Changed("suffix") {
		if opts.Suffix, err = flags.GetString("suffix"); err != nil {
			return opts, "", err
		}
	}
	if flags.Changed("indent") {
		width, err := flags.GetInt("indent")
		if err != nil {
			return opts, "", err
		}
		if width <= 0 {
			return opts, "", fmt.Errorf("reflow: --indent must be positive")
		}
		opts.Reflow.IndentWidth = width
	}
	if flags.Changed("nfc") {
		if opts.NormalizeNFC, err = flags.GetBool("nfc"); err != nil {
			return opts, "", err
		}
	}
	outputFormat, err := flags.GetString("format")
	if err != nil {
		return opts, "", err
	}

	if err := checkReflowFlags(opts, outputFormat); err != nil {
		return opts, "", err
	}
	return opts, outputFormat, nil
}

func checkReflowFlags(opts driver.ReflowOptions, outputFormat string) error {
	switch outputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("reflow: unsupported output format %q", outputFormat)
	}
	if opts.Stdout && opts.Check {
		return fmt.Errorf("reflow: --stdout cannot be used with --check")
	}
	if opts.Stdout && opts.Output != "" {
		return fmt.Errorf("reflow: --stdout cannot be used with --output")
	}
	if opts.Stdout && outputFormat != "text" {
		return fmt.Errorf("reflow: --stdout is only supported with text output")
	}
	if opts.Jobs < 0 {
		return fmt.Errorf("reflow: --jobs must not be negative")
	}
	return nil
}

func renderReflowStdout(out io.Writer, results []driver.ReflowResult, hasErrors *bool) {
	for _, res := range results {
		if res.Err != nil {
			*hasErrors = true
			fmt.Fprintf(os.Stderr, "reflow: %s: %v\n", res.Path, res.Err)
			continue
		}
		_, _ = out.Write(res.Formatted)
	}
}

func renderReflowText(out io.Writer, results []driver.ReflowResult, check, quiet bool, hasErrors, hasChanges *bool) {
	for _, res := range results {
		if res.Err != nil {
			*hasErrors = true
			fmt.Fprintf(os.Stderr, "reflow: %s: %v\n", res.Path, res.Err)
			continue
		}

		if check {
			if res.Changed {
				*hasChanges = true
				if !quiet {
					fmt.Fprintln(out, res.Output)
				}
			}
			continue
		}

		if quiet {
			continue
		}
		if res.Changed {
			fmt.Fprintf(out, "%s %s -> %s\n", okColor.Sprint("reflowed"), res.Path, res.Output)
		} else {
			fmt.Fprintf(out, "%s %s\n", dimColor.Sprint("unchanged"), res.Output)
		}
	}
}

func renderReflowJSON(out io.Writer, results []driver.ReflowResult, check bool) error {
	type jsonResult struct {
		Path     string `json:"path"`
		Output   string `json:"output,omitempty"`
		Changed  bool   `json:"changed"`
		Error    string `json:"error,omitempty"`
		CheckRun bool   `json:"check"`
	}

	payload := make([]jsonResult, 0, len(results))
	for _, res := range results {
		jr := jsonResult{Path: res.Path, Output: res.Output, Changed: res.Changed, CheckRun: check}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		payload = append(payload, jr)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
