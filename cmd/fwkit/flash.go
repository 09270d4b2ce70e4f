package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fwkit/internal/config"
	"fwkit/internal/flashcache"
	"fwkit/internal/flashpipeline"
	"fwkit/internal/image"
)

var flashCmd = &cobra.Command{
	Use:   "flash [flags] <image>",
	Short: "Convert a firmware image and program it onto a device",
	Long: `Flash converts <image> with the configured binary format converter into a
temporary directory, then programs the result onto --target with the
configured device programmer. The temporary directory is removed afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlash,
}

func init() {
	flashCmd.Flags().StringP("target", "t", "", "device target passed to the programmer")
	flashCmd.Flags().String("format", "", "converter output format (ihex|binary|srec)")
	flashCmd.Flags().String("converter", "", "binary format converter executable")
	flashCmd.Flags().String("programmer", "", "device programmer executable")
	flashCmd.Flags().String("tmp-dir", "", "parent directory for the scoped temporary directory")
	flashCmd.Flags().Bool("keep-tmp", false, "keep the temporary directory and print its path")
	flashCmd.Flags().Bool("print-commands", false, "print each tool command line before running it")
	flashCmd.Flags().Bool("dry-run", false, "print the tool command lines without running them")
	flashCmd.Flags().Bool("skip-unchanged", false, "skip programming when the target already holds this image")
	flashCmd.Flags().Bool("no-cache", false, "do not read or update the flash cache")
	flashCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

// flashFlags carries the flag values that override fwkit.toml.
type flashFlags struct {
	target        string
	format        string
	converter     string
	programmer    string
	tmpDir        string
	keepTmp       bool
	printCommands bool
	dryRun        bool
	skipUnchanged bool
	noCache       bool
}

func readFlashFlags(cmd *cobra.Command) (flashFlags, error) {
	var ff flashFlags
	var err error
	flags := cmd.Flags()
	if ff.target, err = flags.GetString("target"); err != nil {
		return ff, err
	}
	if ff.format, err = flags.GetString("format"); err != nil {
		return ff, err
	}
	if ff.converter, err = flags.GetString("converter"); err != nil {
		return ff, err
	}
	if ff.programmer, err = flags.GetString("programmer"); err != nil {
		return ff, err
	}
	if ff.tmpDir, err = flags.GetString("tmp-dir"); err != nil {
		return ff, err
	}
	if ff.keepTmp, err = flags.GetBool("keep-tmp"); err != nil {
		return ff, err
	}
	if ff.printCommands, err = flags.GetBool("print-commands"); err != nil {
		return ff, err
	}
	if ff.dryRun, err = flags.GetBool("dry-run"); err != nil {
		return ff, err
	}
	if ff.skipUnchanged, err = flags.GetBool("skip-unchanged"); err != nil {
		return ff, err
	}
	if ff.noCache, err = flags.GetBool("no-cache"); err != nil {
		return ff, err
	}
	return ff, nil
}

// buildFlashRequest merges flags over the [flash] settings. Non-empty flag
// values win.
func buildFlashRequest(imagePath string, ff flashFlags, cfg config.FlashConfig) (*flashpipeline.FlashRequest, error) {
	format := strings.ToLower(strings.TrimSpace(firstNonEmpty(ff.format, cfg.Format, config.DefaultFormat)))
	switch image.Format(format) {
	case image.FormatIHex, image.FormatBinary, image.FormatSrec:
	default:
		return nil, &flashpipeline.UsageError{Field: "format", Message: fmt.Sprintf("unsupported format %q (expected ihex|binary|srec)", format)}
	}

	converterArgs := cfg.ConverterArgs
	if len(converterArgs) == 0 {
		converterArgs = config.DefaultConverterArgs()
	}
	programmerArgs := cfg.ProgrammerArgs
	if len(programmerArgs) == 0 {
		programmerArgs = config.DefaultProgrammerArgs()
	}

	return &flashpipeline.FlashRequest{
		ImagePath: imagePath,
		Target:    strings.TrimSpace(firstNonEmpty(ff.target, cfg.Target)),
		Format:    image.Format(format),
		Converter: flashpipeline.Tool{
			Name: firstNonEmpty(ff.converter, cfg.Converter, config.DefaultConverter),
			Args: converterArgs,
		},
		Programmer: flashpipeline.Tool{
			Name: firstNonEmpty(ff.programmer, cfg.Programmer, config.DefaultProgrammer),
			Args: programmerArgs,
		},
		TmpRoot:       ff.tmpDir,
		KeepTmp:       ff.keepTmp,
		PrintCommands: ff.printCommands,
		DryRun:        ff.dryRun,
		SkipUnchanged: ff.skipUnchanged,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func runFlash(cmd *cobra.Command, args []string) error {
	uiModeValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiModeValue)
	if err != nil {
		return err
	}
	ff, err := readFlashFlags(cmd)
	if err != nil {
		return err
	}
	settings, _, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("flash: %w", err)
	}
	req, err := buildFlashRequest(args[0], ff, settings.Flash)
	if err != nil {
		return fmt.Errorf("flash: %w", err)
	}
	if req.Target == "" {
		// reported like a missing argument, before any work
		return fmt.Errorf("flash: %w", &flashpipeline.UsageError{Field: "target", Message: "no target given (use --target or [flash].target)"})
	}
	cmd.SilenceUsage = true

	quiet := isQuiet(cmd)
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	if !ff.noCache && !ff.dryRun {
		cache, cacheErr := flashcache.Open("fwkit")
		if cacheErr != nil {
			if !quiet {
				warnColor.Fprintf(os.Stderr, "flash: cache unavailable: %v\n", cacheErr)
			}
		} else {
			req.Cache = cache
		}
	}
	req.Stdout = os.Stdout
	if ff.dryRun {
		// dry runs only ever print commands
		req.PrintCommands = true
	}

	useTUI := shouldUseTUI(mode) && !quiet && !ff.dryRun && !ff.printCommands
	var result flashpipeline.FlashResult
	if useTUI {
		req.Stdout = io.Discard
		result, err = runFlashWithUI(cmd.Context(), "flash "+req.Target, req)
	} else {
		if !quiet {
			req.Progress = textProgress(os.Stderr)
		}
		result, err = flashpipeline.Flash(cmd.Context(), req)
	}

	if req.KeepTmp && result.TmpDir != "" {
		fmt.Fprintf(os.Stderr, "flash: kept temporary files in %s\n", result.TmpDir)
	}
	if err != nil {
		return fmt.Errorf("flash: %w", err)
	}

	if result.CacheErr != nil && !quiet {
		warnColor.Fprintf(os.Stderr, "flash: cache not updated: %v\n", result.CacheErr)
	}
	if !quiet && !ff.dryRun {
		if result.Skipped {
			warnColor.Fprintln(os.Stdout, result.Summary(req.Target))
		} else {
			okColor.Fprintln(os.Stdout, result.Summary(req.Target))
		}
	}
	if timings {
		printStageTimings(os.Stderr, result.Timings)
	}
	return nil
}

// textProgress prints one line per finished stage.
func textProgress(out io.Writer) flashpipeline.ProgressSink {
	return flashpipeline.FuncSink(func(ev flashpipeline.Event) {
		switch ev.Status {
		case flashpipeline.StatusDone:
			line := fmt.Sprintf("%-8s %s", ev.Stage, okColor.Sprint("done"))
			if ev.Detail != "" {
				line += " " + dimColor.Sprint(ev.Detail)
			}
			fmt.Fprintln(out, line)
		case flashpipeline.StatusSkipped:
			fmt.Fprintf(out, "%-8s %s\n", ev.Stage, warnColor.Sprint("skipped"))
		case flashpipeline.StatusError:
			fmt.Fprintf(out, "%-8s %s\n", ev.Stage, errColor.Sprint("failed"))
		}
	})
}
