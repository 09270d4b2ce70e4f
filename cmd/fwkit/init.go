package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fwkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default fwkit.toml",
	Long: `Initialize writes a commented fwkit.toml with the built-in defaults into
[path] (the current directory when omitted), creating the directory if needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("target", "t", "", "default device target written to [flash].target")
	initCmd.Flags().Bool("force", false, "overwrite an existing fwkit.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path, err := writeSettingsFile(dir, target, force)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	rel := path
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, path); err2 == nil {
			rel = r
		}
	}
	if !isQuiet(cmd) {
		fmt.Fprintf(os.Stdout, "%s %s\n", okColor.Sprint("wrote"), rel)
	}
	return nil
}

// writeSettingsFile creates dir if needed and writes config.Template into
// dir/fwkit.toml. An existing file is kept unless force is set.
func writeSettingsFile(dir, target string, force bool) (string, error) {
	if st, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	} else if !st.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dir)
	}

	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(config.Template(target)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
