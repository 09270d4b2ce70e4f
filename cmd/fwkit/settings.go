package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fwkit/internal/config"
)

// loadSettings resolves fwkit.toml from --config or by walking up from the
// working directory. A missing file yields the built-in defaults.
func loadSettings(cmd *cobra.Command) (config.Config, string, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	file, ok, err := config.Discover(wd, explicit)
	if err != nil {
		return config.Config{}, "", err
	}
	if !ok {
		return config.Default(), "", nil
	}
	return file.Config, file.Path, nil
}
