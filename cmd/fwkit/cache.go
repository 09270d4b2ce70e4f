package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fwkit/internal/flashcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the flash cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <target>",
	Short: "Show the last image flashed onto a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cache, err := flashcache.Open("fwkit")
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		rec, ok, err := cache.Get(args[0])
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		if !ok {
			fmt.Fprintf(os.Stdout, "no record for %s\n", args[0])
			return nil
		}
		renderCacheRecord(os.Stdout, rec)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [target]",
	Short: "Forget one target, or every target when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cache, err := flashcache.Open("fwkit")
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		if len(args) == 1 {
			err = cache.Forget(args[0])
		} else {
			err = cache.DropAll()
		}
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		if !isQuiet(cmd) {
			fmt.Fprintf(os.Stdout, "%s %s\n", okColor.Sprint("cleared"), cache.Dir())
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func renderCacheRecord(out io.Writer, rec *flashcache.Record) {
	fmt.Fprintf(out, "target:  %s\n", rec.Target)
	fmt.Fprintf(out, "image:   %s\n", rec.Image)
	fmt.Fprintf(out, "format:  %s\n", rec.Format)
	fmt.Fprintf(out, "size:    %d bytes\n", rec.Size)
	fmt.Fprintf(out, "sha256:  %s\n", hex.EncodeToString(rec.Digest[:]))
	fmt.Fprintf(out, "flashed: %s\n", rec.FlashedAt.Local().Format(time.RFC3339))
}
