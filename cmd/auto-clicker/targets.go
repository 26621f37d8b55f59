package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/auto-clicker/pkg/templates"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the targets in scan order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		entries, err := templates.LoadFromDirectory(cfg.TargetsDir)
		if err != nil {
			return err
		}
		printTargets(cmd, cfg.TargetsDir, entries)

		// Decode every image so broken files show up before a scan
		cache := templates.NewImageCache(entries...)
		for _, e := range entries {
			img, err := cache.Image(e.ID)
			if err != nil {
				return fmt.Errorf("target %s: %w", e.Name, err)
			}
			b := img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "    %s  %dx%d  %s\n", e.Name, b.Dx(), b.Dy(), e.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
