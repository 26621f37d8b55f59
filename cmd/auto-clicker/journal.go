package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	journalSince  time.Duration
	journalErrors int
	journalPrune  time.Duration
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Summarize recorded sessions, clicks and errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openJournal(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()

		if journalPrune > 0 {
			n, err := db.DeleteOldSessions(time.Now().Add(-journalPrune))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d session(s)\n", n)
		}

		stats, err := db.GetStats()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d session(s), %d click(s), %d error(s)\n",
			db.Path(), stats["scan_sessions"], stats["click_log"], stats["error_log"])

		counts, err := db.GetClickCountsByTarget(time.Now().Add(-journalSince))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Clicks in the last %s:\n", journalSince)
		for _, c := range counts {
			fmt.Fprintf(out, "  %-32s %d\n", c.Target, c.Clicks)
		}

		if journalErrors > 0 {
			errs, err := db.GetRecentErrors(journalErrors)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Recent errors:")
			for _, e := range errs {
				fmt.Fprintf(out, "  %s  %-14s %s\n", e.OccurredAt.Format(time.DateTime), e.ErrorType, e.ErrorMessage)
			}
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().DurationVar(&journalSince, "since", 24*time.Hour, "click summary window")
	journalCmd.Flags().IntVar(&journalErrors, "errors", 10, "number of recent errors to show")
	journalCmd.Flags().DurationVar(&journalPrune, "prune", 0, "delete sessions older than this before summarizing")
	rootCmd.AddCommand(journalCmd)
}
