package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"story-coach/internal/analytics"
	"story-coach/internal/storage"
)

var reportFlags struct {
	date string
	json bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the debug sessions of one day",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.date, "date", "", "Day as YYYY-MM-DD (default today)")
	f.BoolVar(&reportFlags.json, "json", false, "Print as JSON")
}

func runReport(cmd *cobra.Command, _ []string) error {
	day := time.Now()
	if reportFlags.date != "" {
		d, err := time.ParseInLocation(time.DateOnly, reportFlags.date, time.Local)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		day = d
	}

	cfg := loadConfig()
	recorder, err := storage.NewFileRecorder(cfg.DebugLogDir)
	if err != nil {
		return err
	}
	sessions, err := recorder.LoadSessions(day)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	stats := analytics.AnalyzeDailySessions(sessions, day)
	out := cmd.OutOrStdout()
	if reportFlags.json {
		s, err := stats.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}
	fmt.Fprint(out, stats.GenerateReportSummary())
	return nil
}
