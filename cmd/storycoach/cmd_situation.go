package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"story-coach/internal/app"
)

var situationFlags struct {
	topic    string
	attempts int
}

var situationCmd = &cobra.Command{
	Use:   "situation",
	Short: "Print a random parent situation for a topic",
	RunE:  runSituation,
}

func init() {
	f := situationCmd.Flags()
	f.StringVar(&situationFlags.topic, "topic", "", "Topic id or display name (required)")
	f.IntVar(&situationFlags.attempts, "attempts", 0, "Generation attempts (default AI_GENERATION_MAX_ATTEMPTS)")

	_ = situationCmd.MarkFlagRequired("topic")
}

func runSituation(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app.App) error {
		ps, err := a.Generator.RandomParentSituation(cmd.Context(), situationFlags.topic, a.SituationAttempts(situationFlags.attempts))
		if err != nil {
			return fmt.Errorf("parent situation for %q: %w", situationFlags.topic, err)
		}
		return printJSON(cmd.OutOrStdout(), ps)
	})
}
