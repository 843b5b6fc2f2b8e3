package main

import (
	"github.com/spf13/cobra"

	"story-coach/internal/app"
)

var sceneFlags struct {
	topic     string
	index     int
	variation bool
	forceNew  bool
	template  bool
}

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Print one scene of a topic, generated or from the template",
	RunE:  runScene,
}

func init() {
	f := sceneCmd.Flags()
	f.StringVar(&sceneFlags.topic, "topic", "", "Topic id or display name (required)")
	f.IntVar(&sceneFlags.index, "index", 0, "Scene number, 0-based")
	f.BoolVar(&sceneFlags.variation, "variation", false, "Force AI variation even when USE_AI_GENERATION is off")
	f.BoolVar(&sceneFlags.template, "template", false, "Return the template scene without generation")
	f.BoolVar(&sceneFlags.forceNew, "force-new", false, "Skip the cache lookup")

	_ = sceneCmd.MarkFlagRequired("topic")
	sceneCmd.MarkFlagsMutuallyExclusive("variation", "template")
}

func runScene(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app.App) error {
		useVariation := (a.Config.UseAIGeneration || sceneFlags.variation) && !sceneFlags.template
		s, err := a.Generator.GetScene(cmd.Context(), sceneFlags.topic, sceneFlags.index, useVariation, sceneFlags.forceNew)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	})
}
