package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "storycoach",
	Short: "Social-story scenes and expert advice for parents of autistic children",
	Long: "storycoach generates practice scenes and parent situations with an LLM,\n" +
		"checks them with a quality gate, caches the good ones and answers\n" +
		"parents' questions with a panel of expert personas.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(situationCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(parentFeedbackCmd)
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(consultCmd)
	rootCmd.AddCommand(expertsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}
