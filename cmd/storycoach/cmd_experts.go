package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"story-coach/internal/persona"
)

var expertsJSON bool

var expertsCmd = &cobra.Command{
	Use:   "experts",
	Short: "List the expert personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list := persona.Default().List()
		out := cmd.OutOrStdout()
		if expertsJSON {
			return printJSON(out, list)
		}
		for _, p := range list {
			fmt.Fprintf(out, "%-26s %s\n", p.ID, p.DisplayName())
			fmt.Fprintf(out, "  %s\n  %s\n", p.Role, strings.Join(p.Expertise, ", "))
		}
		return nil
	},
}

func init() {
	expertsCmd.Flags().BoolVar(&expertsJSON, "json", false, "Print as JSON")
}
