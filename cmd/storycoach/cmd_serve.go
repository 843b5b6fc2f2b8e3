package main

import (
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"story-coach/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled cache purge and usage report until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := a.Scheduler()
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()

			<-ctx.Done()
			log.Println("🔄 Shutting down")
			return nil
		})
	},
}
