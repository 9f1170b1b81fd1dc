package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the blog",
		Long: `The serve command starts the web server. Eager posts and the listing are
generated in the background right after startup; any other post is generated on
its first request.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.newApp().Run(ctx)
		},
	}
	cmd.Flags().String("addr", ":3000", "address to listen on")
	return cmd
}
