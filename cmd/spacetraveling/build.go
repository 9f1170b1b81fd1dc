package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newBuildCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the listing and the eager posts",
		Long: `The build command fetches the listing seed and every eager post from the CMS,
stores them so the server starts warm, and writes them as static HTML into the
output directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app := o.newApp()
			if err := app.Setup(ctx); err != nil {
				return err
			}
			defer app.Close()

			gen, err := app.Generate(ctx)
			if err != nil {
				return err
			}
			if err := app.Export(ctx, gen, app.Config.OutputDir); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			slog.InfoContext(ctx, "build finished",
				"dir", app.Config.OutputDir,
				"listing", len(gen.Listing.Items),
				"posts", len(gen.Posts),
				"missing", gen.Missing,
			)
			return nil
		},
	}
	cmd.Flags().String("output_dir", "out", "directory the static pages are written to")
	return cmd
}
