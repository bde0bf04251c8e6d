package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newSeedCmd creates the seed command.
func newSeedCmd(configPath *string) *cobra.Command {
	var corpusPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Embed a corpus file and populate the indexes",
		Long: `Load a YAML corpus, embed every document, and replace the
contents of the vector index, lexical index, and metadata store.
Re-seeding is all-or-nothing: a failure leaves the previous corpus
serving.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, *configPath, false)
			if err != nil {
				return err
			}
			defer app.Close()

			path := corpusPath
			if path == "" {
				path = app.cfg.Corpus.Path
			}

			if err := app.seeder.SeedFile(ctx, path); err != nil {
				return err
			}

			count, err := app.docs.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d documents from %s\n", count, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "Corpus YAML file (overrides config)")

	return cmd
}
