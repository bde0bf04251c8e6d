package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wayfarer/internal/agent"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// newAskCmd creates the ask command.
func newAskCmd(configPath *string) *cobra.Command {
	var country string
	var category string
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot travel question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.restore(ctx); err != nil {
				return err
			}

			resp, err := app.router.Handle(ctx, agent.Request{
				Query:    strings.Join(args, " "),
				Country:  country,
				Category: store.Category(strings.ToLower(category)),
				TopK:     topK,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Answer)
			if len(resp.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for i, src := range resp.Sources {
					fmt.Fprintf(out, "  [%d] %s (%s, %s)\n",
						i+1, src.Title, src.Country, src.Category)
				}
			}
			fmt.Fprintf(out, "\nconfidence: %.2f", resp.Confidence)
			if resp.Degraded {
				fmt.Fprint(out, "  (degraded)")
			}
			if resp.Ungrounded {
				fmt.Fprint(out, "  (ungrounded)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "Restrict retrieval to one country")
	cmd.Flags().StringVar(&category, "category", "", "Restrict retrieval to one category (visa, culture, law, safety)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of passages to retrieve")

	return cmd
}
