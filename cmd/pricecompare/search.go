package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/events"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		dosage   string
		stream   bool
		timeout  time.Duration
		fallback bool
	)

	cmd := &cobra.Command{
		Use:   "search NAME",
		Short: "Search every pharmacy for one medicine",
		Long: `search looks one medicine up across every enabled pharmacy.

By default it waits for all pharmacies and prints the final result as JSON.
With --stream it prints one JSON event per line as pharmacies answer:
started, one source_result per pharmacy, then complete or error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := domain.NewQuery(args[0], dosage)
			orch := c.pipeline(timeout, fallback)
			out := cmd.OutOrStdout()

			if stream {
				_, err := orch.Stream(cmd.Context(), q, events.NewNDJSONWriter(out))
				return err
			}

			outcome, err := orch.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return writeIndentedJSON(out, outcome)
		},
	}

	cmd.Flags().StringVar(&dosage, "dosage", "", "dosage such as 650mg")
	cmd.Flags().BoolVar(&stream, "stream", false, "print progress events as newline-delimited JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-pharmacy timeout (default from configuration)")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "retry under an alternative name when nothing is found")
	return cmd
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
