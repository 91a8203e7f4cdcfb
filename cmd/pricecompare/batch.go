package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmalens/price-compare-service/internal/domain"
)

func newBatchCmd(c *cli) *cobra.Command {
	var (
		timeout  time.Duration
		fallback bool
	)

	cmd := &cobra.Command{
		Use:   "batch NAME...",
		Short: "Search a whole prescription at once",
		Long: `batch searches several medicines concurrently and prints a summary with
one entry per medicine, in argument order, plus the total savings.

A dosage may be written into the name, as in "Dolo 650mg".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := make([]domain.Query, len(args))
			for i, arg := range args {
				queries[i] = domain.NormalizeQuery(arg, "")
			}

			outcome, err := c.pipeline(timeout, fallback).SearchBatch(cmd.Context(), queries)
			if err != nil {
				return err
			}
			return writeIndentedJSON(cmd.OutOrStdout(), outcome)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-pharmacy timeout (default from configuration)")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "retry under an alternative name when nothing is found")
	return cmd
}
