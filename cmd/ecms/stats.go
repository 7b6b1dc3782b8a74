package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abelzeko/ecms-bot/internal/usecases"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print record counts per kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		return printStats(cmd.Context(), cmd.OutOrStdout(), e.useCase)
	},
}

func printStats(ctx context.Context, w io.Writer, uc *usecases.MonitoringUseCase) error {
	counts, err := uc.Counts(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, usecases.FormatCounts(counts))
	return err
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
