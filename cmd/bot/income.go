package main

import (
	"context"
	"fmt"
	"time"

	"paybot/config"
	"paybot/internal/workflow"

	"github.com/spf13/cobra"
)

func incomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "income [today|yesterday|7d]",
		Short: "Print an income report from the stored snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIncome,
	}
}

func runIncome(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := newLogger(cfg)
	defer l.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Storage, l)
	if err != nil {
		return err
	}
	defer store.Close()

	led, _, err := restore(ctx, cfg, store, l)
	if err != nil {
		return err
	}

	var period string
	if len(args) > 0 {
		period = args[0]
	}
	report := workflow.BuildIncomeReport(led, workflow.ParsePeriod(period), time.Now(), loc)
	fmt.Fprint(cmd.OutOrStdout(), report.String())
	return nil
}
