package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stephly/internal/analysis"
	"stephly/internal/cli"
	"stephly/internal/core"
)

var flagMonth string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a month's totals, budgets and financial health",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&flagMonth, "month", "m", "", "Month as YYYY-MM (default: current month)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	period := time.Now()
	if flagMonth != "" {
		t, err := time.Parse("2006-01", flagMonth)
		if err != nil {
			return fmt.Errorf("invalid --month %q: want YYYY-MM", flagMonth)
		}
		period = t
	}
	year, month := period.Year(), int(period.Month())

	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	app := cli.NewApp(ctx, e.cfg, e.store, nil, e.logger)
	txs, err := app.Services.Transactions.ListInMonth(ctx, flagUserID, year, month)
	if err != nil {
		return err
	}
	budgets, err := app.Services.Budgets.List(ctx, flagUserID, month, year)
	if err != nil {
		return err
	}
	stats := core.ComputeStats(txs)
	health := analysis.Health(stats.Balance, stats.TotalIncome, stats.TotalExpenses, budgets)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%04d-%02d  (%d transactions)\n\n", year, month, len(txs))
	fmt.Fprintf(out, "  Income:   %s\n", stats.TotalIncome)
	fmt.Fprintf(out, "  Expenses: %s\n", stats.TotalExpenses)
	fmt.Fprintf(out, "  Balance:  %s\n\n", stats.Balance)

	if len(budgets) > 0 {
		fmt.Fprintln(out, "  Budgets")
		for _, b := range budgets {
			flag := ""
			if b.Spent.Cents > b.Limit.Cents {
				flag = "  over"
			}
			fmt.Fprintf(out, "    %-16s %s / %s%s\n", b.Category, b.Spent, b.Limit, flag)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "  Health: %d/100 (%s)\n", health.Score, health.Status)
	for _, w := range health.Warnings {
		fmt.Fprintf(out, "    %s\n", w)
	}
	for _, r := range health.Recommendations {
		fmt.Fprintf(out, "    - %s\n", r)
	}
	return nil
}
