package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stephly/internal/assistant"
	"stephly/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat MESSAGE...",
	Short: "Send one message to the assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	app := cli.NewApp(ctx, e.cfg, e.store, nil, e.logger)
	resp, err := app.Services.Assistant.Chat(ctx, assistant.ChatRequest{
		UserID:  flagUserID,
		Message: strings.Join(args, " "),
		Page:    "cli",
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Message)
	if resp.ActionExecuted {
		fmt.Fprintf(out, "\nBalance: %s  Income: %s  Expenses: %s\n",
			resp.Stats.Balance, resp.Stats.TotalIncome, resp.Stats.TotalExpenses)
	}
	for _, s := range resp.Suggestions {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	return nil
}
