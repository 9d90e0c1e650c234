package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stephly/internal/currency"
)

var flagAmount string

var ratesCmd = &cobra.Command{
	Use:   "rates [CODE...]",
	Short: "Show cedi exchange rates, optionally converting an amount",
	RunE:  runRates,
}

func init() {
	ratesCmd.Flags().StringVarP(&flagAmount, "amount", "a", "", "Convert this many cedis into each currency")
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var amount decimal.Decimal
	if flagAmount != "" {
		amount, err = decimal.NewFromString(flagAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q", flagAmount)
		}
	}

	client := currency.NewClient(cfg.ExchangeRatesURL, cfg.RatesTTL, &http.Client{Timeout: 10 * time.Second}, newLogger())
	quote := client.Rates(cmd.Context())

	codes := args
	if len(codes) == 0 {
		for code := range quote.Rates {
			codes = append(codes, code)
		}
		sort.Strings(codes)
	}

	out := cmd.OutOrStdout()
	if quote.Fallback {
		fmt.Fprintln(out, "Rates API unavailable, showing approximate fallback rates")
	}
	for _, code := range codes {
		code = strings.ToUpper(code)
		rate, ok := quote.Rates[code]
		if !ok {
			fmt.Fprintf(out, "  %-4s unknown\n", code)
			continue
		}
		if flagAmount == "" {
			fmt.Fprintf(out, "  %-4s %.4f\n", code, rate)
			continue
		}
		converted, err := currency.Convert(amount, "GHS", code, quote.Rates)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-4s %s\n", code, currency.Format(converted, code))
	}
	return nil
}
