// Command stephlyctl administers a Stephly deployment from the shell: it
// migrates the database, creates users and talks to the assistant without
// going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stephly/internal/cli"
	"stephly/internal/config"
	"stephly/internal/log"
	"stephly/internal/store"
)

var (
	flagUserID  int64
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "stephlyctl",
	Short:         "Stephly admin CLI",
	Long:          "Manage a Stephly database and talk to the assistant from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Int64VarP(&flagUserID, "user", "u", 0, "User ID to act as")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every command that touches data needs.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	store  store.Store
	close  func()
}

func newLogger() *log.Logger {
	lc := log.DefaultConfig()
	lc.Output = os.Stderr
	lc.Level = log.ParseLevel("warn")
	if flagVerbose {
		lc.Level = log.ParseLevel("debug")
	}
	return log.New(lc)
}

func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	st, closeFn, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: st, close: closeFn}, nil
}

func requireUser() error {
	if flagUserID <= 0 {
		return fmt.Errorf("--user is required")
	}
	return nil
}
