package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paarshan4800/fin-advisor/internal/app"
	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/logger"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opener builds the application for one command run.
type opener func(ctx context.Context, configPath string) (*app.App, error)

func openApp(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, nil, logger.New(cfg.Log.Level, cfg.Log.JSON))
}

type cli struct {
	open       opener
	configPath string
	user       string
	out        io.Writer
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:   "fin-advisor",
		Short: "Ask questions about your transactions in plain language",
		Long: `fin-advisor answers natural-language questions about a personal ledger
with a chart or a table, plus spending patterns and recommendations.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.out = cmd.OutOrStdout()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a config file")
	root.PersistentFlags().StringVarP(&c.user, "user", "u", os.Getenv("FIN_USER_ID"), "Account holder to query as (or set FIN_USER_ID)")

	root.AddCommand(c.askCmd(), c.transactionsCmd(), c.handleCmd(), c.usersCmd(), c.tokenCmd())
	return root
}

func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := c.open(ctx, c.configPath)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()
	return fn(a)
}
