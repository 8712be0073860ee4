package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/app"
	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/gcsuploader"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
	"github.com/paarshan4800/fin-advisor/internal/pipeline"
	"github.com/paarshan4800/fin-advisor/internal/render"
	"github.com/paarshan4800/fin-advisor/internal/session"
)

var (
	errNoUser   = errors.New("--user is required")
	errNoSecret = errors.New("auth.jwt_secret is not configured")
)

func (c *cli) askCmd() *cobra.Command {
	var (
		sessionID string
		pngPath   string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with a chart or table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.user == "" {
				return errNoUser
			}
			question := strings.Join(args, " ")
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()

			return c.withApp(ctx, func(a *app.App) error {
				resp := a.Orchestrator.Answer(ctx, pipeline.Request{
					Query:     question,
					SessionID: session.Key(c.user, sessionID),
					Identity:  c.user,
				})
				return c.printResponse(ctx, resp, asJSON, pngPath)
			})
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID for follow-up questions")
	cmd.Flags().StringVar(&pngPath, "png", "", "Also write charts to this PNG file or gs:// object")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func (c *cli) printResponse(ctx context.Context, resp pipeline.Response, asJSON bool, pngPath string) error {
	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if err := render.Table(c.out, resp.Visualization); err != nil {
		return err
	}
	for _, p := range resp.Analysis.UnnecessaryPatterns {
		fmt.Fprintf(c.out, "  pattern: %s\n", p)
	}
	for _, r := range resp.Analysis.Recommendations {
		fmt.Fprintf(c.out, "  tip:     %s\n", r)
	}

	if pngPath == "" || !resp.Visualization.IsChart() {
		return nil
	}
	var img bytes.Buffer
	if err := render.PNG(&img, resp.Visualization); err != nil {
		return err
	}
	if gcsuploader.IsURI(pngPath) {
		if err := gcsuploader.Upload(ctx, pngPath, "image/png", img.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(pngPath, img.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", pngPath, err)
	}
	fmt.Fprintf(c.out, "Chart saved to %s\n", pngPath)
	return nil
}

func (c *cli) transactionsCmd() *cobra.Command {
	var (
		from, to, status string
		limit, page      int
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List your most recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.user == "" {
				return errNoUser
			}
			f := domain.StructuredFilter{}
			if from != "" {
				s, err := domain.DayStart(from)
				if err != nil {
					return err
				}
				f.StartDate = &s
			}
			if to != "" {
				s, err := domain.DayEnd(to)
				if err != nil {
					return err
				}
				f.EndDate = &s
			}
			if status != "" {
				s, ok := domain.CanonicalStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				f.Status = &s
			}
			if page < 1 {
				page = 1
			}

			return c.withApp(cmd.Context(), func(a *app.App) error {
				fields := []string{"initiated_at", "merchant", "to_account", "amount", "currency", "transaction_mode", "status"}
				recs, err := a.Ledger.Find(cmd.Context(), ledger.Query{
					Identity: c.user,
					Filter:   f,
					Fields:   fields,
					Limit:    limit,
					Offset:   (page - 1) * limit,
				})
				if err != nil {
					return err
				}
				return render.Table(c.out, recordsTable(fields, recs))
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "Only this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "Rows per page")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func recordsTable(fields []string, recs []ledger.Record) domain.Visualization {
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = r[f]
		}
		rows = append(rows, row)
	}
	return domain.NewTable(fields, rows, fmt.Sprintf("%d transactions", len(recs)))
}

func (c *cli) handleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handle <handle>",
		Short: "Inspect a cached query result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				entry, serr := pipeline.LoadEntry(cmd.Context(), a.Cache, args[0])
				if serr != nil {
					return serr
				}
				expires, err := entry.ExpiresAt()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "handle:       %s\n", args[0])
				fmt.Fprintf(c.out, "created:      %s\n", entry.CreatedAt)
				fmt.Fprintf(c.out, "expires:      %s\n", expires.Format(time.RFC3339))
				fmt.Fprintf(c.out, "transactions: %d (cached %d, truncated %t)\n",
					entry.Metrics.TransactionCount, len(entry.Data), entry.Metrics.Truncated)
				fields := entry.Projection.Fields()
				return render.Table(c.out, recordsTable(fields, entry.Data))
			})
		},
	}
}

func (c *cli) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the account holders in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				users, err := a.Ledger.Users(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]any, 0, len(users))
				for _, u := range users {
					rows = append(rows, []any{u.UserID, u.UserName, u.TransactionCount})
				}
				return render.Table(c.out, domain.NewTable(
					[]string{"user_id", "user_name", "transactions"}, rows,
					fmt.Sprintf("%d users", len(users))))
			})
		},
	}
}

// tokenCmd signs a bearer token for --user with the configured auth secret.
func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print an API bearer token for --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.user == "" {
				return errNoUser
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errNoSecret
			}
			token, err := middleware.SignToken(cfg.Auth.JWTSecret, c.user)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}
}
