package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradePilot/internal/di"
	"TradePilot/internal/domain/models"
	"TradePilot/pkg/config"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the tradepilot command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tradepilot",
		Short: "TradePilot - LLM-driven token trading pipeline",
		Long: `TradePilot refreshes token market data, asks a language model for trade
recommendations, sizes them against a budget and executes them through a wallet agent.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	load := func() (*config.Config, error) {
		return config.LoadWithEnv(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newCycleCmd(load),
		newManageCmd(load),
		newAnalyzeCmd(load),
		newSweepCmd(load),
		newDigestCmd(load),
		newMigrateCmd(load),
		newTradesCmd(load),
	)
	return root
}

type loader func() (*config.Config, error)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, queue workers, Kafka feed and sweep ticker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

// withRuntime wires the workflows, starts the in-process queue and stops it after fn.
func withRuntime(load loader, fn func(ctx context.Context, rt *di.Runtime) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	rt, cleanup, err := di.InitializeRuntime(cfg)
	if err != nil {
		return fmt.Errorf("runtime initialization failed: %w", err)
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := rt.Queue.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = rt.Queue.Stop(stopCtx)
	}()
	return fn(ctx, rt)
}

// runCycle runs one trader or manager cycle and waits for every dispatched trade.
func runCycle(ctx context.Context, rt *di.Runtime, title string, run func(context.Context) (*models.CycleReport, error)) error {
	report, err := run(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderReport(title, report))

	if err := rt.Queue.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for executions: %w", err)
	}

	var trades []models.Trade
	for _, r := range report.ExecutionResults {
		if r.TradeID == "" {
			continue
		}
		t, err := rt.Store.GetTrade(ctx, r.TradeID)
		if err != nil {
			return err
		}
		trades = append(trades, *t)
	}
	if len(trades) > 0 {
		fmt.Println(renderTrades("Executions", trades))
	}
	return nil
}

func newCycleCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one trader cycle and wait for its executions",
		RunE: func(*cobra.Command, []string) error {
			return withRuntime(load, func(ctx context.Context, rt *di.Runtime) error {
				return runCycle(ctx, rt, "Trader cycle", rt.Trader.RunCycle)
			})
		},
	}
}

func newManageCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "manage",
		Short: "Run one portfolio manager cycle and wait for its executions",
		RunE: func(*cobra.Command, []string) error {
			return withRuntime(load, func(ctx context.Context, rt *di.Runtime) error {
				return runCycle(ctx, rt, "Portfolio manager", rt.Manager.RunCycle)
			})
		},
	}
}

func newAnalyzeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [CONTRACT]",
		Short: "Refresh one agent; a random configured contract when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			contract := ""
			if len(args) == 1 {
				contract = args[0]
			}
			return withRuntime(load, func(ctx context.Context, rt *di.Runtime) error {
				rec, err := rt.Analyst.Refresh(ctx, contract)
				if err != nil {
					return err
				}
				fmt.Println(renderAgent(rec))
				return nil
			})
		},
	}
}

func newSweepCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Fail PENDING trades that were never executed",
		RunE: func(*cobra.Command, []string) error {
			return withRuntime(load, func(ctx context.Context, rt *di.Runtime) error {
				n, err := rt.Sweeper.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Println(okStyle.Render(fmt.Sprintf("swept %d trade(s)", n)))
				return nil
			})
		},
	}
}

func newDigestCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Write and store a market update",
		RunE: func(*cobra.Command, []string) error {
			return withRuntime(load, func(ctx context.Context, rt *di.Runtime) error {
				d, err := rt.Digest.Publish(ctx)
				if err != nil {
					return err
				}
				fmt.Println(boxStyle.Render(d.Content))
				return nil
			})
		},
	}
}

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			lgr, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			_, cleanup, err := di.ProvideStore(cfg, lgr)
			if err != nil {
				return err
			}
			cleanup()
			fmt.Println(okStyle.Render("migrations applied for " + cfg.Storage.Driver))
			return nil
		},
	}
}

func newTradesCmd(load loader) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recorded trades, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			lgr, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			store, cleanup, err := di.ProvideStore(cfg, lgr)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := store.ListTrades(cmd.Context(), models.TradeFilter{Status: models.TradeStatus(status), Limit: limit})
			if err != nil {
				return err
			}
			fmt.Println(renderTrades("Trades", list))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (PENDING, PROCESSING, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	return cmd
}
