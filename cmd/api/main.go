package main

// @title           Paybridge API
// @version         1.0
// @description     Mobile-money payment initiation and webhook reconciliation for Wave, Orange Money and Free Money.

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/paybridge/internal/app"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/logger"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "paybridge",
		Short:   "Mobile-money payment service",
		Version: Version,
		RunE:    runServe,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), providersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and reconcile sweeper",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(cmd.Context(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		// Logging might not be ready; fallback to zap example
		zap.NewExample().Sugar().Errorf("failed to start app: %v", err)
		return err
	}

	// Block until signal
	sig := <-a.Wait()

	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel2()
	if err := a.Stop(stopCtx); err != nil {
		zap.NewExample().Sugar().Errorf("failed to stop app: %v", err)
		return err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("exited with code %d", sig.ExitCode)
	}
	return nil
}

// runOnce starts opts, which run their work in fx.Invoke, and stops again.
func runOnce(ctx context.Context, opts ...fx.Option) error {
	a := fx.New(append(opts, fx.NopLogger)...)
	if err := a.Err(); err != nil {
		return err
	}
	startCtx, cancel := context.WithTimeout(ctx, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return err
	}
	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel2()
	return a.Stop(stopCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// db.Module migrates on construction.
			return runOnce(cmd.Context(), app.Core, fx.Invoke(func(log *zap.SugaredLogger) {
				log.Infow("migrations applied")
			}))
		},
	}
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show which payment providers have credentials configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(),
				config.Module,
				logger.Module,
				metrics.Module,
				provider.Module,
				fx.Invoke(func(f *provider.Factory) {
					printAvailability(cmd, f.Availability())
				}),
			)
		},
	}
}

func printAvailability(cmd *cobra.Command, avail map[types.PaymentProvider]bool) {
	keys := make([]string, 0, len(avail))
	for k := range avail {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		state := "not configured"
		if avail[types.PaymentProvider(k)] {
			state = "available"
		}
		cmd.Printf("%-14s %s\n", k, state)
	}
}
