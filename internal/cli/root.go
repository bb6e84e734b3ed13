package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/jmewes/devtools/internal/profiler"
	"github.com/jmewes/devtools/internal/session"
	"github.com/jmewes/devtools/internal/timeline"
	"github.com/jmewes/devtools/internal/tracesource"
	"github.com/jmewes/devtools/pkg/xlog"
)

var (
	rootCmd = &cobra.Command{
		Use:   "devtools",
		Short: "Inspect recorded trace sessions",
		Long: `Reconstructs per-thread event trees and render frames from recorded
trace events, classifies jank against the display budget, and exports or
replays session snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel    string
	configPath  string
	tracePath   string
	refreshRate float64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warn", "log level, one of ('debug', 'info', 'warn', 'error')")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to session config")
	rootCmd.PersistentFlags().Float64Var(&refreshRate, "refresh-rate", 0, "display refresh rate in frames per second (default 60)")
	must(rootCmd.MarkPersistentFlagFilename("config"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func addTraceFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&tracePath, "trace", "t", "", "path to a recorded trace event file")
	must(cmd.MarkFlagFilename("trace"))
	must(cmd.MarkFlagRequired("trace"))
}

func newLogger() (xlog.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return xlog.NewConsole(level), nil
}

func makeController(logger xlog.Logger, sampler profiler.Sampler) (*session.Controller, error) {
	var conf *session.Config
	if configPath != "" {
		var err error
		conf, err = session.ParseConfig(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		conf = &session.Config{}
	}

	// A sampler is attached only when the invocation wants profiles.
	if sampler != nil {
		conf.ProfileUISelections = true
	}

	deps := session.Deps{
		Source:  tracesource.NewFileSource(tracePath),
		Sampler: sampler,
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}
	if refreshRate > 0 {
		deps.RefreshRate = session.StaticRefreshRate(refreshRate)
	}
	return session.NewController(conf, deps)
}

// refreshSession runs one refresh cycle while draining state transitions in
// the background, and returns the rebuilt aggregate.
func refreshSession(ctx context.Context, c *session.Controller, logger xlog.Logger) (*timeline.Session, error) {
	sub := c.Subscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for change := range sub.Chan() {
			logger.Debug(gctx, "Session state changed",
				zap.Stringer("state", change.State),
				zap.Uint64("cycle", change.Cycle),
				zap.Error(change.Err))
		}
		return nil
	})

	err := c.Refresh(ctx)
	sub.Close()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	if err != nil {
		return nil, err
	}
	return c.Data(), nil
}
