package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimexpiry/internal/expiry"
	"github.com/ppiankov/claimexpiry/internal/host/memhost"
	"github.com/ppiankov/claimexpiry/internal/metrics"
)

var (
	runWorld       string
	runSave        string
	runMetricsAddr string
	runTick        time.Duration
	runDuration    time.Duration
	runNoCache     bool
)

var (
	expiryLogger = loggo.GetLogger("claimexpiry.expiry")
	hostLogger   = loggo.GetLogger("claimexpiry.host")
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the expiration scan against a world file",
	Long: `Run loads a world file into a simulated host and runs the expiration
scan on it until interrupted or until --duration elapses.

Configuration changes are picked up while running and apply from the
next evaluation cycle.

Example:
  claimexpiry run --world world.yaml
  claimexpiry run --world world.yaml --tick 1ms --duration 30s --save after.yaml
  claimexpiry run --world world.yaml --metrics-addr :9120`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runWorld, "world", "", "world file (default: host.world from config)")
	runCmd.Flags().StringVar(&runSave, "save", "", "write the resulting world to this file on exit")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	runCmd.Flags().DurationVar(&runTick, "tick", 0, "wall time per simulated tick (default: host.tick_duration)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (default: run until interrupted)")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "disable the owner name cache")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if runTick > 0 {
		cfg.Host.TickDuration = runTick
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Addr = runMetricsAddr
	}
	if runNoCache {
		cfg.Cache.Enabled = false
	}

	path, err := worldPath(runWorld, cfg)
	if err != nil {
		return err
	}
	world, err := memhost.LoadWorld(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	state := memhost.NewState(world)
	h, err := memhost.New(memhost.Config{
		State:        state,
		Clock:        clock.WallClock,
		Logger:       hostLogger,
		TickDuration: cfg.Host.TickDuration,
	})
	if err != nil {
		return fmt.Errorf("start host: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Addr != "" {
		collector = metrics.NewCollector()
		srv, err := serveMetrics(cfg.Metrics.Addr, collector)
		if err != nil {
			h.Kill()
			_ = h.Wait()
			return err
		}
		defer func() { _ = srv.Close() }()
	}

	settings := expiry.NewSettings(cfg.Expiration, expiryLogger)
	names := expiry.NewNames(state, newCache(cfg.Cache))
	executor := expiry.NewExecutor(state, state, names, expiryLogger, collector)
	executor.AddHook(expiry.HookFunc(logExpiration))

	limiter := newSyncLimiter(cfg.Sync)

	scheduler, err := expiry.NewScheduler(expiry.Config{
		Host:        h,
		Claims:      state,
		Evaluator:   expiry.NewEvaluator(state, state, clock.WallClock, expiryLogger),
		Executor:    executor,
		Settings:    settings,
		Logger:      expiryLogger,
		Limiter:     limiter,
		Metrics:     collector,
		SyncTimeout: cfg.Sync.Timeout,
	})
	if err != nil {
		h.Kill()
		_ = h.Wait()
		return fmt.Errorf("create scheduler: %w", err)
	}

	watchConfig(scheduler)

	claimsBefore := len(state.Claims())
	logger.Infof("scanning %d claims from %s, %s", claimsBefore, path, describeRate(settings.Rate))

	if err := scheduler.Start(ctx); err != nil {
		h.Kill()
		_ = h.Wait()
		return err
	}

	<-ctx.Done()
	scheduler.Stop()
	h.Kill()
	if err := h.Wait(); err != nil {
		return fmt.Errorf("host stopped: %w", err)
	}

	progress := scheduler.Progress()
	claimsAfter := len(state.Claims())
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Ticks:       %s\n", humanize.Comma(int64(h.Tick())))
	fmt.Fprintf(os.Stderr, "  Generation:  %d (%d of %d owners left)\n", progress.Generation, progress.Remaining, progress.Population)
	fmt.Fprintf(os.Stderr, "  Claims:      %d → %d\n", claimsBefore, claimsAfter)
	fmt.Fprintf(os.Stderr, "  Commands:    %d dispatched\n", len(state.Dispatched()))
	fmt.Fprintf(os.Stderr, "\n")

	if runSave != "" {
		if err := memhost.SaveWorld(runSave, state.World()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote world: %s\n", runSave)
	}
	return nil
}

// logExpiration records every claim about to be deleted; it never vetoes
func logExpiration(ev expiry.ClaimExpiringEvent) expiry.Decision {
	logger.Infof("expiring claim %d in %s (area %s) of %s, inactive for %s",
		ev.Claim.ID, ev.Claim.World, humanize.Comma(int64(ev.Claim.Area())),
		ev.Claim.Owner, expiry.Days(ev.Inactive))
	return expiry.Continue
}

func describeRate(r expiry.Rate) string {
	if r.Type == expiry.RateCount {
		return fmt.Sprintf("%s owners per hour", humanize.FtoaWithDigits(r.Value, 2))
	}
	return fmt.Sprintf("%s%% of owners per hour", humanize.FtoaWithDigits(r.Value, 2))
}

// watchConfig reloads the expiration settings when the config file changes
func watchConfig(s *expiry.Scheduler) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			logger.Warningf("ignoring config change in %s: %v", e.Name, err)
			return
		}
		s.Reload(expiry.NewSettings(cfg.Expiration, expiryLogger))
		logger.Infof("reloaded expiration settings from %s", e.Name)
	})
	viper.WatchConfig()
}

// serveMetrics exposes collector on addr until the returned server is closed
func serveMetrics(addr string, collector *metrics.Collector) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warningf("metrics server: %v", err)
		}
	}()
	logger.Infof("serving metrics on %s/metrics", addr)
	return srv, nil
}

