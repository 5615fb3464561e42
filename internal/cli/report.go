package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimexpiry/internal/expiry"
	"github.com/ppiankov/claimexpiry/internal/host/memhost"
	"github.com/ppiankov/claimexpiry/internal/model"
	"github.com/ppiankov/claimexpiry/internal/render"
	"github.com/ppiankov/claimexpiry/internal/worker"
)

var (
	reportWorld       string
	reportFormat      string
	reportOut         string
	reportOwners      string
	reportAll         bool
	reportConcurrency int
	reportTimeout     time.Duration
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show which claims a scan would expire, without deleting anything",
	Long: `Report evaluates every claim owner in a world file against the current
configuration and lists the claims that are past their protection window.
Nothing is deleted and no commands are dispatched.

The pacing section shows the delay between evaluation cycles and how long
one full pass over the owners would take at the configured rate.

Example:
  claimexpiry report --world world.yaml
  claimexpiry report --world world.yaml --all
  claimexpiry report --world world.yaml --format json --out audit.json
  claimexpiry report --world world.yaml --owners suspects.txt`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportWorld, "world", "", "world file (default: host.world from config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "output format (text, json, yaml)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output path (default: stdout)")
	reportCmd.Flags().StringVar(&reportOwners, "owners", "", "only audit the owner UUIDs listed in this file")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "list every owner in text output, not only those with expiring claims")
	reportCmd.Flags().IntVar(&reportConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	reportCmd.Flags().DurationVar(&reportTimeout, "timeout", 5*time.Minute, "total timeout for the audit")
}

func runReport(cmd *cobra.Command, args []string) (err error) {
	format, err := render.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	path, err := worldPath(reportWorld, cfg)
	if err != nil {
		return err
	}
	world, err := memhost.LoadWorld(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	// Nothing mutates the state during an audit, so it is read directly
	// rather than through a running host.
	state := memhost.NewState(world)
	settings := expiry.NewSettings(cfg.Expiration, expiryLogger)
	evaluator := expiry.NewEvaluator(state, state, clock.WallClock, expiryLogger)
	auditor := expiry.NewAuditor(evaluator, settings, expiry.NewNames(state, newCache(cfg.Cache)), state.Claims())
	processor := worker.NewAuditProcessor(auditor, reportConcurrency, nil)

	var audits []model.OwnerAudit
	if reportOwners != "" {
		audits, err = processor.ProcessFile(ctx, reportOwners)
		if err != nil {
			return err
		}
	} else {
		owners := auditor.Owners()
		logger.Debugf("auditing %d owners with %d workers", len(owners), reportConcurrency)
		audits = processor.ProcessOwners(ctx, owners)
	}
	report := expiry.BuildReport(path, settings, audits, time.Now())

	var w io.Writer = os.Stdout
	if reportOut != "" {
		f, createErr := os.Create(reportOut)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		w = f
	}

	if err := render.NewRenderer(reportAll).Render(w, report, format); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if reportOut != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", reportOut)
	}
	return nil
}
