package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bwann/qparse/pkg/config"
	"github.com/bwann/qparse/pkg/export"
	"github.com/bwann/qparse/pkg/filter"
	"github.com/bwann/qparse/pkg/parser"
	"github.com/bwann/qparse/pkg/report"
	"github.com/bwann/qparse/pkg/session"
	"github.com/bwann/qparse/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ReportOptions holds command-line options for the report command.
type ReportOptions struct {
	Config     string
	NullModem  bool
	Output     string
	Filter     string
	Database   string
	Percentile int
	Verbose    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report [capture-file...]",
		Short: "Summarize calls from one or more capture logs",
		Long: `Scan capture logs and print one summary row per call plus run-wide
aggregates (connect success rate, download success rate, handshake and
throughput statistics).

Capture files may be given as arguments or listed in a config file, and
may contain glob patterns. Files are read in the order given; records
from separate files are never interleaved.

Exit codes:
  0 - All calls connected and all downloads succeeded
  1 - At least one connect or download failure was recorded
  2 - Configuration or runtime error`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Config file (YAML)")
	cmd.Flags().BoolVar(&opts.NullModem, "nullmodem", false, "Captures are from a direct serial cable, not a modem")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Record filter expression, e.g. 'connect_bps >= 26400'")
	cmd.Flags().StringVar(&opts.Database, "db", "", "Append call records to a SQLite database")
	cmd.Flags().IntVar(&opts.Percentile, "percentile", 0, "Percentile to report for metrics (default 95)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show abort reasons and scan metadata")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Aggregates only, no per-call rows")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "", "When to fire webhook (on_failures|always|never)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string, opts *ReportOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	var cfg *config.Config
	if opts.Config != "" {
		loaded, err := config.Load(ctx, opts.Config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	mergeOptions(cfg, opts)

	// Capture files come from arguments, falling back to the config
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Captures
	}
	if len(patterns) == 0 {
		return fmt.Errorf("no capture files given (pass them as arguments or set captures in the config)")
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		return fmt.Errorf("expanding capture patterns: %w", err)
	}

	connType := session.Modem
	if cfg.Connection == config.ConnectionDirectSerial {
		connType = session.DirectSerial
	}

	// Compile the record filter before scanning so a bad expression fails fast
	var pred func(*session.CallRecord) bool
	if cfg.Filter != "" {
		pred, err = filter.Compile(cfg.Filter)
		if err != nil {
			return err
		}
	}

	source := parser.NewSource(files)
	defer source.Close()

	machine := session.NewMachine(connType, session.WithDiagnostics(os.Stderr))

	store, stats, err := machine.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("scanning captures: %w", err)
	}

	if pred != nil {
		store = store.Filter(pred)
	}

	rep := report.Build(store, stats, report.Metadata{
		Sources:    files,
		Connection: cfg.Connection,
		ScannedAt:  time.Now(),
		Percentile: cfg.Percentile,
	})

	formatter, err := createFormatter(cfg, opts)
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, rep, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Archive the run if a database was configured
	if cfg.Database != "" {
		if err := exportRun(cfg.Database, store, stats, files, cfg.Connection); err != nil {
			return fmt.Errorf("exporting to database: %w", err)
		}
	}

	// Send webhook (errors logged but don't fail the scan)
	sendWebhook(ctx, cfg, rep, stats)

	// Set exit code based on results
	if stats.ConnectFailures() > 0 || stats.DownloadFailures > 0 {
		ExitCode = 1
	}

	return nil
}

// mergeOptions applies flag overrides on top of the loaded config.
func mergeOptions(cfg *config.Config, opts *ReportOptions) {
	if opts.NullModem {
		cfg.Connection = config.ConnectionDirectSerial
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.Filter != "" {
		cfg.Filter = opts.Filter
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Percentile != 0 {
		cfg.Percentile = opts.Percentile
	}
	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnFailures
		}
		cfg.Webhook = &config.WebhookConfig{
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		}
	} else if cfg.Webhook != nil && opts.WebhookTrigger != "" {
		cfg.Webhook.Trigger = config.WebhookTrigger(opts.WebhookTrigger)
	}
}

func createFormatter(cfg *config.Config, opts *ReportOptions) (report.Formatter, error) {
	formatOpts := report.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	}

	switch cfg.Output {
	case config.OutputText:
		return report.NewTextFormatter(formatOpts), nil
	case config.OutputJSON:
		return report.NewJSONFormatter(formatOpts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", cfg.Output)
	}
}

func exportRun(path string, store *session.Store, stats session.RunStats, files []string, connection string) error {
	repo, err := export.Open(path)
	if err != nil {
		return err
	}
	defer repo.Close()

	return repo.SaveRun(store, stats, files, connection)
}

// sendWebhook sends the report to the configured webhook.
// Errors are logged to stderr but don't fail the scan.
func sendWebhook(ctx context.Context, cfg *config.Config, rep *report.Report, stats session.RunStats) {
	if cfg.Webhook == nil || cfg.Webhook.URL == "" {
		return
	}

	hasFailures := stats.ConnectFailures() > 0 || stats.DownloadFailures > 0
	if !shouldFireWebhook(cfg.Webhook.Trigger, hasFailures) {
		return
	}

	client := webhook.NewClient()
	resp := client.Send(ctx, rep, webhook.SendOptions{
		URL:     cfg.Webhook.URL,
		Token:   cfg.Webhook.Token,
		Timeout: cfg.Webhook.Timeout,
	})

	if resp.Success() {
		fmt.Fprintf(os.Stderr, "Webhook: sent (%d, %s)\n", resp.StatusCode, resp.Duration)
	} else {
		fmt.Fprintf(os.Stderr, "Webhook: failed (%v)\n", resp.Error)
	}
}

// shouldFireWebhook determines if a webhook should fire based on trigger and failures.
func shouldFireWebhook(trigger config.WebhookTrigger, hasFailures bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	case config.WebhookTriggerOnFailures:
		return hasFailures
	default:
		// Default to on_failures
		return hasFailures
	}
}
