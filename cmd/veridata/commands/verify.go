// Package commands implements the veridata CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/internal/config"
	"github.com/veridata/veridata/internal/observability"
	"github.com/veridata/veridata/internal/render"
	"github.com/veridata/veridata/internal/repository"
	"github.com/veridata/veridata/internal/source"
	"github.com/veridata/veridata/internal/statestore"
	"github.com/veridata/veridata/internal/suitespec"
	"github.com/veridata/veridata/internal/verification"
)

// ErrVerificationFailed is returned (and mapped to a non-zero exit code)
// when a suite finishes with error status.
var ErrVerificationFailed = errors.New("verification failed")

type verifyOptions struct {
	suitePath  string
	csvPath    string
	table      string
	saveStates string
}

// NewVerifyCommand builds the verify subcommand.
func NewVerifyCommand() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a check suite against a dataset",
		Long: `Verify runs the checks of a suite file against a dataset.

The dataset is either a CSV file loaded into the embedded database (--csv)
or an existing table of the configured database (--table).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.suitePath, "suite", "s", "", "suite definition file (required)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file to load and verify")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "table to verify (default: suite table or CSV file name)")
	cmd.Flags().StringVar(&opts.saveStates, "save-states", "", "write analyzer states to this snapshot file")
	_ = cmd.MarkFlagRequired("suite")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *verifyOptions) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	suite, err := suitespec.LoadFile(opts.suitePath)
	if err != nil {
		return err
	}

	checks, err := suite.Compile()
	if err != nil {
		return err
	}

	recorder, stopMetrics := setupMetrics(cfg, logger)
	defer stopMetrics()

	be, table, err := openDataset(cmd, cfg, recorder, opts.csvPath, firstNonEmpty(opts.table, suite.Table))
	if err != nil {
		return err
	}

	result, err := runSuite(cmd, be, table, checks, recorder, logger)
	if err != nil {
		return err
	}

	render.Report(cmd.OutOrStdout(), result)

	if opts.saveStates != "" {
		if err := statestore.Save(opts.saveStates, result.States()); err != nil {
			return err
		}

		logger.Info("analyzer states saved", "path", opts.saveStates)
	}

	if cfg.History.Enabled {
		if err := storeHistory(cmd, cfg, result); err != nil {
			return err
		}
	}

	if result.Status == check.StatusError {
		return fmt.Errorf("%w: suite %s on %s", ErrVerificationFailed, suite.Name, table)
	}

	return nil
}

func runSuite(
	cmd *cobra.Command,
	be *backend.SQLite,
	table string,
	checks []*check.Check,
	recorder *observability.Recorder,
	logger *slog.Logger,
) (*verification.Result, error) {
	return verification.OnTable(be, table).
		AddChecks(checks...).
		WithRecorder(recorder).
		WithLogger(logger).
		Run(cmd.Context())
}

// setupMetrics starts the Prometheus endpoint for the lifetime of the run
// when metrics are enabled. Long verifications over large tables are the
// scrape target; short runs simply come and go between scrapes.
func setupMetrics(cfg *config.Config, logger *slog.Logger) (*observability.Recorder, func()) {
	if !cfg.Metrics.Enabled {
		return nil, func() {}
	}

	registry := prometheus.NewRegistry()
	recorder := observability.NewRecorder(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics endpoint failed", "listen", cfg.Metrics.Listen, "error", err)
		}
	}()

	return recorder, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}
}

func storeHistory(cmd *cobra.Command, cfg *config.Config, result *verification.Result) error {
	historyDB, err := backend.Open(cfg.History.DSN)
	if err != nil {
		return err
	}

	repo, err := repository.New(historyDB.DB())
	if err != nil {
		return err
	}

	return repo.Store(cmd.Context(), result)
}

// loadConfig resolves the root --config flag, loads the configuration and
// installs its logger as the process default.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// openDataset opens the backend and resolves the target table, loading the
// CSV file first when one is given.
func openDataset(
	cmd *cobra.Command,
	cfg *config.Config,
	recorder *observability.Recorder,
	csvPath, table string,
) (*backend.SQLite, string, error) {
	be, err := backend.Open(cfg.Database.DSN, backend.WithRecorder(recorder))
	if err != nil {
		return nil, "", err
	}

	if csvPath == "" {
		if table == "" {
			return nil, "", errors.New("either --csv or --table is required")
		}

		return be, table, nil
	}

	if table == "" {
		table = tableNameFromPath(csvPath)
	}

	rows, err := source.LoadCSV(cmd.Context(), be, table, csvPath, source.Options{})
	if err != nil {
		return nil, "", err
	}

	slog.Default().Info("dataset loaded", "table", table, "rows", rows, "source", csvPath)

	return be, table, nil
}

// tableNameFromPath derives a SQL-friendly table name from a file name.
func tableNameFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}

	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
