package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caselka/DirtyWaters/internal/circuit"
	"github.com/caselka/DirtyWaters/internal/classify"
	"github.com/caselka/DirtyWaters/internal/config"
	"github.com/caselka/DirtyWaters/internal/database"
	"github.com/caselka/DirtyWaters/internal/engine"
	"github.com/caselka/DirtyWaters/internal/log"
	"github.com/caselka/DirtyWaters/internal/model"
	"github.com/caselka/DirtyWaters/internal/report"
	"github.com/caselka/DirtyWaters/internal/retry"
	"github.com/caselka/DirtyWaters/internal/session"
	"github.com/caselka/DirtyWaters/internal/tor"
	"github.com/caselka/DirtyWaters/internal/wordlist"
)

// exitCodeInterrupted is the conventional shell status for a SIGINT-killed
// process (128 + signal 2).
const exitCodeInterrupted = 130

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a password audit against the configured login endpoint",
		Long: `Run reads the YAML configuration, loads the password candidate list, and
tries each candidate against the target's wp-login.php through the Tor
SOCKS5 proxy. The Tor identity is rotated every attempts_per_circuit
attempts via the control port, and attempts are paced by rate_limit.

The run stops at the first successful login, when the candidate list is
exhausted, or on interruption (Ctrl-C produces a partial report).

Examples:
  # Run with config.yaml from the current directory or XDG config home
  dirtywaters run

  # Run with an explicit configuration file
  dirtywaters run -c engagement/config.yaml

  # Skip the interactive authorization prompt (for scripted use)
  dirtywaters run --agree

  # Launch a private Tor daemon instead of using a system one
  dirtywaters run --embedded-tor

  # Write a JSON report to a file
  dirtywaters run --json -o report.json`,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: config.yaml in current directory or XDG config home)")
	cmd.Flags().Bool("agree", false,
		"Acknowledge the authorized-use notice non-interactively")
	cmd.Flags().Bool("embedded-tor", false,
		"Launch a private Tor daemon instead of using the configured proxy")
	cmd.Flags().Bool("history", false,
		"Save the finished run to the local history database")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// The authorized-use gate comes before any network activity. A refusal
	// is a clean exit, not an error.
	agree, err := cmd.Flags().GetBool("agree")
	if err != nil {
		return err
	}
	if !agree && !confirmAuthorizedUse(cmd.InOrStdin(), cmd.OutOrStdout()) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	warnIfRoot(cmd.ErrOrStderr())

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// An interrupt cancels the run context; the engine honors it at the
	// next safe point and returns a partial report.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing current attempt...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runAttack(ctx, cfg, logger)
}

// buildConfig loads the configuration file and layers CLI flags on top.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default search may
	// come up empty only if no file exists anywhere, which Validate then
	// reports as missing required fields.
	foundPath := config.FindConfigFile(configPath)
	if foundPath == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: create one with 'dirtywaters init'", config.ErrConfigNotFound)
	}

	cfg, err := config.Load(foundPath)
	if err != nil {
		return nil, err
	}

	if verbose := getVerboseFlag(cmd); verbose {
		cfg.Verbose = true
	}
	if changed(cmd, "embedded-tor") {
		cfg.EmbeddedTor, err = cmd.Flags().GetBool("embedded-tor")
		if err != nil {
			return nil, err
		}
	}
	if changed(cmd, "history") {
		cfg.History, err = cmd.Flags().GetBool("history")
		if err != nil {
			return nil, err
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// changed reports whether the named flag was set on the command line, so a
// flag's default does not silently override the config file.
func changed(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runAttack wires the components together and executes the run.
func runAttack(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	candidates, err := wordlist.Load(cfg.PasswordFile, cfg.WordlistEncoding)
	if err != nil {
		return fmt.Errorf("failed to load password file: %w", err)
	}
	logger.Info("candidate list loaded",
		"file", cfg.PasswordFile,
		"candidates", len(candidates),
		"encoding", cfg.WordlistEncoding)

	client, cleanup, err := setupTor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := session.New(
		client.NewHTTPClientWithHeaders(browserHeaders(cfg.UserAgent)),
		cfg.TargetURL,
		cfg.Username,
		session.WithMaxBodySize(cfg.MaxBodySize),
		session.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create login session: %w", err)
	}

	manager := circuit.NewManager(cfg.ControlAddress, cfg.ControlPassword,
		circuit.WithLogger(logger))

	retrier := retry.New(
		retry.WithMaxRetries(cfg.RetryMaxRetries),
		retry.WithBaseDelay(cfg.RetryBaseDelay),
		retry.WithBackoffFactor(cfg.RetryBackoffFactor),
		retry.WithLogger(logger),
	)

	eng := engine.New(sess, manager,
		classify.New(cfg.SuccessIndicators, cfg.FailureIndicators),
		candidates,
		cfg.TargetURL,
		cfg.Username,
		engine.WithRotationInterval(cfg.AttemptsPerCircuit),
		engine.WithRateLimit(cfg.RateLimit),
		engine.WithRetryHandler(retrier),
		engine.WithLogger(logger),
	)

	attackReport, runErr := eng.Run(ctx)
	if attackReport == nil {
		// Preflight failed: no attempt was issued, nothing to report.
		return runErr
	}

	if err := outputReport(cfg, attackReport); err != nil {
		logger.Error("failed to write report", "error", err)
	}
	if cfg.History {
		// The run context may already be cancelled (interrupted run);
		// persisting the partial report must still work.
		if err := saveRunReport(context.Background(), cfg, attackReport, logger); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}

	if runErr != nil {
		return &exitError{code: 1, err: runErr}
	}
	if attackReport.Outcome == model.RunInterrupted {
		return &exitError{code: exitCodeInterrupted}
	}
	return nil
}

// setupTor builds the Tor client: either against the configured external
// proxy or by launching a private daemon. The returned cleanup stops the
// embedded daemon, and is a no-op for the external case.
func setupTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tor.Client, func(), error) {
	if !cfg.EmbeddedTor {
		client, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}

		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.ProxyAddress)
		}
		logger.Info("Tor proxy connection verified", "address", cfg.ProxyAddress)

		return client, func() {}, nil
	}

	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	cleanup := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr())

	// The private daemon's ephemeral addresses replace the configured ones
	// for the rest of the run.
	cfg.ProxyAddress = embedded.SocksAddr()
	cfg.ControlAddress = embedded.ControlAddr()

	client, err := embedded.NewClient(cfg.Timeout)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		cleanup()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	return client, cleanup, nil
}

// browserHeaders returns the headers injected into every request to the
// target. Login endpoints treat obviously scripted clients differently,
// which would skew the classifier's view of the responses.
func browserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
}

// outputReport writes the report in the requested format to stdout or the
// configured file.
func outputReport(cfg *config.Config, attackReport *model.AttackReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// 0600: the report may contain a working credential.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(attackReport)
	return err
}

// saveRunReport persists the finished run to the history database.
func saveRunReport(ctx context.Context, cfg *config.Config, attackReport *model.AttackReport, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveReport(ctx, attackReport)
	if err != nil {
		return err
	}

	logger.Info("run saved to history", "run_id", id, "dir", cfg.DBDir)
	return nil
}
