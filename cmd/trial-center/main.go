// Package main is the entry point for the trial-center binary.
// It provides a CLI for running the Developer Edition trial pipeline
// against a prompt, serving it over HTTP, and checking the environment.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/internal/report"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/internal/server"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/config"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/devedition"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/guardrail"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/logging"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/pipeline"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/sanitize"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/telemetry"
)

const defaultLogLevel = "info"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for trial-center
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trial-center",
		Short: "Protegrity Developer Edition trial harness",
		Long: `A demonstration harness for the Developer Edition services: semantic
guardrail scoring, sensitive-data discovery, reversible protection and
redaction.

Credentials are read from DEV_EDITION_EMAIL, DEV_EDITION_PASSWORD and
DEV_EDITION_API_KEY (a .env file in the working directory is honoured).
Without them, protect/unprotect is disabled; discovery, guardrail
scoring and redaction still work.

Example:
  echo "My SSN is 078-05-1120" | trial-center run --mode full --domain financial`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckCmd())

	return rootCmd
}

// setup loads configuration and builds the CLI logger shared by every
// subcommand.
func setup(cmd *cobra.Command, pretty bool) (*config.Config, *slog.Logger, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: pretty,
	})
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// buildRunner wires the remote clients and sanitizers into a pipeline
// runner. Clients are created once and shared across runs.
func buildRunner(cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	guardrailClient := guardrail.NewClient(guardrail.Config{
		URL:     cfg.Services.GuardrailURL,
		Timeout: cfg.Services.GuardrailTimeout,
		Logger:  logger,
	})

	sdk, err := devedition.NewClient(devedition.Config{
		Endpoint:    cfg.Services.DiscoveryEndpoint,
		Credentials: cfg.Credentials,
		Timeout:     cfg.Services.SanitizeTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	protect, err := sanitize.New(sdk, sanitize.Config{Method: domain.MethodProtect, Logger: logger})
	if err != nil {
		return nil, err
	}
	redact, err := sanitize.New(sdk, sanitize.Config{Method: domain.MethodRedact, Logger: logger})
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(pipeline.Config{
		Evaluator:   guardrailClient,
		Protect:     protect,
		Redact:      redact,
		Unprotector: sdk,
		Logger:      logger,
	})
}

// newRunCmd creates the batch subcommand: one prompt in, one report out.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once against a prompt",
		Long: `Reads a prompt (multi-line text is processed line by line), runs the
selected pipeline mode against it and writes a report.

The prompt comes from --input; "-" reads standard input.`,
		RunE: runBatch,
	}

	runCmd.Flags().StringP("input", "i", "-", "Prompt file, or - for stdin")
	runCmd.Flags().StringP("mode", "m", string(domain.ModeFull), "Pipeline mode (full, guardrail, discover, protect, redact)")
	runCmd.Flags().StringP("domain", "d", "", "Semantic domain (customer-support, financial, healthcare)")
	runCmd.Flags().StringP("output", "o", "-", "Report file, or - for stdout")
	runCmd.Flags().StringP("format", "f", string(report.FormatText), "Report format (text, json)")

	return runCmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd, true)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	mode, _ := cmd.Flags().GetString("mode")
	semDomain, _ := cmd.Flags().GetString("domain")
	output, _ := cmd.Flags().GetString("output")
	formatRaw, _ := cmd.Flags().GetString("format")

	format, err := report.ParseFormat(formatRaw)
	if err != nil {
		return err
	}

	prompt, err := readPrompt(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	rep, err := runner.Run(cmd.Context(), prompt, semDomain, mode)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), output)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := report.NewWriter(out, format).Write(rep); err != nil {
		return err
	}

	if !rep.Succeeded() {
		return fmt.Errorf("one or more pipeline steps failed; see report %s", rep.ID)
	}
	return nil
}

// readPrompt loads the prompt block from a file or stdin. The whole
// input is one prompt; line structure is preserved by the sanitizer.
func readPrompt(stdin io.Reader, input string) (string, error) {
	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func openOutput(stdout io.Writer, output string) (io.Writer, func(), error) {
	if output == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// swappableRunner lets the serve command replace the pipeline runner
// when the configuration file changes, without restarting the server.
type swappableRunner struct {
	current atomic.Pointer[pipeline.Runner]
}

func (s *swappableRunner) Run(ctx context.Context, prompt, dom, mode string) (*pipeline.Report, error) {
	return s.current.Load().Run(ctx, prompt, dom, mode)
}

// newServeCmd creates the HTTP server subcommand.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Starts the HTTP front end: POST /v1/trial runs the pipeline, /healthz
and /readyz report liveness and service reachability, /metrics exposes
Prometheus metrics. The configuration file is watched and service
endpoints are re-applied on change.`,
		RunE: runServe,
	}

	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd, false)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr != "" {
		cfg.Server.Address = addr
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "trial-center",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}
	swappable := &swappableRunner{}
	swappable.current.Store(runner)

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(path string) error {
			next, err := config.Load(path)
			if err != nil {
				return err
			}
			nextRunner, err := buildRunner(next, logger)
			if err != nil {
				return err
			}
			swappable.current.Store(nextRunner)
			logger.Info("configuration reloaded", "path", path)
			return nil
		}, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	srv, err := server.New(cfg, swappable, logger)
	if err != nil {
		return err
	}

	logger.Info("starting trial-center",
		"address", cfg.Server.Address,
		"guardrail_url", cfg.Services.GuardrailURL,
		"discovery_endpoint", cfg.Services.DiscoveryEndpoint,
		"shared_trial", cfg.SharedTrialMode,
		"credentials", cfg.Credentials.Complete(),
	)

	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// newCheckCmd creates the environment check subcommand.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check credentials and service reachability",
		Long: `Verifies the configuration, reports whether Developer Edition
credentials are present, and probes the guardrail and classification
services. Missing credentials are a warning (protect is disabled);
unreachable services are an error.`,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd, true)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cfg.Credentials.Complete() {
		fmt.Fprintln(out, "credentials: ok")
	} else {
		fmt.Fprintf(out, "credentials: missing %s (protect/unprotect disabled)\n",
			strings.Join(cfg.Credentials.Missing(), ", "))
	}

	probe := &http.Client{Timeout: cfg.Services.HealthTimeout}
	failed := false
	for name, target := range map[string]string{
		"guardrail":      cfg.Services.GuardrailURL,
		"classification": cfg.Services.DiscoveryEndpoint,
	} {
		if err := probeEndpoint(cmd.Context(), probe, target); err != nil {
			fmt.Fprintf(out, "%s: %v\n", name, err)
			failed = true
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", name)
	}

	if failed {
		return fmt.Errorf("one or more services are unreachable")
	}
	return nil
}

func probeEndpoint(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
