package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"FeedbackScanner/internal/app"
	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/logging"
)

var (
	requestFile string
	compactJSON bool
)

var rootCmd = &cobra.Command{
	Use:          "feedbackscanner",
	Short:        "Collect, classify and triage customer feedback",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the optional scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one batch run and print the result as JSON",
	Long: `Reads a run request (sources, queries, uploads) from a JSON file,
executes ingest, dedup and classification once and writes the batch result to stdout.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&requestFile, "request", "r", "", "path to the JSON run request")
	runCmd.Flags().BoolVar(&compactJSON, "compact", false, "print compact JSON")
	_ = runCmd.MarkFlagRequired("request")

	rootCmd.AddCommand(serveCmd, runCmd)
}

func setup(cmd *cobra.Command) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build application: %w", err)
	}
	return application, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Serve(cmd.Context()); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if requestFile == "" {
		return errors.New("--request is required")
	}
	req, err := app.LoadRequest(requestFile)
	if err != nil {
		return err
	}

	application, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	res, err := application.RunOnce(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !compactJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
