package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/config"
	"github.com/johnwards/crmproxy/internal/insight"
	"github.com/johnwards/crmproxy/internal/logger"
)

func newInsightCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Score one contact and print the insight as JSON",
		Long:  "Reads contact JSON from --file, or from stdin when no file is given, and prints the model's lead score and sales tip.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInsight(cmd, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "contact JSON file (default stdin)")
	return cmd
}

func runInsight(cmd *cobra.Command, file string) error {
	cfg, err := config.Read(envFiles...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.GeminiToken) == "" {
		return fmt.Errorf("%w: GEMINI_TOKEN", config.ErrMissingCredential)
	}

	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var in io.Reader = cmd.InOrStdin()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read contact: %w", err)
	}
	if !json.Valid(data) {
		return errors.New("contact data is not valid JSON")
	}

	gen, err := insight.NewGemini(cmd.Context(), insight.GeminiConfig{
		APIKey:  cfg.GeminiToken,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return err
	}

	result, err := insight.NewService(gen, log).Analyze(cmd.Context(), data)
	if err != nil {
		log.Debug("insight failed", zap.Error(err))
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
