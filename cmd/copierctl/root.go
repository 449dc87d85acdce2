package main

import (
	"encoding/json"
	"fmt"
	"io"

	"trade-copier-go/internal/client"
	"trade-copier-go/internal/config"
	"trade-copier-go/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootConfig is shared by every subcommand.
type rootConfig struct {
	configDir string
	baseURL   string
	logLevel  string

	cfg    config.Config
	log    *zap.Logger
	client client.ClientInterface
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:   "copierctl",
		Short: "Talk to a trade copier relay as a master or slave terminal",
		Long: `copierctl submits master trades, closures and TP/SL changes to a relay,
and polls it on behalf of a slave account.

Example:
  copierctl submit --master 1 --ticket 555 --symbol EURUSD --type buy --volume 1 --open-price 1.1
  copierctl watch --slave 9 --master 1`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rc.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rc.log != nil {
				_ = rc.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&rc.configDir, "config", "./configs", "directory holding config.yml")
	cmd.PersistentFlags().StringVar(&rc.baseURL, "base-url", "", "relay URL, overrides client.base_url")
	cmd.PersistentFlags().StringVar(&rc.logLevel, "log-level", "", "log level, overrides logger.level")

	cmd.AddCommand(
		newSubmitCmd(rc),
		newCloseCmd(rc),
		newTPSLCmd(rc),
		newPollCmd(rc),
		newWatchCmd(rc),
	)
	return cmd
}

func (rc *rootConfig) init() error {
	cfg, err := config.LoadConfig(rc.configDir)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if rc.baseURL != "" {
		cfg.Client.BaseURL = rc.baseURL
	}
	if rc.logLevel != "" {
		cfg.Logger.Level = rc.logLevel
	}
	rc.cfg = cfg

	if rc.log == nil {
		if rc.log, err = logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "copierctl"); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	if rc.client == nil {
		rc.client = client.NewRestClient(&rc.cfg.Client, rc.log)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
