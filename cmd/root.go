// Package cmd defines the tika-extractor command line.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/config"
	"github.com/JakeFAU/tika-extractor/internal/logging"
)

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"input-file":   "input_file",
	"output-dir":   "output_dir",
	"num-workers":  "workers",
	"metrics-addr": "metrics.addr",
	"max-attempts": "retry.max_attempts",
	"dev-logs":     "logging.development",
}

type rootOptions struct {
	cfgFile    string
	dotEnvFile string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	v := config.New()

	cmd := &cobra.Command{
		Use:   "tika-extractor",
		Short: "Annotate abstracts with Apache Tika cTAKES and GeoTopic parsers.",
		Long: `tika-extractor reads a CSV or XLSX file with doi and abstract columns,
sends every abstract to a Tika server running the cTAKES clinical parser and
to one running the GeoTopic parser, and writes each successful /rmeta
response to <output-dir>/ctakes-json and <output-dir>/geo-json.

Endpoints default to http://localhost:8888 and are read from TIKA_CTAKES_*
and TIKA_GEO_* (SCHEME, HOST, PORT or a full API URI).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(opts.dotEnvFile); err != nil {
				return err
			}
			cfg, err := config.Load(v, opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireIO(); err != nil {
				return err
			}
			return runExtract(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.dotEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("input-file", "", "input CSV or XLSX file with doi and abstract columns")
	flags.String("output-dir", "", "directory that receives ctakes-json and geo-json")
	flags.Int("num-workers", 4, "workers per pipeline")
	flags.String("metrics-addr", "", "serve /metrics, /healthz and /api/pipelines on this address")
	flags.Int("max-attempts", 0, "give up on a record after this many non-200 responses (0 retries forever)")
	flags.Bool("dev-logs", false, "human readable development logs")

	if err := bindFlags(v, cmd); err != nil {
		panic(err)
	}
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start.
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
	_ = logging.L.Sync()
}
