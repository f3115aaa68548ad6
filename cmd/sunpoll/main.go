package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/logging"
)

var errRunFailed = errors.New("run failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	run := runCmd(&configFile)
	rootCmd := &cobra.Command{
		Use:           constants.ServiceName,
		Short:         "Poll a solar inverter once and store the readings",
		Long:          "sunpoll fetches the inverter's realtime document, validates the readings and writes them to every configured sink.",
		RunE:          run.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default $CONFIG_FILE or /config.ini)")

	rootCmd.AddCommand(run)
	rootCmd.AddCommand(checkConfigCmd(&configFile))

	return rootCmd
}

func resolveConfigFile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(constants.ConfigFileEnv); env != "" {
		return env
	}
	return constants.DefaultConfigFile
}

func runCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one poll and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLogTo(cmd.ErrOrStderr())

			path := resolveConfigFile(*configFile)
			cfg, err := config.Load(path)
			if err != nil {
				earlyLog.Error("Failed to load config %s: %v", path, err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			runErr := app.Run(ctx)
			if err := app.Shutdown(context.Background()); err != nil {
				log.WarnwCtx(ctx, "Shutdown finished with errors", "error", err)
			}
			if runErr != nil {
				return fmt.Errorf("%w: %v", errRunFailed, runErr)
			}
			return nil
		},
	}
}

func checkConfigCmd(configFile *string) *cobra.Command {
	var withProbe bool

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the config file, then print the enabled sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLogTo(cmd.ErrOrStderr())

			path := resolveConfigFile(*configFile)
			cfg, err := config.Load(path)
			if err != nil {
				earlyLog.Error("Config %s is invalid: %v", path, err)
				return err
			}
			if _, err := telemetry.LookupSchema(cfg.General.Schema); err != nil {
				earlyLog.Error("Config %s is invalid: %v", path, err)
				return err
			}

			sinks := cfg.EnabledSinks()
			if len(sinks) == 0 {
				sinks = []string{"none"}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s\n", path)
			fmt.Fprintf(out, "url: %s\n", cfg.General.URL)
			fmt.Fprintf(out, "schema: %s\n", cfg.General.Schema)
			fmt.Fprintf(out, "sinks: %s\n", strings.Join(sinks, ", "))

			if !withProbe {
				return nil
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			return probe(cmd.Context(), cfg, log, out)
		},
	}

	cmd.Flags().BoolVar(&withProbe, "probe", false, "Also check that the inverter and every enabled sink backend are reachable")
	return cmd
}
