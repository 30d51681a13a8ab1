package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/internal/spam"
	"contactguard/pkg/cel"
	"contactguard/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Contact form intake service",
		Long:  "Contact Service accepts contact form submissions, screens them for abuse and forwards them to a mail relay",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (defaults to CONFIG_FILE, optional)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkConfigCmd())
	rootCmd.AddCommand(checkRuleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigFile() string {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	return configFile
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contact service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(constants.ServiceName)

			path := resolveConfigFile()
			if path == "" {
				earlyLog.Info("No config file given, using defaults and environment")
			}
			cfg, err := config.Load(path)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}
			switch cfg.Logging.Level {
			case "debug", "info", "warn", "error":
			default:
				earlyLog.Warn("Unknown logging.level %q, using info", cfg.Logging.Level)
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Contact Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			log.InfowCtx(ctx, "Service running")
			runErr := app.Run(ctx)
			if err := app.Shutdown(context.Background()); err != nil {
				log.ErrorwCtx(ctx, "Shutdown finished with errors", "error", err)
			}
			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func checkConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and spam rules, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigFile())
			if err != nil {
				return err
			}

			classifier, err := spam.NewClassifier(cfg.Spam, logger.NopLogger())
			if err != nil {
				return fmt.Errorf("invalid spam rules: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (transport=%s, shared_store=%t, spam_rules=%d)\n",
				cfg.Mail.Transport, cfg.Redis.Enabled(), classifier.RuleCount())
			return nil
		},
	}
}

func checkRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-rule [expression...]",
		Short: "Compile spam rule expressions, or list the example rules when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			eval, err := cel.NewEvaluator()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names := make([]string, 0, len(cel.RuleExamples))
				for name := range cel.RuleExamples {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "%s: %s\n", name, cel.RuleExamples[name])
				}
				return nil
			}

			var failed int
			for _, expr := range args {
				if err := eval.ValidateExpression(expr); err != nil {
					fmt.Fprintf(out, "INVALID %s: %v\n", expr, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "OK %s\n", expr)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d expressions failed to compile", failed, len(args))
			}
			return nil
		},
	}
}
