package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ngld/match/pkg/builtins"
	"github.com/ngld/match/pkg/config"
	"github.com/ngld/match/pkg/match"
)

const (
	exitBuildFailed = 1
	exitUsage       = 2
)

var logger = zerolog.New(NewConsoleWriter(os.Stderr))

var rootCmd = &cobra.Command{
	Use:   "match [root]",
	Short: "Declarative build tool",
	Long: `This command scans the given directory (or the current one) for match files, configures
every target they declare and builds all of them concurrently.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cfg.Log.JSON {
			logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(NewConsoleWriter(os.Stderr))
		}
		logger = logger.Level(cfg.LogLevel())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		root := rootArg(args)
		m := match.New(root, builtins.NewRegistry(), match.Options{
			Concurrency: cfg.Jobs,
			FailFast:    cfg.FailFast,
			Quiet:       cfg.Quiet,
			DryRun:      dryRun,
			Progress:    cfg.Progress,
			ResultsDir:  cfg.ResultsDir,
			Libraries:   cfg.Libraries,
			StateFile:   stateFile(root, cfg),
			Logger:      &logger,
		})

		return m.Light(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "configuration file")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.Flags().IntP("jobs", "j", 0, "maximum number of targets building at once (0 means no limit)")
	rootCmd.Flags().BoolP("quiet", "q", false, "only print errors")
	rootCmd.Flags().BoolP("dry", "n", false, "dry run; scan, parse and configure but don't build anything")
	rootCmd.Flags().BoolP("keep-going", "k", false, "keep building the other targets after a target failed")
	rootCmd.Flags().Bool("progress", false, "show a progress bar while building")
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func stateFile(root string, cfg *config.Config) string {
	if cfg.StateFile == "" || filepath.IsAbs(cfg.StateFile) {
		return cfg.StateFile
	}
	return filepath.Join(root, cfg.StateFile)
}

// loadConfig reads the config file and environment, then applies the flags the user passed
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("jobs") {
		cfg.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("quiet") {
		cfg.Quiet, _ = flags.GetBool("quiet")
	}
	if flags.Changed("keep-going") {
		keepGoing, _ := flags.GetBool("keep-going")
		cfg.FailFast = !keepGoing
	}
	if flags.Changed("progress") {
		cfg.Progress, _ = flags.GetBool("progress")
	}

	return cfg, cfg.Validate()
}

// exitCode maps failures during the build phase to 1 and everything earlier to 2
func exitCode(err error) int {
	var stageErr *match.StageError
	if errors.As(err, &stageErr) && stageErr.BuildTime() {
		return exitBuildFailed
	}
	return exitUsage
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("match failed")
		stop()
		os.Exit(exitCode(err))
	}
}
