package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voglhofer/icebox/internal/config"
	"github.com/voglhofer/icebox/internal/engine"
	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/exclude"
	"github.com/voglhofer/icebox/internal/stats"
	"github.com/voglhofer/icebox/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates flag parsing and run wiring
func run() int {
	var (
		destDir     string
		workers     int
		olderDays   int
		noAtime     bool
		noMtime     bool
		noCtime     bool
		dryRun      bool
		rateLimit   float64
		excludeFile string
		logFile     string
		plainFlag   bool
		verbose     bool
		quiet       bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "icebox [flags] PATH",
		Short: "Relocate stale files into per-owner backup directories",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "icebox %s\n", version)
				return nil
			}

			root := args[0]
			if destDir == "" {
				return errors.New(`required flag "dest" not set`)
			}
			if olderDays < 0 {
				return errors.New("--older must be zero or positive")
			}
			if rateLimit < 0 {
				return errors.New("--rate-limit must be zero or positive")
			}

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}

			// Apply config defaults for flags not explicitly set on CLI.
			applyConfigDefaults(cmd, cfg.Defaults, &workers, &olderDays, &excludeFile, &rateLimit, &quiet)

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			logger := slog.New(logHandler)
			slog.SetDefault(logger)

			if dryRun {
				slog.Info("dry run mode")
			}

			if workers <= 0 {
				workers = runtime.NumCPU()
			}

			// Set up context with signal handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a logging goroutine
			// that writes structured records before forwarding to the presenter.
			presenterEvents := (<-chan event.Event)(events)
			if logFile != "" {
				teed := make(chan event.Event, 256)
				go func() {
					for ev := range events {
						attrs := []slog.Attr{
							slog.String("type", ev.Type.String()),
							slog.String("path", ev.Path),
							slog.Int64("size", ev.Size),
							slog.Int("worker", ev.WorkerID),
						}
						if ev.Dest != "" {
							attrs = append(attrs, slog.String("dest", ev.Dest))
						}
						if ev.Error != nil {
							attrs = append(attrs, slog.String("error", ev.Error.Error()))
						}
						slog.LogAttrs(context.Background(), slog.LevelInfo, "icebox.event", attrs...)
						teed <- ev
					}
					close(teed)
				}()
				presenterEvents = teed
			}

			// Create presenter. Rows go to stdout, so color only when
			// stdout is the terminal.
			ui.ApplyTheme(cfg.Theme)
			isTTY := ui.IsTTY(os.Stdout.Fd())
			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				Stats:     collector,
				Root:      displayRoot(root),
				IsTTY:     isTTY,
				Quiet:     quiet,
				Verbose:   verbose,
				Plain:     plainFlag,
			})

			engineCfg := engine.Config{
				Root:        root,
				Dest:        destDir,
				Workers:     workers,
				OlderDays:   olderDays,
				CheckAtime:  !noAtime,
				CheckMtime:  !noMtime,
				CheckCtime:  !noCtime,
				ExcludeFile: excludeFile,
				DryRun:      dryRun,
				RateLimit:   rateLimit,
				Events:      events,
				Stats:       collector,
			}

			slog.Debug("starting run",
				"root", root,
				"dest", destDir,
				"workers", workers,
				"older_days", olderDays,
				"dry_run", dryRun,
			)

			// Presenter in background, engine in foreground.
			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engineCfg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !quiet {
				summary := presenter.Summary()
				if summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
				if len(result.Stats.Owners) > 1 {
					ui.OwnerTable(os.Stderr, result.Stats)
				}
			}

			if ctx.Err() != nil {
				return &exitError{code: 130} // interrupted
			}

			if result.Err != nil {
				slog.Error("run failed", "error", result.Err)
				var cfgErr *engine.ConfigError
				var patternErr *exclude.ParseError
				if errors.As(result.Err, &cfgErr) || errors.As(result.Err, &patternErr) {
					return &exitError{code: 2} // nothing ran
				}
				return &exitError{code: 1} // partial failure
			}
			if result.Stats.FilesFailed > 0 {
				return &exitError{code: 1}
			}

			return nil
		},
	}

	// Version flag handled in RunE, but also register the flag.
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.Flags().StringVar(&destDir, "dest", "", "destination root for relocated files (required)")
	rootCmd.Flags().
		IntVarP(&workers, "workers", "n", 0, "number of move workers (default: number of CPUs)")
	rootCmd.Flags().
		IntVar(&olderDays, "older", 0, "only relocate files older than DAYS days (0 = any age)")
	rootCmd.Flags().BoolVar(&noAtime, "noatime", false, "ignore access time in the age check")
	rootCmd.Flags().BoolVar(&noMtime, "nomtime", false, "ignore modification time in the age check")
	rootCmd.Flags().BoolVar(&noCtime, "noctime", false, "ignore inode change time in the age check")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be moved without moving")
	rootCmd.Flags().
		StringVar(&excludeFile, "exclude-file", "", "read gitignore-style exclude patterns from FILE")
	rootCmd.Flags().
		Float64Var(&rateLimit, "rate-limit", 0, "maximum moves per second (0 = unlimited)")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVar(&plainFlag, "plain", false, "plain output even on a terminal")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.AddCommand(newDocsCmd())

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	older *int,
	excludeFile *string,
	rateLimit *float64,
	quiet *bool,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("older") && defaults.Older != nil {
		*older = *defaults.Older
	}
	if !cmd.Flags().Changed("exclude-file") && defaults.ExcludeFile != nil {
		*excludeFile = *defaults.ExcludeFile
	}
	if !cmd.Flags().Changed("rate-limit") && defaults.RateLimit != nil {
		*rateLimit = *defaults.RateLimit
	}
	if !cmd.Flags().Changed("quiet") && defaults.Quiet != nil {
		*quiet = *defaults.Quiet
	}
}

// displayRoot mirrors the engine's root canonicalization, best effort, so
// presenter path stripping lines up with the paths events carry.
func displayRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
