package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creativeprojects/feedme/cfg"
	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/syncer"
	"github.com/creativeprojects/feedme/term"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "feedme [config]",
	Short:         "Deliver RSS and Atom feeds into mailbox folders",
	Long:          "\nDeliver the new items of RSS and Atom feeds as messages into mailbox folders (IMAP, maildir or local file)",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

func init() {
	cobra.OnInitialize(initLog)
	flag := rootCmd.PersistentFlags()
	flag.StringVarP(&global.envFile, "env", "e", "", "load environment variables from this file")
	flag.BoolVarP(&global.quiet, "quiet", "q", false, "only display warnings and errors")
	flag.BoolVarP(&global.verbose, "verbose", "v", false, "display debugging information")
	flag.BoolVar(&global.trace, "trace", false, "display mailbox protocol traces")
}

func initLog() {
	switch {
	case global.trace:
		term.SetLevel(term.LevelTrace)
	case global.verbose:
		term.SetLevel(term.LevelDebug)
	case global.quiet:
		term.SetLevel(term.LevelWarn)
	}
}

// loadConfig loads the environment file from the command line (if any) before the configuration file
func loadConfig(args []string) (*cfg.Config, error) {
	if len(args) < 1 {
		return nil, errors.New("missing configuration file")
	}
	if global.envFile != "" {
		if err := cfg.LoadEnvFile(global.envFile, true); err != nil {
			return nil, fmt.Errorf("cannot load environment file: %w", err)
		}
	}
	config, err := cfg.LoadFromFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("cannot open or read configuration file: %w", err)
	}
	return config, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := synchronize(ctx, config, !global.quiet && !global.verbose && !global.trace)
	if err != nil {
		return err
	}
	if !global.quiet {
		if err := displayResults(results); err != nil {
			return err
		}
	}
	return nil
}

// synchronize runs all the feeds of the configuration into its mailbox
func synchronize(ctx context.Context, config *cfg.Config, showProgress bool) ([]syncer.Result, error) {
	logger := term.NewLogger("")
	backend, err := newBackend(config.Mailbox, term.NewLogger(string(config.Mailbox.Type)))
	if err != nil {
		return nil, fmt.Errorf("cannot open mailbox: %w", err)
	}
	assigner := feed.NewAssigner(config.Identity.Namespace, config.Identity.Fallback, logger)
	composer, err := syncer.NewComposer(config.Message.From, config.Message.To, assigner)
	if err != nil {
		return nil, fmt.Errorf("invalid message configuration: %w", err)
	}
	feeds := config.FeedList()

	bar := newProgress(len(feeds), showProgress)
	defer bar.stop()

	feedSyncer, err := syncer.New(backend, syncer.Config{
		Workers:  config.HTTP.Workers,
		Fetcher:  feed.NewFetcher(config.FetcherConfig(), logger),
		Assigner: assigner,
		Composer: composer,
		Flags:    config.Message.Flags,
		Logger:   logger,
		Progress: bar.done,
	})
	if err != nil {
		return nil, err
	}
	return feedSyncer.Run(ctx, feeds)
}

func Execute(version, commit, date, builtBy string) {
	setApp(version, commit, date, builtBy)
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built on %s by %s)", version, commit, date, builtBy)
	if err := rootCmd.Execute(); err != nil {
		term.Error(err)
		os.Exit(1)
	}
}
