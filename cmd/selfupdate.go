package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/creativeprojects/feedme/term"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const (
	repositoryOwner = "creativeprojects"
	repositoryName  = "feedme"
)

var selfUpdateCmd = &cobra.Command{
	Use:   "selfupdate",
	Short: "Download the newest feedme release from GitHub and replace the current binary",
	Args:  cobra.NoArgs,
	RunE:  runSelfUpdate,
}

var (
	appVersion = ""
	appCommit  = ""
	appDate    = ""
	appBuiltBy = ""

	selfUpdateCheckOnly bool
)

func init() {
	selfUpdateCmd.Flags().BoolVar(&selfUpdateCheckOnly, "check", false, "only check if a newer version is available")
	rootCmd.AddCommand(selfUpdateCmd)
}

func setApp(version, commit, date, builtBy string) {
	appVersion = version
	appCommit = commit
	appDate = date
	appBuiltBy = builtBy
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	if global.trace {
		selfupdate.SetLogger(term.NewLogger("selfupdate"))
	}
	// only filters return an error
	updater, _ := selfupdate.NewUpdater(selfupdate.Config{
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repositoryOwner, repositoryName))
	if err != nil {
		return fmt.Errorf("unable to detect latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release of %s found for %s/%s", repositoryName, runtime.GOOS, runtime.GOARCH)
	}
	if latest.LessOrEqual(appVersion) {
		term.Infof("Current version %s (commit %s) is the latest", appVersion, appCommit)
		return nil
	}
	if selfUpdateCheckOnly {
		term.Infof("Version %s is available (current version %s built on %s by %s)", latest.Version(), appVersion, appDate, appBuiltBy)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("unable to update binary: %w", err)
	}
	term.Infof("Successfully updated from %s to version %s", appVersion, latest.Version())
	return nil
}
