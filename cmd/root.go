// Package cmd contains the commands of the go-shmem executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/config"
	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/metrics"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// app holds the state shared by the commands of one invocation.
type app struct {
	fs         afero.Fs
	configPath string
	defaults   config.Config

	conf   *config.Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, defaults: config.DefaultConfig()}
	root := &cobra.Command{
		Use:   "go-shmem",
		Short: "Run one-sided communication jobs on a symmetric heap",
		// usage is not helpful for failures of a running job
		SilenceUsage:      true,
		PersistentPreRunE: a.initialize,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "load configuration from file")
	config.AddFlags(root.PersistentFlags(), &a.defaults)
	root.AddCommand(a.localCmd(), a.peCmd(), versionCmd())
	return root
}

// initialize loads the config, sets up logging and metrics and cancels the context on Ctrl ^C.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	conf, err := config.Load(a.fs, a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	logger, err := log.New(conf.Logging)
	if err != nil {
		return err
	}
	a.conf = conf
	a.logger = logger
	a.ctx, a.cancel = signal.NotifyContext(cmd.Context(), os.Interrupt)

	if conf.Metrics.Enabled {
		if _, err := metrics.StartServer(a.ctx, logger.Named("metrics"), conf.Metrics.Listen); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// version needs neither config nor logging
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s+%s+%s\n", Version, Branch, Commit)
		},
	}
}
