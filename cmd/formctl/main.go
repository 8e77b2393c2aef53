// Command formctl runs maintenance tasks against the form builder database:
// schema migration, fixture seeding, a one-off support sync and admin token
// issuing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"formbuilder.io/formbuilder/internal/config"
	"formbuilder.io/formbuilder/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "formctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config
	load := func() (*config.Config, error) {
		if cfg != nil {
			return cfg, nil
		}
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := logger.Init(loaded.Log.Level, loaded.Log.Format); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		cfg = loaded
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Form builder maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	root.AddCommand(
		newMigrateCmd(load),
		newSeedCmd(load),
		newSyncCmd(load),
		newTokenCmd(load),
	)
	return root
}
