package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/api/middleware"
	"formbuilder.io/formbuilder/internal/app/modules"
	"formbuilder.io/formbuilder/internal/config"
	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/infrastructure"
	"formbuilder.io/formbuilder/internal/pkg/logger"
)

type configLoader func() (*config.Config, error)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the form tables and the River queue tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := infrastructure.NewDatabaseClients(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Migrate(cmd.Context())
		},
	}
}

func newSeedCmd(load configLoader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the forms described in a YAML fixture file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()
			fixture, err := LoadFixture(f)
			if err != nil {
				return err
			}

			forms, closeFn, err := openForms(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := domain.WithActor(cmd.Context(), domain.SystemActor)
			report, err := fixture.Apply(ctx, forms.Forms())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d forms, %d fields; skipped %d existing\n",
				report.Forms, report.Fields, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "forms.yaml", "fixture file")
	return cmd
}

func newSyncCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Repair support records of unsynced forms once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			forms, closeFn, err := openForms(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := forms.SyncWorker().Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, repaired %d, failed %d\n",
				summary.Scanned, summary.Repaired, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d forms could not be repaired", summary.Failed)
			}
			return nil
		},
	}
}

func newTokenCmd(load configLoader) *cobra.Command {
	var (
		subject  string
		username string
		roles    []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			jwtCfg := modules.NewJWTConfig(cfg)
			if ttl > 0 {
				jwtCfg.ExpiresIn = ttl
			}
			token, expiresAt, err := middleware.GenerateToken(jwtCfg, subject, username, roles)
			if err != nil {
				return err
			}
			logger.Info("token issued", zap.String("subject", subject), zap.Strings("roles", roles),
				zap.Time("expires_at", expiresAt))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id recorded as the actor of changes")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringSliceVar(&roles, "role", []string{middleware.RoleEditor}, "granted roles")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.token_ttl)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// openForms wires the form services without the HTTP server or River.
// Events are delivered inline so the audit log is complete on exit.
func openForms(cmd *cobra.Command, cfg *config.Config) (*modules.FormsModule, func(), error) {
	infra, err := modules.NewInfrastructure(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	infra.Events = modules.NewInlinePublisher(infra.Dispatcher)
	forms := modules.NewFormsModule(infra)
	modules.NewGovernanceModule(infra)
	return forms, infra.Close, nil
}
