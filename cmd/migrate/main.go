package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/worklog-review/internal/platform/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configPath    string
	migrationsDir string
	envFiles      []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("migration failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "worklog-migrate",
		Short:         "Apply database migrations for the work entry review service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.PersistentFlags().StringVar(&opts.migrationsDir, "dir", "assets/migrations", "directory containing migration files")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	for _, action := range []struct {
		name  string
		short string
	}{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back all migrations"},
		{"drop", "Drop everything in the database"},
		{"version", "Print the current migration version"},
	} {
		name := action.name
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return opts.run(name)
			},
		})
	}

	return cmd
}

func (o *options) run(action string) error {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(effectiveConfigPath(o.configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := runMigration(action, o.migrationsDir, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("migration %s: %w", action, err)
	}

	logrus.WithField("action", action).Info("migration completed")
	return nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func runMigration(action, dir, dsn string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				logrus.Info("no migration applied")
				return nil
			}
			return err
		}
		logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("current migration version")
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}
