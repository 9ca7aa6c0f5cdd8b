package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/worklog-review/internal/adapters/messaging/natspub"
	"github.com/ogurasousui/worklog-review/internal/adapters/repository/postgres"
	"github.com/ogurasousui/worklog-review/internal/core/employment"
	"github.com/ogurasousui/worklog-review/internal/core/hierarchy"
	"github.com/ogurasousui/worklog-review/internal/core/verification"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"github.com/ogurasousui/worklog-review/internal/platform/config"
	pg "github.com/ogurasousui/worklog-review/internal/platform/db/postgres"
	"github.com/ogurasousui/worklog-review/internal/platform/logging"
	"github.com/ogurasousui/worklog-review/internal/platform/metrics"
	"github.com/ogurasousui/worklog-review/internal/platform/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
	)

	cmd := &cobra.Command{
		Use:           "worklog-server",
		Short:         "Work entry review gRPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := run(cmd.Context(), configPath, envFiles); err != nil {
				logrus.WithError(err).Error("server stopped with error")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	return cmd
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

func run(ctx context.Context, configPath string, envFiles []string) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(effectiveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger)

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	opts := []workentry.Option{
		workentry.WithTransactionManager(pg.NewTransactionManager(dbPool)),
		workentry.WithRecorder(metrics.NewRecorder(prometheus.DefaultRegisterer)),
		workentry.WithLogger(log.WithField("component", "workentry")),
	}

	if cfg.NATS.Enabled {
		conn, err := natspub.Connect(cfg.NATS)
		if err != nil {
			return err
		}
		defer natspub.Close(conn)
		opts = append(opts, workentry.WithPublisher(natspub.NewPublisher(conn, cfg.NATS.SubjectPrefix)))
		log.WithField("url", cfg.NATS.URL).Info("publishing approval events to nats")
	}

	workEntrySvc := workentry.NewService(
		postgres.NewWorkEntryRepository(dbPool),
		employment.NewGate(postgres.NewEmploymentRepository(dbPool), nil),
		hierarchy.NewAuthorizer(postgres.NewReviewerGrantRepository(dbPool)),
		verification.NewGate(postgres.NewOrganizationRepository(dbPool)),
		opts...,
	)

	g, gctx := errgroup.WithContext(ctx)

	grpcServer := server.New(cfg.Server.ListenAddr, workEntrySvc, log.WithField("component", "grpc"))
	g.Go(func() error {
		log.WithField("addr", cfg.Server.ListenAddr).Info("gRPC server listening")
		return grpcServer.Run(gctx)
	})

	if cfg.Ops.ListenAddr != "" {
		opsServer := server.NewOpsServer(cfg.Ops.ListenAddr, server.NewOpsRouter(dbPool, prometheus.DefaultGatherer))
		g.Go(func() error {
			log.WithField("addr", cfg.Ops.ListenAddr).Info("ops server listening")
			return opsServer.Run(gctx)
		})
	}

	return g.Wait()
}
