package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"contract-announcer/internal/announcer/config"
	"contract-announcer/internal/announcer/service"
	"contract-announcer/pkg/logger"
	"contract-announcer/pkg/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rank and publish opportunities once",
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the announcer on the configured cron schedule",
	RunE:  runSchedule,
}

var verifyPublisherCmd = &cobra.Command{
	Use:   "verify-publisher",
	Short: "Check the Telegram bot credentials",
	RunE:  verifyPublisher,
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	runCtx, cancel := context.WithTimeout(ctx, app.cfg.Pipeline.RunTimeout)
	defer cancel()

	report, err := app.pipeline.RunOnce(runCtx)
	if err != nil {
		app.log.Error("Run failed", logger.ErrorField(err))
		return err
	}
	app.log.Info("Run completed",
		logger.IntField("published", report.Count(service.StatePublished)),
		logger.IntField("failed", report.Count(service.StateFailed)))
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	scheduler := service.NewSchedulerService(app.pipeline, app.cfg.Schedule.Cron, app.cfg.Pipeline.RunTimeout, app.log)
	return scheduler.Start(ctx)
}

func verifyPublisher(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	client, err := telegram.NewClient(telegram.Config{
		BotToken:    cfg.Telegram.BotToken,
		ChatID:      cfg.Telegram.ChatID,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		Timeout:     cfg.Telegram.Timeout,
	})
	if err != nil {
		appLogger.Error("Telegram authentication failed", logger.ErrorField(err))
		return err
	}
	appLogger.Info("Telegram authentication successful", zap.String("bot", client.Username()))
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "contract-announcer",
		Short:        "Announce top-ranked SAM.gov contract opportunities to a Telegram channel",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-announcer.yaml", "Path to the configuration file")

	rootCmd.AddCommand(runCmd, scheduleCmd, verifyPublisherCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error executing contract-announcer CLI: %s", err)
		os.Exit(1)
	}
}
