package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockPicker/internal/notifier"
	"StockPicker/internal/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scheduleRunOnStart bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "常驻运行，按 cron 配置在每个交易日收盘后产出推荐",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunOnStart, "run-on-start", false, "启动时立即执行一次")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rc := openRecorder(cfg)
	defer rc.Close()

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, newRecommender(cfg, ds), rc, tn, cfg)
	if err := sched.RegisterAll(); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if scheduleRunOnStart {
		go sched.RunNow()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")
	cancel()
	return nil
}
