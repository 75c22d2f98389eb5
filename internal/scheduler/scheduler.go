package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPicker/internal/config"
	"StockPicker/internal/engine"
	"StockPicker/internal/errmsg"
	"StockPicker/internal/model"
	"StockPicker/internal/notifier"
	"StockPicker/internal/recorder"
	"StockPicker/internal/report"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the daily recommendation pipeline on a cron schedule.
type Scheduler struct {
	Cron        *cron.Cron
	Recommender *engine.Recommender
	Recorder    recorder.Recorder
	Notifier    *notifier.TelegramNotifier
	Cfg         *config.Config
	Ctx         context.Context
}

// NewScheduler creates a Scheduler. Notifier may be nil when Telegram
// delivery is disabled.
func NewScheduler(ctx context.Context, rec *engine.Recommender, rc recorder.Recorder, tn *notifier.TelegramNotifier, cfg *config.Config) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Recommender: rec,
		Recorder:    rc,
		Notifier:    tn,
		Cfg:         cfg,
		Ctx:         ctx,
	}
}

// RegisterAll registers the daily recommendation task.
func (s *Scheduler) RegisterAll() error {
	spec := s.Cfg.Schedule.RecommendCron
	if _, err := s.Cron.AddFunc(spec, s.recommendTask); err != nil {
		return fmt.Errorf("register recommend task %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Str("cron", s.Cfg.Schedule.RecommendCron).Msg("scheduler started")
}

// Stop stops the cron loop and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the recommendation task immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.recommendTask()
}

func (s *Scheduler) recommendTask() {
	log.Info().Msg("running scheduled recommendation")
	rec, meta, err := s.Recommender.Recommend(s.Ctx, model.DayOf(time.Now()))
	if err != nil {
		if errors.Is(err, engine.ErrNoCandidate) {
			s.trySend(fmt.Sprintf("📭 今日无推荐标的\n\n%s", errmsg.Friendly(err)))
			return
		}
		log.Error().Err(err).Str("kind", errmsg.Classify(err)).Msg("scheduled recommendation failed")
		s.trySend(fmt.Sprintf("❌ 选股任务失败: %s", errmsg.Friendly(err)))
		return
	}
	log.Info().
		Str("symbol", rec.Symbol).
		Str("mode", string(rec.ThresholdMode)).
		Float64("score", rec.ScoreTotal).
		Int("scanned", meta.StatsByMode[rec.ThresholdMode].Scanned).
		Msg("scheduled recommendation done")

	if s.Cfg.Reporting.Enabled {
		if _, err := report.AppendCSV(rec, s.Cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("append csv report")
		}
		if _, err := report.WriteMarkdown(rec, s.Cfg.Reporting.RecommendationMD, s.Cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("write markdown report")
		}
		if _, err := report.WriteText(rec, s.Cfg.Reporting.RecommendationTXT, s.Cfg.Reporting.RecommendationCSV); err != nil {
			log.Error().Err(err).Msg("write text report")
		}
	}
	if err := s.Recorder.RecordRecommendation(rec); err != nil {
		log.Error().Err(err).Msg("record recommendation")
	}
	s.trySend(notifier.FormatRecommendation(rec))
}

func (s *Scheduler) trySend(msg string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, msg, 3); err != nil {
		log.Error().Err(err).Msg("telegram send failed")
	}
}
