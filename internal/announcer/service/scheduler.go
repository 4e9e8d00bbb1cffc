package service

import (
	"context"
	"fmt"
	"time"

	"contract-announcer/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService triggers a pipeline run on a cron schedule.
type SchedulerService interface {
	Start(ctx context.Context) error
}

// NewSchedulerService creates a scheduler for the given cron expression. Each tick is an
// independent run bounded by runTimeout; a tick that fires while a run is still going is skipped.
func NewSchedulerService(pipeline PipelineService, expression string, runTimeout time.Duration, log *logger.Logger) SchedulerService {
	return &schedulerService{
		pipeline:   pipeline,
		expression: expression,
		runTimeout: runTimeout,
		logger:     log,
		cronParser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

type schedulerService struct {
	pipeline   PipelineService
	expression string
	runTimeout time.Duration
	logger     *logger.Logger
	cronParser cron.Parser
}

// Start blocks until ctx is cancelled, then waits for an in-flight run to finish.
func (s *schedulerService) Start(ctx context.Context) error {
	schedule, err := s.cronParser.Parse(s.expression)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.expression, err)
	}

	c := cron.New(
		cron.WithParser(s.cronParser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	c.Schedule(schedule, cron.FuncJob(func() { s.tick(ctx) }))

	s.logger.Info("Scheduler started",
		logger.StringField("cron", s.expression),
		logger.TimeField("next_run", schedule.Next(time.Now().UTC())))
	c.Start()

	<-ctx.Done()
	s.logger.Info("Scheduler stopping")
	<-c.Stop().Done()
	return nil
}

func (s *schedulerService) tick(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	started := time.Now()
	report, err := s.pipeline.RunOnce(ctx)
	if err != nil {
		s.logger.Error("Scheduled run failed", logger.ErrorField(err), logger.DurationField("elapsed", time.Since(started)))
		return
	}
	s.logger.Info("Scheduled run completed",
		logger.IntField("published", report.Count(StatePublished)),
		logger.DurationField("elapsed", time.Since(started)))
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.ErrorField(err))...)
}

func kvFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, logger.Field(key, keysAndValues[i+1]))
	}
	return fields
}
