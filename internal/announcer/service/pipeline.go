package service

import (
	"context"
	"fmt"
	"time"

	"contract-announcer/internal/announcer/config"
	"contract-announcer/internal/announcer/dto"
	"contract-announcer/internal/announcer/repository"
	"contract-announcer/pkg/logger"
)

// PipelineService runs one fetch → rank → publish cycle.
type PipelineService interface {
	RunOnce(ctx context.Context) (*RunReport, error)
}

// NewPipelineService wires the pipeline components.
func NewPipelineService(
	cfg *config.Config,
	source repository.OpportunitySource,
	normalizer *Normalizer,
	ranker *Ranker,
	driver *PublisherDriver,
	locker repository.RunLocker,
	log *logger.Logger,
) PipelineService {
	return &pipelineService{
		cfg:        cfg,
		source:     source,
		normalizer: normalizer,
		ranker:     ranker,
		driver:     driver,
		locker:     locker,
		log:        log,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

type pipelineService struct {
	cfg        *config.Config
	source     repository.OpportunitySource
	normalizer *Normalizer
	ranker     *Ranker
	driver     *PublisherDriver
	locker     repository.RunLocker
	log        *logger.Logger
	clock      func() time.Time
}

// RunOnce performs a self-contained run. The ranked list is computed once, up front, from a
// single "now", and the top_n highest entries not yet in the ledger are published. Finding
// nothing to publish is a normal outcome.
func (p *pipelineService) RunOnce(ctx context.Context) (*RunReport, error) {
	report := &RunReport{}

	release, acquired, err := p.locker.Acquire(ctx)
	if err != nil {
		return report, err
	}
	if !acquired {
		p.log.Info("Another run holds the lock, skipping this run")
		return report, nil
	}
	defer release()

	now := p.clock()
	params := dto.FetchParams{
		PostedFrom:    now.AddDate(0, 0, -p.cfg.Pipeline.LookbackDays),
		PostedTo:      now,
		NoticeTypes:   p.cfg.SAM.NoticeTypes,
		SetAsideCodes: p.cfg.SAM.SetAsideCodes,
	}

	raws, err := p.source.Fetch(ctx, params)
	if err != nil {
		return report, fmt.Errorf("fetch opportunities: %w", err)
	}
	report.Fetched = len(raws)

	opportunities := p.normalizer.NormalizeAll(raws)
	report.Normalized = len(opportunities)

	ranked := p.ranker.RankAll(opportunities, now)
	report.Ranked = len(ranked)

	if len(ranked) == 0 {
		p.log.Info("No opportunities to publish this run",
			logger.IntField("fetched", report.Fetched),
			logger.IntField("normalized", report.Normalized))
		return report, nil
	}

	topN := p.cfg.Pipeline.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	outcomes, err := p.driver.Run(ctx, ranked, topN)
	report.Outcomes = outcomes

	p.log.Info("Run finished",
		logger.IntField("fetched", report.Fetched),
		logger.IntField("normalized", report.Normalized),
		logger.IntField("ranked", report.Ranked),
		logger.IntField("published", report.Count(StatePublished)),
		logger.IntField("skipped", report.Count(StateSkipped)),
		logger.IntField("failed", report.Count(StateFailed)),
		logger.IntField("uncertain", report.Count(StateUncertain)))

	if err != nil {
		return report, fmt.Errorf("publish opportunities: %w", err)
	}
	return report, nil
}
