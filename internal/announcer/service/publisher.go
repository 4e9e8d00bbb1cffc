package service

import (
	"context"
	"errors"
	"time"

	"contract-announcer/internal/announcer/repository"
	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"
	"contract-announcer/pkg/logger"
	"contract-announcer/pkg/telegram"
)

// PublishState is the lifecycle state of one opportunity within a run.
type PublishState string

const (
	StatePending          PublishState = "PENDING"
	StateFormatted        PublishState = "FORMATTED"
	StatePublishAttempted PublishState = "PUBLISH_ATTEMPTED"
	StatePublished        PublishState = "PUBLISHED"
	StateFailed           PublishState = "FAILED"
	// StateSkipped means the ledger already had the opportunity.
	StateSkipped PublishState = "SKIPPED"
	// StateUncertain means the publish outcome is unknown; the ledger entry is written anyway so
	// the opportunity is not offered again.
	StateUncertain PublishState = "UNCERTAIN"
)

// PublishOutcome is the final result for one ranked opportunity.
type PublishOutcome struct {
	ContractID string
	State      PublishState
	Attempts   int
	MessageID  string
	Err        error
}

// RunReport summarizes a run.
type RunReport struct {
	Fetched    int
	Normalized int
	Ranked     int
	Outcomes   []PublishOutcome
}

// Count returns how many outcomes ended in state.
func (r *RunReport) Count(state PublishState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// Formatter renders an opportunity into a post.
type Formatter func(o entity.RankedOpportunity) string

// PublisherDriverConfig holds retry and pacing settings.
type PublisherDriverConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	PublishDelay time.Duration
}

// PublisherDriver publishes ranked opportunities one by one and commits each to the ledger
// right after the publish is acknowledged.
type PublisherDriver struct {
	cfg       PublisherDriverConfig
	ledger    repository.AnnouncementRepository
	publisher telegram.Publisher
	format    Formatter
	log       *logger.Logger
	clock     func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPublisherDriver creates a new PublisherDriver.
func NewPublisherDriver(
	cfg PublisherDriverConfig,
	ledger repository.AnnouncementRepository,
	publisher telegram.Publisher,
	format Formatter,
	log *logger.Logger,
) *PublisherDriver {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &PublisherDriver{
		cfg:       cfg,
		ledger:    ledger,
		publisher: publisher,
		format:    format,
		log:       log,
		clock:     func() time.Time { return time.Now().UTC() },
		sleep:     sleepContext,
	}
}

// Run walks the ranked list in order until limit opportunities not yet in the ledger have been
// attempted; a non-positive limit attempts all of them. Already-announced entries are SKIPPED and
// do not use up a slot. It stops early only on an auth failure, a ledger failure, or
// cancellation; per-opportunity failures are recorded and the run moves on.
func (d *PublisherDriver) Run(ctx context.Context, ranked []entity.RankedOpportunity, limit int) ([]PublishOutcome, error) {
	outcomes := make([]PublishOutcome, 0, len(ranked))
	attempted := 0

	for _, o := range ranked {
		if limit > 0 && attempted >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		announced, err := d.ledger.IsAnnounced(ctx, o.ID)
		if err != nil {
			return outcomes, err
		}
		if announced {
			d.log.Info("Opportunity already announced, skipping", logger.StringField("contract_id", o.ID))
			outcomes = append(outcomes, PublishOutcome{ContractID: o.ID, State: StateSkipped})
			continue
		}

		if attempted > 0 {
			if err := d.sleep(ctx, d.cfg.PublishDelay); err != nil {
				return outcomes, err
			}
		}
		attempted++

		outcome, err := d.publishOne(ctx, o)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
	}

	return outcomes, nil
}

// publishOne drives one opportunity from PENDING to a terminal state. The returned error is
// non-nil only when the whole run must stop.
func (d *PublisherDriver) publishOne(ctx context.Context, o entity.RankedOpportunity) (PublishOutcome, error) {
	outcome := PublishOutcome{ContractID: o.ID, State: StatePending}

	message := d.format(o)
	outcome.State = StateFormatted

	var (
		receipt entity.PublishReceipt
		err     error
	)
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		outcome.State = StatePublishAttempted
		outcome.Attempts = attempt

		receipt, err = d.publisher.Publish(ctx, message)
		if err == nil {
			break
		}
		if !apperror.IsRetryable(err) || ctx.Err() != nil {
			break
		}

		d.log.Warn("Publish attempt failed",
			logger.StringField("contract_id", o.ID),
			logger.IntField("attempt", attempt),
			logger.IntField("max_retries", d.cfg.MaxRetries),
			logger.ErrorField(err))

		if attempt < d.cfg.MaxRetries {
			if sleepErr := d.sleep(ctx, d.cfg.RetryBackoff); sleepErr != nil {
				outcome.State = StateFailed
				outcome.Err = err
				return outcome, sleepErr
			}
		}
	}

	switch {
	case err == nil:
		outcome.State = StatePublished
		outcome.MessageID = receipt.MessageID
		d.log.Info("Published opportunity",
			logger.StringField("contract_id", o.ID),
			logger.StringField("message_id", receipt.MessageID),
			logger.Float64Field("score", o.Score))
		return outcome, d.commit(ctx, o, receipt.PublishedAt)

	case apperror.KindOf(err) == apperror.KindAmbiguous:
		outcome.State = StateUncertain
		outcome.Err = err
		d.log.Error("Publish outcome unknown, recording as announced to avoid a duplicate post",
			logger.StringField("contract_id", o.ID),
			logger.ErrorField(err))
		return outcome, d.commit(ctx, o, d.clock())

	case apperror.KindOf(err) == apperror.KindAuth:
		outcome.State = StateFailed
		outcome.Err = err
		d.log.Error("Publisher rejected credentials, aborting run",
			logger.StringField("contract_id", o.ID),
			logger.ErrorField(err))
		return outcome, err

	case ctx.Err() != nil:
		outcome.State = StateFailed
		outcome.Err = err
		return outcome, ctx.Err()

	case apperror.IsRetryable(err):
		outcome.State = StateFailed
		outcome.Err = apperror.New(apperror.KindExhaustedRetries, "publish", err)
		d.log.Error("Publish failed after retries",
			logger.StringField("contract_id", o.ID),
			logger.IntField("attempts", outcome.Attempts),
			logger.ErrorField(err))
		return outcome, nil

	default:
		outcome.State = StateFailed
		outcome.Err = err
		d.log.Error("Publish rejected",
			logger.StringField("contract_id", o.ID),
			logger.ErrorField(err))
		return outcome, nil
	}
}

// commit writes the ledger entry. A duplicate means a concurrent run got there first and is
// treated as success; any other failure stops the run because later posts could not be recorded.
func (d *PublisherDriver) commit(ctx context.Context, o entity.RankedOpportunity, announcedAt time.Time) error {
	// Use a context detached from cancellation so a published post still gets recorded.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := d.ledger.Record(commitCtx, entity.NewAnnouncement(o, announcedAt))
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrAlreadyAnnounced) {
		d.log.Info("Opportunity recorded by a concurrent run", logger.StringField("contract_id", o.ID))
		return nil
	}
	d.log.Error("Published but failed to record announcement; it may be posted again next run",
		logger.StringField("contract_id", o.ID),
		logger.ErrorField(err))
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
