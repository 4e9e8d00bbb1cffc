package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contract-announcer/internal/announcer/config"
	"contract-announcer/internal/announcer/dto"
	"contract-announcer/pkg/apperror"
	"contract-announcer/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	samDateLayout   = "01/02/2006"
	samAPIKeyHeader = "X-Api-Key"
)

// OpportunitySource returns raw opportunity records for a posting window.
type OpportunitySource interface {
	Fetch(ctx context.Context, params dto.FetchParams) ([]map[string]interface{}, error)
}

type samRepository struct {
	cfg            config.SAM
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewSAMRepository creates the SAM.gov opportunity source.
func NewSAMRepository(cfg config.SAM, log *logger.Logger) OpportunitySource {
	limit := rate.Inf
	if cfg.MaxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.MaxRequestPerMinute))
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &samRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		requestLimiter: rate.NewLimiter(limit, 1),
		sleep:          sleepContext,
	}
}

// Fetch pages through the search endpoint until every record in the window has been read or
// MaxPages is reached, returning the flattened listings.
func (r *samRepository) Fetch(ctx context.Context, params dto.FetchParams) ([]map[string]interface{}, error) {
	if r.cfg.APIKey == "" {
		return nil, apperror.Errorf(apperror.KindAuth, "sam.fetch", "api key is not configured")
	}

	var records []map[string]interface{}
	offset := 0
	for page := 0; page < r.cfg.MaxPages; page++ {
		resp, err := r.fetchPageWithRetry(ctx, params, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}

		records = append(records, resp.OpportunitiesData...)
		offset += len(resp.OpportunitiesData)

		r.log.Debug("Fetched opportunities page",
			logger.IntField("page", page+1),
			logger.IntField("page_records", len(resp.OpportunitiesData)),
			logger.IntField("total_records", resp.TotalRecords))

		if len(resp.OpportunitiesData) == 0 || offset >= resp.TotalRecords {
			break
		}
	}

	r.log.Info("Fetched opportunities from SAM.gov",
		logger.IntField("records", len(records)),
		logger.StringField("posted_from", params.PostedFrom.Format(samDateLayout)),
		logger.StringField("posted_to", params.PostedTo.Format(samDateLayout)))

	return records, nil
}

func (r *samRepository) fetchPageWithRetry(ctx context.Context, params dto.FetchParams, offset int) (*dto.SAMSearchResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		resp, err := r.fetchPage(ctx, params, offset)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !apperror.IsRetryable(err) || attempt == r.cfg.MaxRetries {
			break
		}
		r.log.Warn("Retrying SAM.gov request",
			logger.IntField("attempt", attempt),
			logger.IntField("offset", offset),
			logger.ErrorField(err))
		if err := r.sleep(ctx, r.cfg.RetryBackoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *samRepository) fetchPage(ctx context.Context, params dto.FetchParams, offset int) (*dto.SAMSearchResponse, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("postedFrom", params.PostedFrom.Format(samDateLayout))
	query.Set("postedTo", params.PostedTo.Format(samDateLayout))
	query.Set("limit", strconv.Itoa(r.cfg.PageSize))
	query.Set("offset", strconv.Itoa(offset))
	if len(params.NoticeTypes) > 0 {
		query.Set("ptype", strings.Join(params.NoticeTypes, ","))
	}
	if len(params.SetAsideCodes) > 0 {
		query.Set("typeOfSetAside", strings.Join(params.SetAsideCodes, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SAM.gov request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// Kept out of the query string so transport errors, which quote the URL, never carry it.
	req.Header.Set(samAPIKeyHeader, r.cfg.APIKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperror.New(apperror.KindTransient, "sam.fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.New(apperror.KindTransient, "sam.fetch", err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var out dto.SAMSearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperror.New(apperror.KindMalformedInput, "sam.fetch", fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

func classifyStatus(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("status %d: %s", status, truncateBody(body, 256))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperror.New(apperror.KindAuth, "sam.fetch", err)
	case status == http.StatusTooManyRequests:
		return apperror.New(apperror.KindRateLimited, "sam.fetch", err)
	case status >= 500:
		return apperror.New(apperror.KindTransient, "sam.fetch", err)
	default:
		return apperror.New(apperror.KindMalformedInput, "sam.fetch", err)
	}
}

func truncateBody(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
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

