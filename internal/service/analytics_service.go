package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
	"go.uber.org/zap"
)

const (
	topReferrersLimit = 10
	dayFormat         = "2006-01-02"
)

// AnalyticsService summarizes the click log of a link on demand. It is
// read-only and safe to call concurrently with ongoing click writes;
// a click recorded moments earlier may or may not be reflected yet.
type AnalyticsService interface {
	Summarize(ctx context.Context, rawSlug string, asOf time.Time) (*models.AnalyticsReport, error)
}

type analyticsService struct {
	linkRepo     repository.LinkRepository
	clickRepo    repository.ClickRepository
	recentClicks int
	logger       *zap.Logger
}

func NewAnalyticsService(
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	recentClicks int,
	logger *zap.Logger,
) AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &analyticsService{
		linkRepo:     linkRepo,
		clickRepo:    clickRepo,
		recentClicks: recentClicks,
		logger:       logger,
	}
}

func (s *analyticsService) Summarize(ctx context.Context, rawSlug string, asOf time.Time) (*models.AnalyticsReport, error) {
	// Exact-match lookup, same as resolution: auto slugs are
	// mixed-case base62 and must not be folded.
	link, err := s.linkRepo.GetBySlug(ctx, strings.TrimSpace(rawSlug))
	if err != nil {
		return nil, err
	}
	if link.Expired(asOf) {
		return nil, repository.ErrLinkNotFound
	}

	totals, err := s.clickRepo.CountTotals(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	daily, err := s.clickRepo.CountByDay(ctx, link.ID, asOf)
	if err != nil {
		return nil, err
	}

	devices, err := s.clickRepo.CountByDevice(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	referrers, err := s.clickRepo.TopReferrers(ctx, link.ID, topReferrersLimit)
	if err != nil {
		return nil, err
	}

	recent, err := s.clickRepo.Recent(ctx, link.ID, s.recentClicks)
	if err != nil {
		return nil, err
	}

	if devices == nil {
		devices = make(map[string]int64)
	}
	if referrers == nil {
		referrers = []models.ReferrerClicks{}
	}
	if recent == nil {
		recent = []models.ClickDetail{}
	}

	return &models.AnalyticsReport{
		Slug:            link.Slug,
		LongURL:         link.LongURL,
		CreatedAt:       link.CreatedAt,
		TotalClicks:     totals.TotalClicks,
		UniqueVisitors:  totals.UniqueVisitors,
		ClicksPerDayAvg: clicksPerDayAvg(totals.TotalClicks, link.CreatedAt, asOf),
		TimeSeries:      fillTimeSeries(daily, link.CreatedAt, asOf),
		DeviceBreakdown: devices,
		TopReferrers:    referrers,
		RecentClicks:    recent,
	}, nil
}

// clicksPerDayAvg divides total clicks by the whole days since
// creation, never less than one, rounded to a single decimal.
func clicksPerDayAvg(total int64, createdAt, asOf time.Time) float64 {
	days := int64(asOf.Sub(createdAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return math.Round(float64(total)/float64(days)*10) / 10
}

// fillTimeSeries expands sparse per-day counts into a gap-free series
// covering every calendar day from link creation through asOf, in
// ascending order, so charts never skip quiet days.
func fillTimeSeries(daily []models.DailyClicks, createdAt, asOf time.Time) []models.DailyClicks {
	counts := make(map[string]int64, len(daily))
	for _, d := range daily {
		counts[d.Day] = d.Clicks
	}

	start := createdAt.UTC().Truncate(24 * time.Hour)
	end := asOf.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		end = start
	}

	var series []models.DailyClicks
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayFormat)
		series = append(series, models.DailyClicks{
			Day:    key,
			Clicks: counts[key],
		})
	}

	return series
}
