package models

import (
	"time"
)

// Click is a persisted click row. Device, browser and OS are derived
// from the raw user agent once, at ingestion, and never recomputed.
type Click struct {
	ID            int64     `json:"id"`
	LinkID        int64     `json:"link_id"`
	Timestamp     time.Time `json:"timestamp"`
	Referrer      string    `json:"referrer"`
	UserAgentRaw  string    `json:"user_agent_raw"`
	ClientAddress string    `json:"client_address"`
	DeviceType    string    `json:"device_type"`
	Browser       string    `json:"browser"`
	OS            string    `json:"os"`
}

// ClickEvent is what the redirect handler enqueues. The user agent is
// still raw here; the click processor classifies it before persisting.
type ClickEvent struct {
	Slug          string
	Timestamp     time.Time
	Referrer      string
	UserAgentRaw  string
	ClientAddress string
}

type DailyClicks struct {
	Day    string `json:"day"`
	Clicks int64  `json:"clicks"`
}

type ReferrerClicks struct {
	Referrer string `json:"referrer"`
	Clicks   int64  `json:"clicks"`
}

type ClickDetail struct {
	Timestamp  time.Time `json:"timestamp"`
	Referrer   string    `json:"referrer"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	DeviceType string    `json:"device_type"`
}

type AnalyticsReport struct {
	Slug            string           `json:"slug"`
	LongURL         string           `json:"long_url"`
	CreatedAt       time.Time        `json:"created_at"`
	TotalClicks     int64            `json:"total_clicks"`
	UniqueVisitors  int64            `json:"unique_visitors"`
	ClicksPerDayAvg float64          `json:"clicks_per_day_avg"`
	TimeSeries      []DailyClicks    `json:"time_series"`
	DeviceBreakdown map[string]int64 `json:"device_breakdown"`
	TopReferrers    []ReferrerClicks `json:"top_referrers"`
	RecentClicks    []ClickDetail    `json:"recent_clicks"`
}
