package models

import (
	"time"
)

type Link struct {
	ID        int64      `json:"id"`
	Slug      string     `json:"slug"`
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the link is past its expiry at the given time.
// A link without expires_at never expires.
func (l *Link) Expired(at time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(at)
}

type CreateLinkInput struct {
	LongURL    string     `json:"long_url"`
	CustomSlug *string    `json:"custom_slug,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
