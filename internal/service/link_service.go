package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
	"github.com/shortlink-app/shortlink/internal/slug"
	"go.uber.org/zap"
)

var ErrInvalidURL = errors.New("invalid destination URL")

const (
	defaultCacheTTL = 24 * time.Hour
	maxLongURLLen   = 2048
)

// LinkService is the link registry: it owns slug assignment and is the
// only writer of link records.
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	Resolve(ctx context.Context, rawSlug string) (*models.Link, error)
}

type linkService struct {
	linkRepo   repository.LinkRepository
	cacheRepo  repository.CacheRepository
	validator  *slug.Validator
	slugLength int
	logger     *zap.Logger
}

func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	validator *slug.Validator,
	slugLength int,
	logger *zap.Logger,
) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		linkRepo:   linkRepo,
		cacheRepo:  cacheRepo,
		validator:  validator,
		slugLength: slugLength,
		logger:     logger,
	}
}

// CreateLink creates a short link. With a custom slug the candidate is
// validated syntactically here and for uniqueness by the storage
// layer's constraint; ErrSlugTaken is surfaced to the caller, never
// retried internally. Without one the slug is derived from the
// assigned id, which cannot collide as long as ids are never reused.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	if err := validateLongURL(input.LongURL); err != nil {
		return nil, err
	}

	link := &models.Link{
		LongURL:   input.LongURL,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if input.CustomSlug != nil && *input.CustomSlug != "" {
		normalized, err := s.validator.Validate(*input.CustomSlug)
		if err != nil {
			return nil, err
		}
		link.Slug = normalized

		if err := s.linkRepo.Create(ctx, link); err != nil {
			return nil, err
		}
	} else {
		if err := s.linkRepo.CreateAuto(ctx, link, s.slugLength); err != nil {
			return nil, err
		}
	}

	s.cacheLink(ctx, link.Slug, link)

	return link, nil
}

// Resolve looks up a slug, cache first. Lookup is exact-match: custom
// slugs were lowercased at creation, and auto slugs are mixed-case
// base62, so lowercasing here would make them unresolvable. A link
// past its expiry is reported as not found and evicted from the
// cache; the stored row is untouched.
func (s *linkService) Resolve(ctx context.Context, rawSlug string) (*models.Link, error) {
	normalized := strings.TrimSpace(rawSlug)
	if normalized == "" {
		return nil, repository.ErrLinkNotFound
	}

	now := time.Now().UTC()

	if link, err := s.cacheRepo.Get(ctx, normalized); err == nil {
		if link.Expired(now) {
			if err := s.cacheRepo.Delete(ctx, normalized); err != nil {
				s.logger.Warn("Failed to evict expired link from cache",
					zap.String("slug", normalized),
					zap.Error(err),
				)
			}
			return nil, repository.ErrLinkNotFound
		}
		return link, nil
	}

	link, err := s.linkRepo.GetBySlug(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if link.Expired(now) {
		return nil, repository.ErrLinkNotFound
	}

	s.cacheLink(ctx, normalized, link)

	return link, nil
}

// cacheLink caps the cache entry lifetime at the link expiry so stale
// mappings cannot outlive the link itself. Links already at or past
// expiry are not cached: Redis rejects non-positive TTLs.
func (s *linkService) cacheLink(ctx context.Context, slug string, link *models.Link) {
	ttl := defaultCacheTTL
	if link.ExpiresAt != nil {
		if until := time.Until(*link.ExpiresAt); until < ttl {
			ttl = until
		}
	}
	if ttl <= 0 {
		return
	}

	if err := s.cacheRepo.Set(ctx, slug, link, ttl); err != nil {
		s.logger.Warn("Failed to cache link",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}
}

// validateLongURL accepts absolute http(s) URLs only.
func validateLongURL(raw string) error {
	if raw == "" || len(raw) > maxLongURLLen {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
