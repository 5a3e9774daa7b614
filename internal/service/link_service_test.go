package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
	"github.com/shortlink-app/shortlink/internal/service"
	"github.com/shortlink-app/shortlink/internal/service/mocks"
	"github.com/shortlink-app/shortlink/internal/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService() (service.LinkService, *mocks.MockLinkRepository, *mocks.MockCacheRepository) {
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	logger, _ := zap.NewDevelopment()
	linkService := service.NewLinkService(linkRepo, cacheRepo, slug.NewValidator(nil), 6, logger)
	return linkService, linkRepo, cacheRepo
}

func TestLinkService_CreateLink_AutoSlug(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL: "https://example.com/page",
	})

	require.NoError(t, err)
	// First id encodes to the zero-padded base62 value.
	assert.Equal(t, "000001", link.Slug)
	assert.Equal(t, "https://example.com/page", link.LongURL)
	assert.False(t, link.CreatedAt.IsZero())
}

func TestLinkService_CreateLink_AutoSlugsNeverCollide(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			LongURL: fmt.Sprintf("https://example.com/page/%d", i),
		})
		require.NoError(t, err)
		require.False(t, seen[link.Slug], "duplicate auto slug %s", link.Slug)
		seen[link.Slug] = true
	}
}

func TestLinkService_CreateLink_CustomSlug(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	custom := "My-Promo_1"
	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:    "https://example.com/promo",
		CustomSlug: &custom,
	})

	require.NoError(t, err)
	assert.Equal(t, "my-promo_1", link.Slug, "custom slugs are stored lowercase")
}

func TestLinkService_CreateLink_InvalidURL(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	for _, raw := range []string{"", "not-a-url", "ftp://example.com/file", "example.com", "https://"} {
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{LongURL: raw})
		assert.ErrorIs(t, err, service.ErrInvalidURL, "url=%q", raw)
		assert.Nil(t, link)
	}
}

func TestLinkService_CreateLink_CustomSlugValidation(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	tests := []struct {
		candidate string
		wantErr   error
	}{
		{"ab", slug.ErrTooShort},
		{"bad slug!", slug.ErrInvalidChars},
		{"stats", slug.ErrReserved},
		{"Stats", slug.ErrReserved},
	}

	for _, tt := range tests {
		custom := tt.candidate
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			LongURL:    "https://example.com/page",
			CustomSlug: &custom,
		})
		assert.ErrorIs(t, err, tt.wantErr, "candidate=%q", tt.candidate)
		assert.Nil(t, link)
	}
}

func TestLinkService_CreateLink_SlugTaken(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	custom := "taken"
	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:    "https://example.com/first",
		CustomSlug: &custom,
	})
	require.NoError(t, err)

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:    "https://example.com/second",
		CustomSlug: &custom,
	})
	assert.ErrorIs(t, err, repository.ErrSlugTaken)
	assert.Nil(t, link)
}

// One success and N-1 ErrSlugTaken when concurrent creations race on
// the same custom slug: the storage layer serializes, not the service.
func TestLinkService_CreateLink_ConcurrentCustomSlugRace(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	const n = 16
	custom := "contested"

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = linkService.CreateLink(ctx, &models.CreateLinkInput{
				LongURL:    fmt.Sprintf("https://example.com/race/%d", i),
				CustomSlug: &custom,
			})
		}(i)
	}
	wg.Wait()

	successes, taken := 0, 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, repository.ErrSlugTaken)
		taken++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, taken)
}

func TestLinkService_Resolve(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL: "https://example.com/page",
	})
	require.NoError(t, err)

	resolved, err := linkService.Resolve(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.LongURL, resolved.LongURL)
}

// Auto slugs are mixed-case base62 (id 10 encodes to "00000A"), so
// resolution must match them exactly, without case folding.
func TestLinkService_Resolve_UppercaseAutoSlug(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()
	ctx := context.Background()

	var last *models.Link
	for i := 0; i < 10; i++ {
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			LongURL: fmt.Sprintf("https://example.com/page/%d", i),
		})
		require.NoError(t, err)
		last = link
	}
	require.Equal(t, "00000A", last.Slug)

	resolved, err := linkService.Resolve(ctx, "00000A")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page/9", resolved.LongURL)

	// Still resolvable on a cold cache.
	require.NoError(t, cacheRepo.Delete(ctx, "00000A"))
	resolved, err = linkService.Resolve(ctx, "00000A")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page/9", resolved.LongURL)

	// The lowercase variant is a different key entirely.
	_, err = linkService.Resolve(ctx, "00000a")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestLinkService_Resolve_NotFound(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	link, err := linkService.Resolve(ctx, "nonexistent")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Nil(t, link)
}

// An expired link is hidden from resolution but not deleted: the row
// must still be retrievable by direct repository inspection.
func TestLinkService_Resolve_Expired(t *testing.T) {
	linkService, linkRepo, cacheRepo := setupTestService()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:   "https://example.com/expired",
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	link, err := linkService.Resolve(ctx, created.Slug)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Nil(t, link)

	// Soft expiry: the record itself survives.
	stored, err := linkRepo.GetBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.Slug, stored.Slug)

	// And the expired entry is no longer cached.
	_, err = cacheRepo.Get(ctx, created.Slug)
	assert.Error(t, err)
}

func TestLinkService_Resolve_PopulatesCache(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL: "https://example.com/page",
	})
	require.NoError(t, err)

	cached, err := cacheRepo.Get(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.LongURL, cached.LongURL)
}

// A link born expired never reaches the cache: its TTL would be
// non-positive, which Redis rejects.
func TestLinkService_CreateLink_AlreadyExpiredIsNotCached(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:   "https://example.com/old",
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	assert.Zero(t, cacheRepo.Len())
}
