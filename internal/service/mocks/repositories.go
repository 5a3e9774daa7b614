package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shortlink-app/shortlink/internal/base62"
	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing.
// It mirrors the storage-layer guarantees the services rely on:
// slug uniqueness enforced on insert, ids never reused.
type MockLinkRepository struct {
	mu     sync.Mutex
	links  map[string]*models.Link
	nextID int64
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[string]*models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) CreateAuto(ctx context.Context, link *models.Link, slugLength int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	slug := base62.Encode(uint64(id), slugLength)

	if _, exists := m.links[slug]; exists {
		return repository.ErrSlugTaken
	}

	link.ID = id
	link.Slug = slug
	stored := *link
	m.links[slug] = &stored
	return nil
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.Slug]; exists {
		return repository.ErrSlugTaken
	}

	link.ID = m.nextID
	m.nextID++
	stored := *link
	m.links[link.Slug] = &stored
	return nil
}

func (m *MockLinkRepository) GetBySlug(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[slug]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) GetIDBySlug(ctx context.Context, slug string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[slug]
	if !exists {
		return 0, repository.ErrLinkNotFound
	}
	return link.ID, nil
}

// MockCacheRepository implements repository.CacheRepository for testing.
type MockCacheRepository struct {
	mu    sync.Mutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.cache[slug]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, slug string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *link
	m.cache[slug] = &stored
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, slug)
	return nil
}

func (m *MockCacheRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// MockClickRepository implements repository.ClickRepository with the
// same aggregation semantics as the SQL queries, over an in-memory
// append-only log.
type MockClickRepository struct {
	mu     sync.Mutex
	clicks []models.Click
	nextID int64

	// FailInserts makes Insert fail, for exercising the recorder's
	// failure path.
	FailInserts bool
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{nextID: 1}
}

type insertsFailedError struct{}

func (insertsFailedError) Error() string { return "simulated click storage failure" }

func (m *MockClickRepository) Insert(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInserts {
		return insertsFailedError{}
	}

	click.ID = m.nextID
	m.nextID++
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MockClickRepository) CountTotals(ctx context.Context, linkID int64) (*repository.ClickTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	totals := &repository.ClickTotals{}
	unique := make(map[string]struct{})
	for _, c := range m.clicks {
		if c.LinkID != linkID {
			continue
		}
		totals.TotalClicks++
		if c.ClientAddress != "" {
			unique[c.ClientAddress] = struct{}{}
		}
	}
	totals.UniqueVisitors = int64(len(unique))
	return totals, nil
}

func (m *MockClickRepository) CountByDay(ctx context.Context, linkID int64, until time.Time) ([]models.DailyClicks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDay := make(map[string]int64)
	for _, c := range m.clicks {
		if c.LinkID != linkID || c.Timestamp.After(until) {
			continue
		}
		byDay[c.Timestamp.UTC().Format("2006-01-02")]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var out []models.DailyClicks
	for _, day := range days {
		out = append(out, models.DailyClicks{Day: day, Clicks: byDay[day]})
	}
	return out, nil
}

func (m *MockClickRepository) CountByDevice(ctx context.Context, linkID int64) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	breakdown := make(map[string]int64)
	for _, c := range m.clicks {
		if c.LinkID == linkID {
			breakdown[c.DeviceType]++
		}
	}
	return breakdown, nil
}

func (m *MockClickRepository) TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.ReferrerClicks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int64)
	firstSeen := make(map[string]int64)
	for _, c := range m.clicks {
		if c.LinkID != linkID {
			continue
		}
		ref := c.Referrer
		if ref == "" {
			ref = "direct"
		}
		counts[ref]++
		if _, ok := firstSeen[ref]; !ok {
			firstSeen[ref] = c.ID
		}
	}

	refs := make([]string, 0, len(counts))
	for ref := range counts {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if counts[refs[i]] != counts[refs[j]] {
			return counts[refs[i]] > counts[refs[j]]
		}
		return firstSeen[refs[i]] < firstSeen[refs[j]]
	})

	if len(refs) > limit {
		refs = refs[:limit]
	}

	var out []models.ReferrerClicks
	for _, ref := range refs {
		out = append(out, models.ReferrerClicks{Referrer: ref, Clicks: counts[ref]})
	}
	return out, nil
}

func (m *MockClickRepository) Recent(ctx context.Context, linkID int64, limit int) ([]models.ClickDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matching []models.Click
	for _, c := range m.clicks {
		if c.LinkID == linkID {
			matching = append(matching, c)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].Timestamp.Equal(matching[j].Timestamp) {
			return matching[i].Timestamp.After(matching[j].Timestamp)
		}
		return matching[i].ID > matching[j].ID
	})

	if len(matching) > limit {
		matching = matching[:limit]
	}

	var out []models.ClickDetail
	for _, c := range matching {
		out = append(out, models.ClickDetail{
			Timestamp:  c.Timestamp,
			Referrer:   c.Referrer,
			Browser:    c.Browser,
			OS:         c.OS,
			DeviceType: c.DeviceType,
		})
	}
	return out, nil
}

// Count reports how many clicks were persisted, for synchronizing
// tests with the asynchronous recorder.
func (m *MockClickRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clicks)
}
