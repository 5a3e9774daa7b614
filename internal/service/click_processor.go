package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
	"github.com/shortlink-app/shortlink/internal/uaparse"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1024
	maxRetries           = 3
	clickWriteTimeout    = 5 * time.Second
)

// ClickProcessor ingests one event per redirect. Recording is
// fire-and-forget relative to the redirect response: Record enqueues
// and returns, workers persist in the background, and Stop drains the
// queue so scheduled events are not lost on shutdown.
type ClickProcessor interface {
	Start()
	Stop()
	Record(ctx context.Context, event *models.ClickEvent) error
	FailedWrites() int64
}

type clickProcessor struct {
	clickRepo repository.ClickRepository
	linkRepo  repository.LinkRepository
	logger    *zap.Logger

	clickChannel chan *models.ClickEvent
	workerCount  int
	wg           sync.WaitGroup
	// stopMu serializes intake against Stop: Record holds the read
	// lock across its channel send, so the channel is never closed
	// mid-send.
	stopMu       sync.RWMutex
	stopped      bool
	failedWrites atomic.Int64
	// errLogLimit keeps a storage outage on the redirect path from
	// flooding the log while the failure stays observable.
	errLogLimit rate.Sometimes
}

func NewClickProcessor(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	logger *zap.Logger,
) ClickProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickProcessor{
		clickRepo:    clickRepo,
		linkRepo:     linkRepo,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
		errLogLimit:  rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

func (p *clickProcessor) Start() {
	p.logger.Info("Starting click workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes intake and waits until the workers have drained every
// event that was already scheduled.
func (p *clickProcessor) Stop() {
	p.stopMu.Lock()
	if p.stopped {
		p.stopMu.Unlock()
		return
	}
	p.stopped = true
	p.stopMu.Unlock()

	p.logger.Info("Stopping click processor, draining queue",
		zap.Int("pending", len(p.clickChannel)),
	)
	close(p.clickChannel)
	p.wg.Wait()
	p.logger.Info("Click processor stopped")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Click worker started", zap.Int("id", id))

	for event := range p.clickChannel {
		p.processClick(event)
	}

	p.logger.Debug("Click worker stopped", zap.Int("id", id))
}

// processClick derives the device fields from the raw user agent
// (once, here; reads never reparse) and persists the click with a
// bounded retry. Failures are counted and logged, never propagated.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	// Deliberately not tied to any request context: the request this
	// click belongs to has already been answered.
	ctx, cancel := context.WithTimeout(context.Background(), clickWriteTimeout)
	defer cancel()

	linkID, err := p.linkRepo.GetIDBySlug(ctx, event.Slug)
	if err != nil {
		p.logger.Warn("Failed to resolve link for click",
			zap.String("slug", event.Slug),
			zap.Error(err),
		)
		return
	}

	device := uaparse.Classify(event.UserAgentRaw)

	click := &models.Click{
		LinkID:        linkID,
		Timestamp:     event.Timestamp,
		Referrer:      event.Referrer,
		UserAgentRaw:  event.UserAgentRaw,
		ClientAddress: event.ClientAddress,
		DeviceType:    device.Type,
		Browser:       device.Browser,
		OS:            device.OS,
	}

	for i := 0; i < maxRetries; i++ {
		if err = p.clickRepo.Insert(ctx, click); err == nil {
			return
		}
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	p.failedWrites.Add(1)
	p.errLogLimit.Do(func() {
		p.logger.Error("Failed to record click after retries",
			zap.String("slug", event.Slug),
			zap.Int64("failed_total", p.failedWrites.Load()),
			zap.Error(err),
		)
	})
}

// Record schedules a click event. The send blocks only when the buffer
// is full, so the redirect never waits on persistence in normal
// operation, and events are not silently dropped under load.
func (p *clickProcessor) Record(ctx context.Context, event *models.ClickEvent) error {
	p.stopMu.RLock()
	defer p.stopMu.RUnlock()

	if p.stopped {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	// The workers keep draining until the channel closes, so this
	// send cannot deadlock against Stop waiting on the write lock.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- event:
		return nil
	}
}

// FailedWrites reports how many clicks were lost to storage failures.
func (p *clickProcessor) FailedWrites() int64 {
	return p.failedWrites.Load()
}
