package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const ingestionTimeout = 2 * time.Minute

// Ingestor periodically pulls live mandi prices into the history store and the
// market snapshot cache.
type Ingestor struct {
	market   *MarketDataService
	crops    []string
	cron     *cron.Cron
	schedule cron.Schedule
	logger   *zap.Logger

	mu        sync.Mutex
	lastRun   time.Time
	lastErr   error
	onRefresh func()
}

// NewIngestor validates the cron expression (standard five fields) and prepares
// the job. Call Start to begin scheduling.
func NewIngestor(expr string, market *MarketDataService, crops []string, logger *zap.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	in := &Ingestor{
		market:   market,
		crops:    crops,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
	in.cron.Schedule(schedule, cron.FuncJob(in.runScheduled))
	return in, nil
}

// OnRefresh registers fn to run after every successful cycle, typically to drop
// results computed from the previous prices.
func (in *Ingestor) OnRefresh(fn func()) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onRefresh = fn
}

// Start starts the scheduler
func (in *Ingestor) Start() {
	in.cron.Start()
	in.logger.Info("Price ingestion scheduled", zap.Time("next_run", in.NextRun(time.Now())))
}

// Stop stops the scheduler and waits for a running job to finish.
func (in *Ingestor) Stop() {
	<-in.cron.Stop().Done()
}

// NextRun reports when the job fires next after t.
func (in *Ingestor) NextRun(t time.Time) time.Time {
	return in.schedule.Next(t)
}

// RunOnce performs one ingestion cycle.
func (in *Ingestor) RunOnce(ctx context.Context) (int, error) {
	n, err := in.market.Refresh(ctx, in.crops)

	in.mu.Lock()
	in.lastRun = time.Now()
	in.lastErr = err
	hook := in.onRefresh
	in.mu.Unlock()

	if err == nil && hook != nil {
		hook()
	}
	return n, err
}

// LastRun returns the time and outcome of the latest cycle.
func (in *Ingestor) LastRun() (time.Time, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lastRun, in.lastErr
}

func (in *Ingestor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), ingestionTimeout)
	defer cancel()

	n, err := in.RunOnce(ctx)
	if err != nil {
		in.logger.Warn("Price ingestion failed", zap.Error(err))
		return
	}
	in.logger.Info("Price ingestion completed", zap.Int("prices", n))
}
