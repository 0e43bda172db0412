package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs jobs on standard five-field cron specs. A job whose
// previous run is still in progress is skipped for that tick.
type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	logger := logutil.GetLogger(c.ctx).With(zap.String("job", name), zap.String("spec", spec))
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

// Next reports when the named job fires next.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	id, ok := c.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		logger := logutil.GetLogger(c.ctx).With(zap.String("job", job.Name()), zap.String("spec", spec))
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)
		runJob(c.ctx, logger, job)
	}
}

func runJob(ctx context.Context, logger *zap.Logger, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", zap.Any("panic", r))
		}
	}()
	start := time.Now()
	logger.Info("job started")
	err := job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
}
