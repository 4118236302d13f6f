package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/robfig/cron/v3"
)

const closeDrawsTimeout = 30 * time.Second

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron  *cron.Cron
	posts *PostService
}

// cronLogger sends cron's own messages, recovered panics included, to the
// application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

func NewScheduler(posts *PostService) *Scheduler {
	var l cronLogger
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		posts: posts,
	}
}

// Start registers the draw-closing job on schedule (standard cron syntax or
// descriptors such as "@every 1m") and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.closeExpiredDraws); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	logger.Infof("Scheduler started, closing expired draws %s", schedule)
	return nil
}

func (s *Scheduler) closeExpiredDraws() {
	ctx, cancel := context.WithTimeout(context.Background(), closeDrawsTimeout)
	defer cancel()

	n, err := s.posts.CloseExpired(ctx)
	if err != nil {
		logger.Errorf("close expired draws: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("Closed %d expired draws", n)
	}
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
