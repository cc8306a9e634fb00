package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/util"
)

// Scheduler archives the previous day's races on a cron spec evaluated in JST.
type Scheduler struct {
	cron     *cron.Cron
	archiver *Archiver
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewScheduler(archiver *Archiver, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(util.JST()),
			cron.WithLogger(cronLogger{logger: logger}),
		),
		archiver: archiver,
		timeout:  constants.ArchiveConfig.Timeout,
		now:      util.NowJST,
		logger:   logger,
	}
}

// Schedule registers the nightly run.
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runYesterday); err != nil {
		return fmt.Errorf("invalid archive schedule %q: %w", spec, err)
	}
	s.logger.Info("Archive scheduled", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runYesterday() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	date := s.now().AddDate(0, 0, -1)
	if _, err := s.archiver.ArchiveAndNotify(ctx, date); err != nil {
		s.logger.Error("Scheduled archive failed", zap.String("date", date.Format("2006-01-02")), zap.Error(err))
	}
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
