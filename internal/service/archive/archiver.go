package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/service/notify"
)

// RaceSource is satisfied by race.Service.
type RaceSource interface {
	RaceIDsByDate(ctx context.Context, date time.Time) ([]string, error)
	Database(ctx context.Context, id domain.RaceID) (*domain.RaceDatabase, error)
}

// Store is satisfied by database.RaceRepository.
type Store interface {
	SaveRace(ctx context.Context, race *domain.RaceDatabase) error
	HasRace(ctx context.Context, raceID string) (bool, error)
}

type Notifier interface {
	Send(msg *notify.Message) error
}

// Summary reports one ArchiveDate run. Failures maps race id to the error text.
type Summary struct {
	Date     time.Time         `json:"date"`
	Total    int               `json:"total"`
	Archived []string          `json:"archived"`
	Skipped  []string          `json:"skipped"`
	Failures map[string]string `json:"failures"`
}

type Archiver struct {
	source      RaceSource
	store       Store
	notifier    Notifier
	metrics     *metrics.Metrics
	concurrency int
	logger      *zap.Logger
}

func NewArchiver(source RaceSource, store Store, notifier Notifier, m *metrics.Metrics, concurrency int, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Archiver{
		source:      source,
		store:       store,
		notifier:    notifier,
		metrics:     m,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ArchiveDate stores every race held on date. Races already archived are skipped and
// a failing race does not stop the others.
func (a *Archiver) ArchiveDate(ctx context.Context, date time.Time) (*Summary, error) {
	ids, err := a.source.RaceIDsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Date: date, Total: len(ids), Failures: make(map[string]string)}
	var mu sync.Mutex
	record := func(id, outcome string, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case "archived":
			summary.Archived = append(summary.Archived, id)
		case "skipped":
			summary.Skipped = append(summary.Skipped, id)
		default:
			summary.Failures[id] = err.Error()
		}
		if a.metrics != nil {
			a.metrics.ArchivedRaces.WithLabelValues(outcome).Inc()
		}
	}

	p := pool.New().WithMaxGoroutines(a.concurrency)
	for _, raw := range ids {
		raw := raw
		p.Go(func() {
			outcome, err := a.archiveOne(ctx, raw)
			if err != nil {
				a.logger.Warn("Failed to archive race", zap.String("race_id", raw), zap.Error(err))
			}
			record(raw, outcome, err)
		})
	}
	p.Wait()

	sort.Strings(summary.Archived)
	sort.Strings(summary.Skipped)

	a.logger.Info("Archive run finished",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("total", summary.Total),
		zap.Int("archived", len(summary.Archived)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failures)),
	)
	return summary, ctx.Err()
}

func (a *Archiver) archiveOne(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "failed", err
	}
	id, err := domain.ParseRaceID(raw)
	if err != nil {
		return "failed", err
	}

	exists, err := a.store.HasRace(ctx, raw)
	if err != nil {
		return "failed", err
	}
	if exists {
		return "skipped", nil
	}

	race, err := a.source.Database(ctx, id)
	if err != nil {
		return "failed", err
	}
	if err := a.store.SaveRace(ctx, race); err != nil {
		return "failed", err
	}
	return "archived", nil
}

// ArchiveAndNotify runs ArchiveDate and mails the digest when a notifier is set.
func (a *Archiver) ArchiveAndNotify(ctx context.Context, date time.Time) (*Summary, error) {
	summary, err := a.ArchiveDate(ctx, date)
	if summary == nil || a.notifier == nil {
		return summary, err
	}

	msg, renderErr := RenderDigest(summary)
	if renderErr != nil {
		a.logger.Error("Failed to render archive digest", zap.Error(renderErr))
		return summary, err
	}
	if sendErr := a.notifier.Send(msg); sendErr != nil {
		a.logger.Warn("Failed to send archive digest", zap.Error(sendErr))
	}
	return summary, err
}
