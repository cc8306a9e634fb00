package archive

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/service/notify"
)

type fakeSource struct {
	ids    []string
	broken map[string]bool
}

func (f *fakeSource) RaceIDsByDate(context.Context, time.Time) ([]string, error) {
	return f.ids, nil
}

func (f *fakeSource) Database(_ context.Context, id domain.RaceID) (*domain.RaceDatabase, error) {
	if f.broken[id.String()] {
		return nil, errors.New("upstream 503")
	}
	return &domain.RaceDatabase{Info: domain.RaceInfo{RaceID: id.String()}}, nil
}

type memoryStore struct {
	mu    sync.Mutex
	races map[string]*domain.RaceDatabase
}

func (s *memoryStore) SaveRace(_ context.Context, race *domain.RaceDatabase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.races[race.Info.RaceID] = race
	return nil
}

func (s *memoryStore) HasRace(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.races[id]
	return ok, nil
}

type captureNotifier struct {
	msgs []*notify.Message
}

func (c *captureNotifier) Send(msg *notify.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestArchiveDate(t *testing.T) {
	source := &fakeSource{
		ids:    []string{"202408050603", "202408050601", "202408050602", "bogus"},
		broken: map[string]bool{"202408050602": true},
	}
	store := &memoryStore{races: map[string]*domain.RaceDatabase{"202408050603": {}}}
	m := metrics.New()
	a := NewArchiver(source, store, nil, m, 2, nil)

	summary, err := a.ArchiveDate(context.Background(), time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 4, summary.Total)
	require.Equal(t, []string{"202408050601"}, summary.Archived)
	require.Equal(t, []string{"202408050603"}, summary.Skipped)
	require.Len(t, summary.Failures, 2)
	require.Contains(t, summary.Failures["202408050602"], "503")
	require.Contains(t, store.races, "202408050601")

	require.Equal(t, 1.0, testutil.ToFloat64(m.ArchivedRaces.WithLabelValues("archived")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ArchivedRaces.WithLabelValues("failed")))
}

func TestArchiveAndNotifySendsDigest(t *testing.T) {
	source := &fakeSource{ids: []string{"202408050601"}, broken: map[string]bool{}}
	store := &memoryStore{races: map[string]*domain.RaceDatabase{}}
	n := &captureNotifier{}
	a := NewArchiver(source, store, n, nil, 1, nil)

	_, err := a.ArchiveAndNotify(context.Background(), time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, n.msgs, 1)
	require.Equal(t, "レースアーカイブ 2024-10-13", n.msgs[0].Subject)
	require.True(t, strings.Contains(n.msgs[0].Text, "保存: 1"))
}

func TestRenderDigestListsFailures(t *testing.T) {
	msg, err := RenderDigest(&Summary{
		Date:     time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC),
		Total:    2,
		Failures: map[string]string{"202408050612": "timeout", "202408050611": "<503>"},
	})
	require.NoError(t, err)
	require.Less(t, strings.Index(msg.Text, "202408050611"), strings.Index(msg.Text, "202408050612"))
	require.Contains(t, msg.HTML, "&lt;503&gt;")
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(NewArchiver(&fakeSource{}, &memoryStore{}, nil, nil, 1, nil), nil)
	require.Error(t, s.Schedule("every night"))
	require.NoError(t, s.Schedule("0 6 * * *"))
}

func TestSchedulerArchivesYesterday(t *testing.T) {
	var got time.Time
	source := &dateRecorder{got: &got}
	s := NewScheduler(NewArchiver(source, &memoryStore{races: map[string]*domain.RaceDatabase{}}, nil, nil, 1, nil), nil)
	s.now = func() time.Time { return time.Date(2024, 10, 14, 6, 0, 0, 0, time.UTC) }

	s.runYesterday()
	require.Equal(t, "2024-10-13", got.Format("2006-01-02"))
}

type dateRecorder struct {
	got *time.Time
}

func (d *dateRecorder) RaceIDsByDate(_ context.Context, date time.Time) ([]string, error) {
	*d.got = date
	return nil, nil
}

func (d *dateRecorder) Database(context.Context, domain.RaceID) (*domain.RaceDatabase, error) {
	return nil, errors.New("unexpected")
}
