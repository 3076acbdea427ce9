package squareoff

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"vstocks/internal/markethours"
	"vstocks/internal/metrics"
	"vstocks/internal/trading"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu     sync.Mutex
	closed []string
	fail   map[string]error
}

func (f *fakeEngine) ForceSquareOff(_ context.Context, positionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[positionID]; ok {
		return err
	}
	f.closed = append(f.closed, positionID)
	return nil
}

type fakeStore struct {
	mu         sync.Mutex
	candidates []trading.SquareOffCandidate
	registered map[string]time.Time
	queryErr   error
}

func (f *fakeStore) SquareOffCandidates(context.Context, time.Time) ([]trading.SquareOffCandidate, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.candidates, nil
}

func (f *fakeStore) SetSquareOffAt(_ context.Context, positionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registered == nil {
		f.registered = map[string]time.Time{}
	}
	f.registered[positionID] = at
	return nil
}

func newTestScheduler(engine *fakeEngine, store *fakeStore, now time.Time) *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(engine, store, metrics.New(), logrus.NewEntry(log), time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestSweepClosesDuePositions(t *testing.T) {
	due := time.Date(2026, time.August, 26, 15, 30, 0, 0, markethours.IST)
	now := due.Add(time.Minute)
	engine := &fakeEngine{}
	store := &fakeStore{candidates: []trading.SquareOffCandidate{
		{PositionID: "p1", SquareOffAt: &due},
		{PositionID: "p2", SquareOffAt: &due},
	}}

	newTestScheduler(engine, store, now).sweep()
	require.Equal(t, []string{"p1", "p2"}, engine.closed)
}

func TestSweepReRegistersMissingDeadline(t *testing.T) {
	openedAt := time.Date(2026, time.August, 26, 11, 0, 0, 0, markethours.IST)
	now := openedAt.Add(time.Hour) // before the close
	engine := &fakeEngine{}
	store := &fakeStore{candidates: []trading.SquareOffCandidate{
		{PositionID: "p1", CreatedAt: openedAt},
	}}

	newTestScheduler(engine, store, now).sweep()
	require.Empty(t, engine.closed)
	require.Equal(t, markethours.CloseFor(openedAt), store.registered["p1"])
}

func TestSweepClosesUnregisteredPastDeadline(t *testing.T) {
	openedAt := time.Date(2026, time.August, 26, 11, 0, 0, 0, markethours.IST)
	now := time.Date(2026, time.August, 26, 15, 35, 0, 0, markethours.IST)
	engine := &fakeEngine{}
	store := &fakeStore{candidates: []trading.SquareOffCandidate{
		{PositionID: "p1", CreatedAt: openedAt},
	}}

	newTestScheduler(engine, store, now).sweep()
	require.Equal(t, []string{"p1"}, engine.closed)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	due := time.Date(2026, time.August, 26, 15, 30, 0, 0, markethours.IST)
	now := due.Add(time.Minute)
	engine := &fakeEngine{fail: map[string]error{"p1": errors.New("price unavailable")}}
	store := &fakeStore{candidates: []trading.SquareOffCandidate{
		{PositionID: "p1", SquareOffAt: &due},
		{PositionID: "p2", SquareOffAt: &due},
	}}

	newTestScheduler(engine, store, now).sweep()
	require.Equal(t, []string{"p2"}, engine.closed)
}

func TestRegisterStoresTradingDayClose(t *testing.T) {
	openedAt := time.Date(2026, time.August, 26, 11, 0, 0, 0, markethours.IST)
	store := &fakeStore{}
	s := newTestScheduler(&fakeEngine{}, store, openedAt)

	s.Register("p1", openedAt)
	require.Equal(t, markethours.CloseFor(openedAt), store.registered["p1"])
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(&fakeEngine{}, &fakeStore{}, time.Now())
	s.Start()
	s.Stop()
}
