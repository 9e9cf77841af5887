package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
)

// fakeStore backs a session with in-memory rows, standing in for both the
// team and challenge repos.
type fakeStore struct {
	mu         sync.Mutex
	team       models.Team
	challenges []models.Challenge
	updates    []models.TeamUpdate
	selectErr  error
	updateErr  error
	vetoErr    error
}

func (f *fakeStore) SelectChallengesExcluding(_ context.Context, excludeIDs []int64) ([]models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var out []models.Challenge
	for _, c := range f.challenges {
		if !excluded[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTeamFields(_ context.Context, id int64, upd models.TeamUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}

	f.updates = append(f.updates, upd)

	if upd.Coins != nil {
		coins := *upd.Coins
		f.team.Coins = &coins
	}
	if upd.ClearCurrentChallenge {
		f.team.CurrentChallenge = nil
	} else if upd.CurrentChallenge != nil {
		id := *upd.CurrentChallenge
		f.team.CurrentChallenge = &id
	}
	if upd.ClearVetoUntil {
		f.team.VetoUntil = nil
	} else if upd.VetoUntil != nil {
		until := *upd.VetoUntil
		f.team.VetoUntil = &until
	}
	if upd.ChallengesCompleted != nil {
		f.team.ChallengesCompleted = append(pq.Int64Array{}, *upd.ChallengesCompleted...)
	}
	return nil
}

func (f *fakeStore) SelectTeamVeto(_ context.Context, id int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vetoErr != nil {
		return nil, f.vetoErr
	}
	if f.team.VetoUntil == nil {
		return nil, nil
	}
	until := *f.team.VetoUntil
	return &until, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeStore() *fakeStore {
	coins := 20.0
	return &fakeStore{
		team: models.Team{
			ID:                  1,
			Name:                "Runners",
			Coins:               &coins,
			ChallengesCompleted: pq.Int64Array{},
		},
		challenges: []models.Challenge{
			{ID: 1, Name: "One", MinCoins: 1, MaxCoins: 5},
			{ID: 2, Name: "Two", MinCoins: 2, MaxCoins: 5},
			{ID: 3, Name: "Three", MinCoins: 3, MaxCoins: 7},
		},
	}
}

func newTestSession(store *fakeStore, clock clockwork.Clock, opts ...Option) *Session {
	base := []Option{
		WithClock(clock),
		WithRand(rand.New(rand.NewSource(1))),
		WithStrictPersistence(true),
	}
	return NewSession(discardLogger(), store, store, store.team, append(base, opts...)...)
}

func TestDrawNeverSelectsCompleted(t *testing.T) {
	store := newFakeStore()
	store.team.ChallengesCompleted = pq.Int64Array{1, 3}
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if ch.ID != 2 {
		t.Fatalf("drew challenge %d, want the only eligible id 2", ch.ID)
	}
	if store.team.CurrentChallenge == nil || *store.team.CurrentChallenge != 2 {
		t.Fatalf("current_challenge not persisted: %+v", store.team.CurrentChallenge)
	}
}

func TestDrawExhaustedSetLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	store.team.ChallengesCompleted = pq.Int64Array{1, 2, 3}
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	_, err := s.Draw(context.Background())
	if !errors.Is(err, apperrors.ErrChallengesExhausted) {
		t.Fatalf("err = %v, want ErrChallengesExhausted", err)
	}
	if store.updateCount() != 0 {
		t.Fatalf("exhausted draw issued %d writes, want 0", store.updateCount())
	}
	if got := s.Snapshot(context.Background()); got.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want %s", got.Phase, PhaseIdle)
	}
}

func TestDrawResumesCurrentChallenge(t *testing.T) {
	store := newFakeStore()
	current := int64(3)
	store.team.CurrentChallenge = &current
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if ch.ID != 3 {
		t.Fatalf("resumed challenge %d, want stored id 3", ch.ID)
	}
	if store.updateCount() != 0 {
		t.Fatalf("resume issued %d writes, want 0", store.updateCount())
	}
}

func TestDrawIsIdempotentWhileActive(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	first, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	second, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("second draw failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second draw re-rolled: %d then %d", first.ID, second.ID)
	}
	if store.updateCount() != 1 {
		t.Fatalf("draws issued %d writes, want 1", store.updateCount())
	}
}

func TestCompleteAddsCoinsAndAppendsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	balance, err := s.Complete(context.Background(), ch.MinCoins)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if want := 20 + float64(ch.MinCoins); balance != want {
		t.Fatalf("balance = %v, want %v", balance, want)
	}
	if len(store.team.ChallengesCompleted) != 1 || store.team.ChallengesCompleted[0] != ch.ID {
		t.Fatalf("challenges_completed = %v, want [%d]", store.team.ChallengesCompleted, ch.ID)
	}
	if store.team.CurrentChallenge != nil {
		t.Fatal("current_challenge not cleared")
	}
}

func TestCompleteRejectsOutOfRangeWinnable(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	_, err = s.Complete(context.Background(), ch.MaxCoins+1)
	if !errors.Is(err, apperrors.ErrWinnableOutOfRange) {
		t.Fatalf("err = %v, want ErrWinnableOutOfRange", err)
	}

	// permissive mode records whatever it is given
	store2 := newFakeStore()
	s2 := newTestSession(store2, clock, WithWinnableValidation(false))
	ch2, err := s2.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	balance, err := s2.Complete(context.Background(), ch2.MaxCoins+100)
	if err != nil {
		t.Fatalf("permissive complete failed: %v", err)
	}
	if want := 20 + float64(ch2.MaxCoins+100); balance != want {
		t.Fatalf("balance = %v, want %v", balance, want)
	}
}

func TestCompleteWithoutChallenge(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(store, clockwork.NewFakeClock())

	_, err := s.Complete(context.Background(), 3)
	if !errors.Is(err, apperrors.ErrNoActiveChallenge) {
		t.Fatalf("err = %v, want ErrNoActiveChallenge", err)
	}
}

func TestPassKeepsChallengeEligible(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	first, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := s.Pass(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if len(store.team.ChallengesCompleted) != 0 {
		t.Fatalf("pass appended to completed: %v", store.team.ChallengesCompleted)
	}
	if *store.team.Coins != 20 {
		t.Fatalf("pass changed coins: %v", *store.team.Coins)
	}
	if store.team.CurrentChallenge != nil || store.team.VetoUntil != nil {
		t.Fatal("pass did not clear current_challenge and veto_until")
	}

	// the passed challenge can come around again
	for i := 0; i < 50; i++ {
		ch, err := s.Draw(context.Background())
		if err != nil {
			t.Fatalf("redraw failed: %v", err)
		}
		if ch.ID == first.ID {
			return
		}
		if err := s.Pass(context.Background()); err != nil {
			t.Fatalf("pass failed: %v", err)
		}
	}
	t.Fatalf("challenge %d never drawn again after pass", first.ID)
}

func TestVetoDeadlineIsTenMinutes(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if _, err := s.Draw(context.Background()); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	deadline, err := s.Veto(context.Background())
	if err != nil {
		t.Fatalf("veto failed: %v", err)
	}

	if want := clock.Now().Add(10 * time.Minute); !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}
	if store.team.VetoUntil == nil || !store.team.VetoUntil.Equal(deadline) {
		t.Fatalf("veto_until not persisted: %v", store.team.VetoUntil)
	}
	if store.team.CurrentChallenge != nil {
		t.Fatal("veto left current_challenge set")
	}
	if got := s.Snapshot(context.Background()); got.Phase != PhaseVetoed {
		t.Fatalf("phase = %s, want %s", got.Phase, PhaseVetoed)
	}
}

func TestVetoIsIdempotent(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if _, err := s.Draw(context.Background()); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	first, err := s.Veto(context.Background())
	if err != nil {
		t.Fatalf("veto failed: %v", err)
	}

	clock.Advance(3 * time.Minute)

	second, err := s.Veto(context.Background())
	if err != nil {
		t.Fatalf("second veto failed: %v", err)
	}
	if !second.Equal(first) {
		t.Fatalf("second veto moved the deadline: %v then %v", first, second)
	}
}

func TestVetoReusesServerSideDeadline(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	stored := clock.Now().Add(4 * time.Minute)
	s := newTestSession(store, clock)

	if _, err := s.Draw(context.Background()); err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	// another client persisted a cooldown in the meantime
	store.mu.Lock()
	store.team.VetoUntil = &stored
	writesBefore := len(store.updates)
	store.mu.Unlock()

	deadline, err := s.Veto(context.Background())
	if err != nil {
		t.Fatalf("veto failed: %v", err)
	}
	if !deadline.Equal(stored) {
		t.Fatalf("deadline = %v, want reused %v", deadline, stored)
	}
	if store.updateCount() != writesBefore {
		t.Fatal("reusing a stored deadline should not write")
	}
}

func TestVetoExpiryViaPassiveCheck(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if _, err := s.Draw(context.Background()); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if _, err := s.Veto(context.Background()); err != nil {
		t.Fatalf("veto failed: %v", err)
	}

	clock.Advance(11 * time.Minute)

	snap := s.Snapshot(context.Background())
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want %s after expiry", snap.Phase, PhaseIdle)
	}
	if store.team.VetoUntil != nil {
		t.Fatalf("veto_until not cleared server-side: %v", store.team.VetoUntil)
	}

	// a second check must not transition again
	before := store.updateCount()
	_ = s.Snapshot(context.Background())
	if store.updateCount() != before {
		t.Fatal("expiry fired twice")
	}
}

func TestDrawBlockedDuringVeto(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if _, err := s.Draw(context.Background()); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if _, err := s.Veto(context.Background()); err != nil {
		t.Fatalf("veto failed: %v", err)
	}

	if _, err := s.Draw(context.Background()); !errors.Is(err, apperrors.ErrVetoActive) {
		t.Fatalf("err = %v, want ErrVetoActive", err)
	}
	if err := s.StartTransit(context.Background()); !errors.Is(err, apperrors.ErrVetoActive) {
		t.Fatalf("err = %v, want ErrVetoActive", err)
	}
}

func TestTransitBurnRoundsDown(t *testing.T) {
	store := newFakeStore()
	coins := 10.0
	store.team.Coins = &coins
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if err := s.StartTransit(context.Background()); err != nil {
		t.Fatalf("start transit failed: %v", err)
	}
	clock.Advance(90 * time.Second)

	updated, err := s.StopTransit(context.Background())
	if err != nil {
		t.Fatalf("stop transit failed: %v", err)
	}
	if updated != 8 {
		t.Fatalf("coins = %v, want floor(10 - 1.5) = 8", updated)
	}
	if *store.team.Coins != 8 {
		t.Fatalf("persisted coins = %v, want 8", *store.team.Coins)
	}
}

func TestTransitBalanceMayGoNegative(t *testing.T) {
	store := newFakeStore()
	coins := 1.0
	store.team.Coins = &coins
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	if err := s.StartTransit(context.Background()); err != nil {
		t.Fatalf("start transit failed: %v", err)
	}
	clock.Advance(5 * time.Minute)

	updated, err := s.StopTransit(context.Background())
	if err != nil {
		t.Fatalf("stop transit failed: %v", err)
	}
	if updated != -4 {
		t.Fatalf("coins = %v, want -4 (no clamp to zero)", updated)
	}
}

func TestTransitRequiresCoins(t *testing.T) {
	store := newFakeStore()
	coins := 0.0
	store.team.Coins = &coins
	s := newTestSession(store, clockwork.NewFakeClock())

	if err := s.StartTransit(context.Background()); !errors.Is(err, apperrors.ErrNoCoins) {
		t.Fatalf("err = %v, want ErrNoCoins", err)
	}
}

func TestTransitSuppressesChallengeTransitions(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := s.StartTransit(context.Background()); err != nil {
		t.Fatalf("start transit failed: %v", err)
	}

	if _, err := s.Complete(context.Background(), ch.MinCoins); !errors.Is(err, apperrors.ErrTransitActive) {
		t.Fatalf("err = %v, want ErrTransitActive", err)
	}
	if err := s.Pass(context.Background()); !errors.Is(err, apperrors.ErrTransitActive) {
		t.Fatalf("err = %v, want ErrTransitActive", err)
	}
	if _, err := s.Veto(context.Background()); !errors.Is(err, apperrors.ErrTransitActive) {
		t.Fatalf("err = %v, want ErrTransitActive", err)
	}

	snap := s.Snapshot(context.Background())
	if snap.Phase != PhaseTransit || !snap.Transit {
		t.Fatalf("snapshot = %+v, want transit flag set", snap)
	}
}

func TestOptimisticCompleteSurvivesWriteFailure(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := NewSession(discardLogger(), store, store, store.team,
		WithClock(clock),
		WithRand(rand.New(rand.NewSource(1))),
	)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	s.Wait()

	store.mu.Lock()
	store.updateErr = errors.New("gateway down")
	store.mu.Unlock()

	balance, err := s.Complete(context.Background(), ch.MinCoins)
	if err != nil {
		t.Fatalf("optimistic complete surfaced a persistence error: %v", err)
	}
	s.Wait()

	// local state advanced even though the write failed
	if want := 20 + float64(ch.MinCoins); balance != want {
		t.Fatalf("balance = %v, want %v", balance, want)
	}
	snap := s.Snapshot(context.Background())
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseIdle)
	}
	if store.team.CurrentChallenge == nil {
		t.Fatal("durable state should still have the challenge: write failed")
	}
}

func TestStrictCompleteRollsBackOnWriteFailure(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	store.mu.Lock()
	store.updateErr = errors.New("gateway down")
	store.mu.Unlock()

	if _, err := s.Complete(context.Background(), ch.MinCoins); err == nil {
		t.Fatal("strict complete swallowed the persistence error")
	}

	snap := s.Snapshot(context.Background())
	if snap.Phase != PhaseChallengeActive {
		t.Fatalf("phase = %s, want rollback to %s", snap.Phase, PhaseChallengeActive)
	}
}

func TestEndToEndScenario(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	s := newTestSession(store, clock)

	ch, err := s.Draw(context.Background())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	balance, err := s.Complete(context.Background(), 5)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if balance != 25 {
		t.Fatalf("balance = %v, want 25", balance)
	}
	if len(store.team.ChallengesCompleted) != 1 || store.team.ChallengesCompleted[0] != ch.ID {
		t.Fatalf("challenges_completed = %v, want [%d]", store.team.ChallengesCompleted, ch.ID)
	}
	if store.team.CurrentChallenge != nil {
		t.Fatal("current_challenge not cleared")
	}
}
