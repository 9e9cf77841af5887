package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/lib/logger/sl"
)

const defaultVetoCooldown = 10 * time.Minute

// TeamStore is what the session needs from the persistence gateway for
// team writes and veto resync.
type TeamStore interface {
	UpdateTeamFields(ctx context.Context, id int64, upd models.TeamUpdate) error
	SelectTeamVeto(ctx context.Context, id int64) (*time.Time, error)
}

// ChallengeStore serves the eligible-challenge query for draws.
type ChallengeStore interface {
	SelectChallengesExcluding(ctx context.Context, excludeIDs []int64) ([]models.Challenge, error)
}

// Session is the per-team state machine. It applies transitions to the
// local snapshot first and persists them afterwards; by default the write
// is fire-and-forget, matching the thin-client behavior, so the local
// state can run ahead of durable state. Callers wanting writes confirmed
// before the transition sticks use WithStrictPersistence.
//
// All methods serialize on the session mutex, so transitions for one team
// are strictly ordered.
type Session struct {
	log        *slog.Logger
	teams      TeamStore
	challenges ChallengeStore
	clock      clockwork.Clock
	rand       *rand.Rand

	strictPersistence bool
	validateWinnable  bool
	vetoCooldown      time.Duration

	mu        sync.Mutex
	model     Model
	countdown *Countdown
	pending   sync.WaitGroup
}

type Option func(*Session)

// WithClock injects the clock used for veto deadlines and transit
// elapsed-time math. Tests pass a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithRand injects the source used for the uniform challenge pick.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rand = r }
}

// WithStrictPersistence makes every transition await its write and roll
// back the local snapshot when the write fails.
func WithStrictPersistence(strict bool) Option {
	return func(s *Session) { s.strictPersistence = strict }
}

// WithWinnableValidation toggles rejecting rewards outside the
// challenge's [min_coins, max_coins] range. On by default.
func WithWinnableValidation(validate bool) Option {
	return func(s *Session) { s.validateWinnable = validate }
}

// WithVetoCooldown overrides the cooldown applied by a fresh veto.
func WithVetoCooldown(d time.Duration) Option {
	return func(s *Session) { s.vetoCooldown = d }
}

func NewSession(
	log *slog.Logger,
	teams TeamStore,
	challenges ChallengeStore,
	team models.Team,
	opts ...Option,
) *Session {
	s := &Session{
		log:              log,
		teams:            teams,
		challenges:       challenges,
		clock:            clockwork.NewRealClock(),
		validateWinnable: true,
		vetoCooldown:     defaultVetoCooldown,
		model:            NewModel(team),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	s.countdown = NewCountdown(s.clock)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeVetoLocked()

	return s
}

// Draw picks the team's next challenge. If the team already has a
// current_challenge recorded it re-selects that exact challenge, so a
// reload resumes rather than re-rolls. An empty eligible set is the
// terminal exhausted condition and leaves the state unchanged.
func (s *Session) Draw(ctx context.Context) (*models.Challenge, error) {
	const op = "game.session.Draw"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Transit {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrTransitActive)
	}
	s.checkVetoLocked(ctx)
	if s.model.Veto != nil {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrVetoActive)
	}
	if s.model.Challenge != nil {
		challenge := *s.model.Challenge
		return &challenge, nil
	}

	eligible, err := s.challenges.SelectChallengesExcluding(ctx, s.model.Team.ChallengesCompleted)
	if err != nil {
		s.log.Error("failed to select challenges", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if current := s.model.Team.CurrentChallenge; current != nil {
		for i := range eligible {
			if eligible[i].ID == *current {
				s.model = Apply(s.model, NewChallenge{Challenge: eligible[i]})
				challenge := eligible[i]
				return &challenge, nil
			}
		}
		// stored current_challenge no longer eligible, fall through to a
		// fresh pick
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrChallengesExhausted)
	}

	chosen := eligible[s.rand.Intn(len(eligible))]
	next := Apply(s.model, NewChallenge{Challenge: chosen})
	if err := s.commitLocked(ctx, op, next, models.TeamUpdate{CurrentChallenge: &chosen.ID}); err != nil {
		return nil, err
	}

	challenge := chosen
	return &challenge, nil
}

// Complete finishes the active challenge for winnable coins: the id is
// appended to challenges_completed, the balance grows by winnable and the
// current challenge is cleared, all in one write.
func (s *Session) Complete(ctx context.Context, winnable int) (float64, error) {
	const op = "game.session.Complete"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Transit {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrTransitActive)
	}
	s.checkVetoLocked(ctx)
	if s.model.Veto != nil {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrVetoActive)
	}
	if s.model.Challenge == nil {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrNoActiveChallenge)
	}

	if s.validateWinnable {
		if winnable < s.model.Challenge.MinCoins || winnable > s.model.Challenge.MaxCoins {
			return 0, fmt.Errorf("%s: %d not in [%d, %d]: %w",
				op, winnable, s.model.Challenge.MinCoins, s.model.Challenge.MaxCoins,
				apperrors.ErrWinnableOutOfRange)
		}
	}

	next := Apply(s.model, Done{Winnable: winnable})
	completed := next.Team.ChallengesCompleted
	upd := models.TeamUpdate{
		Coins:                 next.Team.Coins,
		ClearCurrentChallenge: true,
		ChallengesCompleted:   &completed,
	}
	if err := s.commitLocked(ctx, op, next, upd); err != nil {
		return 0, err
	}

	return *next.Team.Coins, nil
}

// Pass gives the challenge back without completing it. Nothing is added
// to challenges_completed, so the challenge can be drawn again later.
func (s *Session) Pass(ctx context.Context) error {
	const op = "game.session.Pass"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Transit {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTransitActive)
	}
	s.checkVetoLocked(ctx)
	if s.model.Veto != nil {
		return fmt.Errorf("%s: %w", op, apperrors.ErrVetoActive)
	}
	if s.model.Challenge == nil {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNoActiveChallenge)
	}

	s.countdown.Stop()
	next := Apply(s.model, Pass{})
	upd := models.TeamUpdate{
		ClearCurrentChallenge: true,
		ClearVetoUntil:        true,
	}
	return s.commitLocked(ctx, op, next, upd)
}

// Veto puts the team on cooldown instead of completing the challenge. A
// deadline already persisted server-side is reused, so vetoing twice does
// not extend a running cooldown; otherwise the deadline is now plus the
// configured cooldown.
func (s *Session) Veto(ctx context.Context) (time.Time, error) {
	const op = "game.session.Veto"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.Transit {
		return time.Time{}, fmt.Errorf("%s: %w", op, apperrors.ErrTransitActive)
	}
	if s.model.Veto != nil {
		return *s.model.Veto, nil
	}
	if s.model.Challenge == nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, apperrors.ErrNoActiveChallenge)
	}

	stored, err := s.teams.SelectTeamVeto(ctx, s.model.Team.ID)
	if err != nil {
		s.log.Error("failed to resync veto deadline", slog.String("op", op), sl.Err(err))
	}

	if err == nil && stored != nil && stored.After(s.clock.Now()) {
		// cooldown already persisted by another client or a previous run
		deadline := *stored
		s.model = Apply(s.model, Veto{Until: &deadline})
		s.armVetoLocked(deadline)
		return deadline, nil
	}

	deadline := s.clock.Now().Add(s.vetoCooldown)
	next := Apply(s.model, Veto{Until: &deadline})
	completed := next.Team.ChallengesCompleted
	upd := models.TeamUpdate{
		VetoUntil:             &deadline,
		ClearCurrentChallenge: true,
		ChallengesCompleted:   &completed,
	}
	if err := s.commitLocked(ctx, op, next, upd); err != nil {
		return time.Time{}, err
	}

	s.armVetoLocked(deadline)
	return deadline, nil
}

// StartTransit begins the coin-burn count. It requires a positive balance
// and is ephemeral: nothing is persisted until the count stops.
func (s *Session) StartTransit(ctx context.Context) error {
	const op = "game.session.StartTransit"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkVetoLocked(ctx)
	if s.model.Veto != nil {
		return fmt.Errorf("%s: %w", op, apperrors.ErrVetoActive)
	}
	if s.model.Transit {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTransitActive)
	}
	if s.model.Coins() <= 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNoCoins)
	}

	s.model = Apply(s.model, Transit{On: true, Start: s.clock.Now()})
	return nil
}

// StopTransit settles the count: elapsed wall-clock minutes come off the
// starting balance and the result is rounded down to the nearest integer.
// The balance is persisted as-is, negative values included.
func (s *Session) StopTransit(ctx context.Context) (float64, error) {
	const op = "game.session.StopTransit"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.model.Transit {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrNotInTransit)
	}

	elapsed := s.clock.Now().Sub(s.model.TransitStart)
	updated := math.Floor(s.model.Coins() - elapsed.Minutes())

	next := Apply(s.model, TransitEnd{Coins: updated})
	if err := s.commitLocked(ctx, op, next, models.TeamUpdate{Coins: &updated}); err != nil {
		return 0, err
	}

	return updated, nil
}

// Snapshot reports the current state for rendering. It runs the passive
// veto-expiry check first, so a deadline that lapsed while nobody was
// ticking is cleared here.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkVetoLocked(ctx)

	snap := Snapshot{
		Phase:   s.model.Phase(),
		Team:    s.model.Team,
		Transit: s.model.Transit,
	}
	if s.model.Challenge != nil {
		challenge := *s.model.Challenge
		snap.Challenge = &challenge
	}
	if s.model.Veto != nil {
		until := *s.model.Veto
		snap.VetoUntil = &until
		snap.VetoRemaining = s.countdown.Display()
	}
	return snap
}

// Snapshot is the render-ready view of a session.
type Snapshot struct {
	Phase         Phase             `json:"phase"`
	Team          models.Team       `json:"team"`
	Challenge     *models.Challenge `json:"challenge,omitempty"`
	VetoUntil     *time.Time        `json:"veto_until,omitempty"`
	VetoRemaining string            `json:"veto_remaining,omitempty"`
	Transit       bool              `json:"transit"`
}

// Wait blocks until all fire-and-forget writes issued so far have
// finished. Used on shutdown and by tests.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Close cancels the veto countdown and flushes pending writes.
func (s *Session) Close() {
	s.countdown.Stop()
	s.pending.Wait()
}

// commitLocked installs next as the local snapshot and persists upd. In
// strict mode a failed write rolls the snapshot back; otherwise the write
// runs in the background and failures are only logged, leaving the local
// state optimistically ahead.
func (s *Session) commitLocked(ctx context.Context, op string, next Model, upd models.TeamUpdate) error {
	prev := s.model
	s.model = next

	if s.strictPersistence {
		if err := s.teams.UpdateTeamFields(ctx, s.model.Team.ID, upd); err != nil {
			s.model = prev
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	teamID := s.model.Team.ID
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.teams.UpdateTeamFields(context.Background(), teamID, upd); err != nil {
			s.log.Error("team update failed",
				slog.String("op", op),
				slog.Int64("team_id", teamID),
				sl.Err(err))
		}
	}()
	return nil
}

// checkVetoLocked is the passive expiry path: a deadline already in the
// past is cleared on the spot. The countdown callback funnels into the
// same expireVetoLocked, whose nil guard keeps the local transition to
// exactly one per cooldown; the NULL write is idempotent either way.
func (s *Session) checkVetoLocked(ctx context.Context) {
	if s.model.Veto == nil || s.model.Veto.After(s.clock.Now()) {
		return
	}
	s.countdown.Stop()
	s.expireVetoLocked(ctx)
}

func (s *Session) expireVetoLocked(ctx context.Context) {
	const op = "game.session.expireVeto"

	if s.model.Veto == nil {
		return
	}
	next := Apply(s.model, Veto{Until: nil})
	if err := s.commitLocked(ctx, op, next, models.TeamUpdate{ClearVetoUntil: true}); err != nil {
		// strict mode only; an expired cooldown stays expired locally
		s.log.Error("failed to clear veto", slog.String("op", op), sl.Err(err))
		s.model = next
	}
}

func (s *Session) resumeVetoLocked() {
	if s.model.Veto == nil {
		return
	}
	if s.model.Veto.After(s.clock.Now()) {
		s.armVetoLocked(*s.model.Veto)
		return
	}
	s.expireVetoLocked(context.Background())
}

func (s *Session) armVetoLocked(deadline time.Time) {
	s.countdown.Arm(deadline, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.expireVetoLocked(context.Background())
	})
}
