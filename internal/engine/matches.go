package engine

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// CreateMatchForFixture claims the fixture, opens a pending match and
// announces it. The claim is a compare and swap, so two concurrent
// matchmaker ticks cannot double-book a fixture; the loser gets
// store.ErrFixtureClaimed and moves on.
//
// Announcing happens after commit. If the announcement itself fails the
// match is rolled back compensatingly: fixture unlocked, match
// cancelled, players left in the queue for the next tick.
func (e *Engine) CreateMatchForFixture(ctx context.Context, guildID string, fixtureID int64) (*league.Match, error) {
	var (
		m *league.Match
		f *league.Fixture
	)
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		f, err = s.FixtureByID(ctx, fixtureID)
		if err != nil {
			return err
		}
		if err := s.ClaimFixture(ctx, fixtureID); err != nil {
			return err
		}
		m = &league.Match{
			GuildID:   guildID,
			FixtureID: f.ID,
			PlayerA:   f.PlayerA,
			PlayerB:   f.PlayerB,
			State:     league.MatchPending,
			CreatedAt: e.now(),
		}
		if err := s.CreateMatch(ctx, m); err != nil {
			return err
		}
		if _, err := s.Dequeue(ctx, f.PlayerA); err != nil {
			return err
		}
		if _, err := s.Dequeue(ctx, f.PlayerB); err != nil {
			return err
		}
		e.audit(ctx, s, "", "match_created", map[string]any{
			"matchId":   m.ID,
			"fixtureId": f.ID,
			"playerA":   f.PlayerA,
			"playerB":   f.PlayerB,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, gs, err := e.settings(ctx, guildID)
	if err != nil {
		// Without guild settings the match can never be announced, so
		// it would sit locked and invisible. Roll it back like a
		// failed announcement.
		e.compensateAnnounceFailure(ctx, m)
		return nil, err
	}
	channelID, messageID, err := e.notify.AnnounceMatch(ctx, m, f, gs)
	if err != nil {
		e.compensateAnnounceFailure(ctx, m)
		return nil, err
	}
	m.ChannelID, m.MessageID = channelID, messageID
	if err := e.store.SetMatchMessage(ctx, m.ID, channelID, messageID); err != nil {
		return nil, err
	}

	// DMs are best effort.
	for _, uid := range []string{m.PlayerA, m.PlayerB} {
		if err := e.notify.DMAssignment(ctx, uid, m, gs); err != nil {
			obslog.L().Debug("assignment dm failed",
				zap.String("user", uid),
				zap.Error(err))
		}
	}
	return m, nil
}

func (e *Engine) compensateAnnounceFailure(ctx context.Context, m *league.Match) {
	err := e.store.Tx(ctx, func(s store.Store) error {
		if err := s.SetFixtureStatus(ctx, m.FixtureID, league.FixtureUnplayed); err != nil {
			return err
		}
		now := e.now()
		if err := s.SetMatchState(ctx, m.ID, league.MatchCancelled, &now); err != nil {
			return err
		}
		// Players go back into the pool so the next tick can retry.
		if err := s.Enqueue(ctx, m.PlayerA, now); err != nil {
			return err
		}
		if err := s.Enqueue(ctx, m.PlayerB, now); err != nil {
			return err
		}
		e.audit(ctx, s, "", "match_announce_failed", map[string]any{"matchId": m.ID})
		return nil
	})
	if err != nil {
		obslog.L().Error("match announce compensation failed",
			zap.Int64("match_id", m.ID),
			zap.Error(err))
	}
}

// NextUnplayedFixtureBetween returns the lowest remaining leg between
// two players, or ErrNoFixtureLeft.
func (e *Engine) NextUnplayedFixtureBetween(ctx context.Context, a, b string) (*league.Fixture, error) {
	fixtures, err := e.store.UnplayedFixturesAmong(ctx, []string{a, b})
	if err != nil {
		return nil, err
	}
	sort.Slice(fixtures, func(i, j int) bool {
		if fixtures[i].Leg != fixtures[j].Leg {
			return fixtures[i].Leg < fixtures[j].Leg
		}
		return fixtures[i].ID < fixtures[j].ID
	})
	if len(fixtures) == 0 {
		return nil, ErrNoFixtureLeft
	}
	return &fixtures[0], nil
}

// CreateMatchBetween is the admin path: open a match on the next
// remaining leg between two named players, regardless of the queue.
func (e *Engine) CreateMatchBetween(ctx context.Context, adminID, guildID, a, b string) (*league.Match, error) {
	for _, uid := range []string{a, b} {
		if m, err := e.store.OpenMatchFor(ctx, uid); err != nil {
			return nil, err
		} else if m != nil {
			return nil, ErrOpenMatch
		}
	}
	f, err := e.NextUnplayedFixtureBetween(ctx, a, b)
	if err != nil {
		return nil, err
	}
	m, err := e.CreateMatchForFixture(ctx, guildID, f.ID)
	if err != nil {
		return nil, err
	}
	e.audit(ctx, e.store, adminID, "admin_match_created", map[string]any{"matchId": m.ID})
	return m, nil
}

// openMatch loads a match and rejects terminal states.
func (e *Engine) openMatch(ctx context.Context, s store.Store, matchID int64) (*league.Match, error) {
	m, err := s.MatchByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenMatch
		}
		return nil, err
	}
	if !m.State.Open() {
		return nil, ErrMatchNotOpen
	}
	return m, nil
}
