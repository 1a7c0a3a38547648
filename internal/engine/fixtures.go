package engine

import (
	"context"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// GenerateFixtures fills every double round-robin gap for the current
// active roster and returns how many fixtures were added. Safe to run
// repeatedly; late signups only gain the legs they are missing.
func (e *Engine) GenerateFixtures(ctx context.Context, actor string) (int, error) {
	added := 0
	err := e.store.Tx(ctx, func(s store.Store) error {
		active, err := s.ActivePlayers(ctx)
		if err != nil {
			return err
		}
		existing, err := s.Fixtures(ctx)
		if err != nil {
			return err
		}
		missing := league.MissingFixtures(activeIDs(active), existing)
		if len(missing) == 0 {
			return nil
		}
		added, err = s.InsertFixtures(ctx, missing)
		if err != nil {
			return err
		}
		if added > 0 {
			e.audit(ctx, s, actor, "fixtures_generated", map[string]any{
				"added":   added,
				"players": len(active),
			})
		}
		return nil
	})
	return added, err
}

// Ready puts the player into the matchmaking pool. Players with an open
// match get ErrOpenMatch; re-joining while queued is a no-op reported
// via the bool.
func (e *Engine) Ready(ctx context.Context, userID string) (joined bool, err error) {
	err = e.store.Tx(ctx, func(s store.Store) error {
		if _, err := e.activePlayer(ctx, s, userID); err != nil {
			return err
		}
		if m, err := s.OpenMatchFor(ctx, userID); err != nil {
			return err
		} else if m != nil {
			return ErrOpenMatch
		}
		already, err := s.InQueue(ctx, userID)
		if err != nil {
			return err
		}
		if already {
			return nil
		}
		if err := s.Enqueue(ctx, userID, e.now()); err != nil {
			return err
		}
		joined = true
		e.audit(ctx, s, userID, "player_ready", nil)
		return nil
	})
	return joined, err
}

// Unready removes the player from the pool; returns false when they
// were not queued.
func (e *Engine) Unready(ctx context.Context, userID string) (bool, error) {
	removed := false
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		removed, err = s.Dequeue(ctx, userID)
		if err != nil {
			return err
		}
		if removed {
			e.audit(ctx, s, userID, "player_unready", nil)
		}
		return nil
	})
	return removed, err
}
