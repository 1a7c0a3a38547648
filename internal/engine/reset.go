package engine

import (
	"context"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// StageReset parks a destructive reset behind a confirmation token.
// Nothing is touched yet; the token expires on its own if the admin
// never follows through.
func (e *Engine) StageReset(ctx context.Context, adminID string, level coord.ResetLevel) (string, error) {
	token, err := e.coord.StageReset(ctx, level, adminID)
	if err != nil {
		return "", err
	}
	e.audit(ctx, e.store, adminID, "reset_staged", map[string]any{"level": level})
	return token, nil
}

// ConfirmReset consumes the token and performs the staged reset. Only
// the admin who staged it may confirm; anyone else gets
// coord.ErrNotRequester and the token stays live.
func (e *Engine) ConfirmReset(ctx context.Context, adminID, token string) (coord.ResetLevel, error) {
	level, err := e.coord.ConfirmReset(ctx, token, adminID)
	if err != nil {
		return "", err
	}
	err = e.store.Tx(ctx, func(s store.Store) error {
		switch level {
		case coord.ResetCheckins:
			ls, err := s.LeagueSettings(ctx)
			if err != nil {
				return err
			}
			if err := s.ResetCheckins(ctx, league.Today(ls.Timezone, e.now())); err != nil {
				return err
			}
		case coord.ResetLeague:
			if err := s.ResetLeague(ctx); err != nil {
				return err
			}
			if err := s.ClearQueue(ctx); err != nil {
				return err
			}
		case coord.ResetEverything:
			if err := s.ResetEverything(ctx); err != nil {
				return err
			}
			if err := s.ClearQueue(ctx); err != nil {
				return err
			}
		}
		e.audit(ctx, s, adminID, "reset_confirmed", map[string]any{"level": level})
		return nil
	})
	if err != nil {
		return "", err
	}
	return level, nil
}

// CancelReset discards a staged reset without performing it.
func (e *Engine) CancelReset(ctx context.Context, adminID, token string) error {
	if err := e.coord.CancelReset(ctx, token); err != nil {
		return err
	}
	e.audit(ctx, e.store, adminID, "reset_cancelled", nil)
	return nil
}
