package engine

import (
	"context"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// ArmOverride puts the match under one admin's exclusive control. The
// override only takes effect once both winner and score are set;
// meanwhile player reports keep flowing normally.
func (e *Engine) ArmOverride(ctx context.Context, adminID string, matchID int64) error {
	return e.store.Tx(ctx, func(s store.Store) error {
		if _, err := e.openMatch(ctx, s, matchID); err != nil {
			return err
		}
		if err := s.ArmOverride(ctx, matchID, adminID); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "override_armed", map[string]any{"matchId": matchID})
		return nil
	})
}

// SetOverrideWinner records the admin's winner pick and reconciles.
func (e *Engine) SetOverrideWinner(ctx context.Context, adminID string, matchID int64, side league.WinnerSide) (*MatchUpdate, error) {
	err := e.store.Tx(ctx, func(s store.Store) error {
		if _, err := e.openMatch(ctx, s, matchID); err != nil {
			return err
		}
		if err := s.SetOverrideWinner(ctx, matchID, adminID, side); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "override_winner", map[string]any{"matchId": matchID, "side": side})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, matchID)
}

// SetOverrideScore records the admin's score code and reconciles.
func (e *Engine) SetOverrideScore(ctx context.Context, adminID string, matchID int64, raw string) (*MatchUpdate, error) {
	m, err := e.store.MatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	_, gs, err := e.settings(ctx, m.GuildID)
	if err != nil {
		return nil, err
	}
	code, ok := parseScoreInput(gs.MatchFormat, raw)
	if !ok {
		return nil, ErrBadScore
	}
	err = e.store.Tx(ctx, func(s store.Store) error {
		if _, err := e.openMatch(ctx, s, matchID); err != nil {
			return err
		}
		if err := s.SetOverrideScore(ctx, matchID, adminID, code); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "override_score", map[string]any{"matchId": matchID, "code": code})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, matchID)
}

// ClearOverride releases the match back to player self-reporting and
// re-reconciles from whatever reports remain.
func (e *Engine) ClearOverride(ctx context.Context, adminID string, matchID int64) (*MatchUpdate, error) {
	err := e.store.Tx(ctx, func(s store.Store) error {
		m, err := s.MatchByID(ctx, matchID)
		if err != nil {
			return err
		}
		if m.State == league.MatchCancelled {
			return ErrMatchNotOpen
		}
		if err := s.ClearOverride(ctx, matchID); err != nil {
			return err
		}
		// A match the override had confirmed reverts to open so the
		// players' own reports decide it again.
		if m.State == league.MatchConfirmed {
			if err := e.reopen(ctx, s, m, league.MatchReported); err != nil {
				return err
			}
		}
		e.audit(ctx, s, adminID, "override_cleared", map[string]any{"matchId": matchID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, matchID)
}
