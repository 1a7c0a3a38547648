package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// ForceResult lets an admin settle a match in one step, bypassing both
// player reports and the armed-override flow. A match that is already
// confirmed must be voided first; forcing over a standing result would
// silently rewrite history, so it is refused with ErrAlreadyConfirmed.
//
// With forfeit set the score is the format's clean sweep and the result
// is flagged so the points layer applies the no-show rules.
func (e *Engine) ForceResult(ctx context.Context, adminID string, matchID int64, side league.WinnerSide, rawScore string, forfeit bool) (*MatchUpdate, error) {
	var (
		match *league.Match
		gs    *league.GuildSettings
		upd   MatchUpdate
	)
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		match, err = s.MatchByID(ctx, matchID)
		if err != nil {
			return err
		}
		if match.State == league.MatchConfirmed {
			return ErrAlreadyConfirmed
		}
		if match.State == league.MatchCancelled {
			return ErrMatchNotOpen
		}
		_, gs, err = e.settingsIn(ctx, s, match.GuildID)
		if err != nil {
			return err
		}

		win, lose := gs.MatchFormat.WinScore(), 0
		if !forfeit {
			code, ok := parseScoreInput(gs.MatchFormat, rawScore)
			if !ok {
				return ErrBadScore
			}
			win, lose, _ = league.ScoreFromCode(gs.MatchFormat, code)
		}
		scoreA, scoreB := league.SidedScores(side, win, lose)
		winner := match.PlayerA
		if side == league.SideB {
			winner = match.PlayerB
		}
		if err := e.confirm(ctx, s, match, &league.Result{
			MatchID:   matchID,
			Winner:    winner,
			ScoreA:    scoreA,
			ScoreB:    scoreB,
			Forfeit:   forfeit,
			Reporter:  adminID,
			Confirmer: adminID,
		}); err != nil {
			return err
		}
		if err := s.ClearOverride(ctx, matchID); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "match_forced", map[string]any{
			"matchId": matchID,
			"score":   league.FormatScore(scoreA, scoreB),
			"forfeit": forfeit,
		})
		upd = MatchUpdate{
			Status:        StatusConfirmed,
			Score:         league.FormatScore(scoreA, scoreB),
			OverrideAdmin: adminID,
			Forfeit:       forfeit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := e.notify.UpdateMatch(ctx, match, gs, upd); err != nil {
		obslog.L().Warn("match message update failed",
			zap.Int64("match_id", matchID),
			zap.Error(err))
	}
	return &upd, nil
}

// VoidMatch scrubs a match completely: result, reports and override all
// go, the match is cancelled and the fixture returns to the unplayed
// pool so the pairing can be scheduled again.
func (e *Engine) VoidMatch(ctx context.Context, adminID string, matchID int64) error {
	var (
		match *league.Match
		gs    *league.GuildSettings
	)
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		match, err = s.MatchByID(ctx, matchID)
		if err != nil {
			return err
		}
		if match.State == league.MatchCancelled {
			return ErrMatchNotOpen
		}
		_, gs, err = e.settingsIn(ctx, s, match.GuildID)
		if err != nil {
			return err
		}
		if err := s.DeleteResult(ctx, matchID); err != nil {
			return err
		}
		if err := s.ClearReports(ctx, matchID); err != nil {
			return err
		}
		if err := s.ClearOverride(ctx, matchID); err != nil {
			return err
		}
		now := e.now()
		if err := s.SetMatchState(ctx, matchID, league.MatchCancelled, &now); err != nil {
			return err
		}
		if err := s.SetFixtureStatus(ctx, match.FixtureID, league.FixtureUnplayed); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "match_voided", map[string]any{"matchId": matchID})
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.notify.UpdateMatch(ctx, match, gs, MatchUpdate{Status: StatusCancelled}); err != nil {
		obslog.L().Warn("match message update failed",
			zap.Int64("match_id", matchID),
			zap.Error(err))
	}
	return nil
}

// AdminDispute flags any open match for review without a player report.
func (e *Engine) AdminDispute(ctx context.Context, adminID string, matchID int64) error {
	var (
		match *league.Match
		gs    *league.GuildSettings
	)
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		match, err = e.openMatch(ctx, s, matchID)
		if err != nil {
			return err
		}
		_, gs, err = e.settingsIn(ctx, s, match.GuildID)
		if err != nil {
			return err
		}
		if err := e.reopen(ctx, s, match, league.MatchDisputed); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "match_disputed_by_admin", map[string]any{"matchId": matchID})
		return nil
	})
	if err != nil {
		return err
	}
	return e.notify.NotifyDispute(ctx, gs,
		fmt.Sprintf("Match %d was flagged by <@%s>. Please review in <#%s>.", matchID, adminID, match.ChannelID))
}

// Disqualify drops a player from competition. Their confirmed wins
// stand but every remaining head-to-head is scored as a forfeit loss in
// the standings, and they leave the ready pool immediately.
func (e *Engine) Disqualify(ctx context.Context, adminID, guildID, userID string) error {
	var tag string
	err := e.store.Tx(ctx, func(s store.Store) error {
		p, err := s.PlayerByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotRegistered
			}
			return err
		}
		if p.Status != league.StatusActive {
			return ErrNotActive
		}
		tag = p.Tag
		if _, err := s.Dequeue(ctx, userID); err != nil {
			return err
		}
		if err := s.SetPlayerStatus(ctx, userID, league.StatusDisqualified); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "player_disqualified", map[string]any{"userId": userID})
		return nil
	})
	if err != nil {
		return err
	}
	e.announceActivity(ctx, guildID,
		fmt.Sprintf("%s (<@%s>) has been disqualified from the league.", tag, userID))
	return nil
}

// Requalify reinstates a disqualified player.
func (e *Engine) Requalify(ctx context.Context, adminID, guildID, userID string) error {
	var tag string
	err := e.store.Tx(ctx, func(s store.Store) error {
		p, err := s.PlayerByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotRegistered
			}
			return err
		}
		if p.Status != league.StatusDisqualified {
			return ErrNotActive
		}
		tag = p.Tag
		if err := s.SetPlayerStatus(ctx, userID, league.StatusActive); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "player_requalified", map[string]any{"userId": userID})
		return nil
	})
	if err != nil {
		return err
	}
	e.announceActivity(ctx, guildID,
		fmt.Sprintf("%s (<@%s>) has been reinstated.", tag, userID))
	return nil
}

func (e *Engine) announceActivity(ctx context.Context, guildID, content string) {
	_, gs, err := e.settings(ctx, guildID)
	if err != nil {
		obslog.L().Warn("activity notice skipped", zap.Error(err))
		return
	}
	if err := e.notify.NotifyActivity(ctx, gs, content); err != nil {
		obslog.L().Warn("activity notice failed", zap.Error(err))
	}
}
