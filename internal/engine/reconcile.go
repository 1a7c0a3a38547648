package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// Reconcile folds the current reports and any admin override into the
// match's authoritative state. It is idempotent and runs after every
// report mutation, so partial, matching, conflicting and overridden
// inputs all converge:
//
//	override decided            -> confirmed, attributed to the admin
//	fewer than two full reports -> pending or reported, result removed
//	reports disagree            -> disputed, result removed
//	reports agree               -> confirmed
//
// An armed-but-undecided override does not block normal player flow.
func (e *Engine) Reconcile(ctx context.Context, matchID int64) (*MatchUpdate, error) {
	var (
		upd   MatchUpdate
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
		format := gs.MatchFormat

		override, err := s.Override(ctx, matchID)
		if err != nil {
			return err
		}
		if override.Decided() {
			win, lose, ok := league.ScoreFromCode(format, *override.ScoreCode)
			if !ok {
				return ErrBadScore
			}
			scoreA, scoreB := league.SidedScores(override.WinnerSide, win, lose)
			winner := match.PlayerA
			if override.WinnerSide == league.SideB {
				winner = match.PlayerB
			}
			if err := e.confirm(ctx, s, match, &league.Result{
				MatchID:   matchID,
				Winner:    winner,
				ScoreA:    scoreA,
				ScoreB:    scoreB,
				Reporter:  override.AdminID,
				Confirmer: override.AdminID,
			}); err != nil {
				return err
			}
			e.audit(ctx, s, override.AdminID, "match_confirmed_by_override", map[string]any{
				"matchId": matchID,
				"score":   league.FormatScore(scoreA, scoreB),
			})
			upd = MatchUpdate{
				Status:        StatusConfirmed,
				Score:         league.FormatScore(scoreA, scoreB),
				OverrideAdmin: override.AdminID,
			}
			return nil
		}

		reports, err := s.Reports(ctx, matchID)
		if err != nil {
			return err
		}
		ra, rb := reports[match.PlayerA], reports[match.PlayerB]

		if !ra.Complete() || !rb.Complete() {
			anyReport := ra.Partial() || rb.Partial()
			state := league.MatchPending
			upd = MatchUpdate{Status: StatusPending}
			if anyReport {
				state = league.MatchReported
				upd = MatchUpdate{Status: StatusReported}
			}
			return e.reopen(ctx, s, match, state)
		}

		if ra.WinnerSide != rb.WinnerSide || *ra.ScoreCode != *rb.ScoreCode {
			if err := s.DeleteResult(ctx, matchID); err != nil {
				return err
			}
			if err := s.SetMatchState(ctx, matchID, league.MatchDisputed, nil); err != nil {
				return err
			}
			e.audit(ctx, s, "", "match_disputed", map[string]any{"matchId": matchID})
			upd = MatchUpdate{
				Status: StatusDisputed,
				DisputeDetail: fmt.Sprintf(
					"Player A report: winner=%s, scoreCode=%d / Player B report: winner=%s, scoreCode=%d",
					ra.WinnerSide, *ra.ScoreCode, rb.WinnerSide, *rb.ScoreCode),
			}
			return nil
		}

		win, lose, ok := league.ScoreFromCode(format, *ra.ScoreCode)
		if !ok {
			return ErrBadScore
		}
		scoreA, scoreB := league.SidedScores(ra.WinnerSide, win, lose)
		winner := match.PlayerA
		if ra.WinnerSide == league.SideB {
			winner = match.PlayerB
		}
		if err := e.confirm(ctx, s, match, &league.Result{
			MatchID:   matchID,
			Winner:    winner,
			ScoreA:    scoreA,
			ScoreB:    scoreB,
			Reporter:  match.PlayerA,
			Confirmer: match.PlayerB,
		}); err != nil {
			return err
		}
		e.audit(ctx, s, "", "match_confirmed", map[string]any{
			"matchId": matchID,
			"score":   league.FormatScore(scoreA, scoreB),
		})
		upd = MatchUpdate{Status: StatusConfirmed, Score: league.FormatScore(scoreA, scoreB)}
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
	if upd.Status == StatusDisputed {
		if err := e.notify.NotifyDispute(ctx, gs,
			fmt.Sprintf("Match %d is disputed. Please review in <#%s>.", matchID, match.ChannelID)); err != nil {
			obslog.L().Warn("dispute notification failed",
				zap.Int64("match_id", matchID),
				zap.Error(err))
		}
	}
	return &upd, nil
}

// confirm writes the final result and flips match and fixture to
// confirmed in one go.
func (e *Engine) confirm(ctx context.Context, s store.Store, match *league.Match, r *league.Result) error {
	now := e.now()
	r.ReportedAt = now
	r.ConfirmedAt = &now
	if err := s.SaveResult(ctx, r); err != nil {
		return err
	}
	if err := s.SetMatchState(ctx, match.ID, league.MatchConfirmed, &now); err != nil {
		return err
	}
	return s.SetFixtureStatus(ctx, match.FixtureID, league.FixtureConfirmed)
}

// reopen walks a match back to an open state, removing any result and
// unconfirming the fixture.
func (e *Engine) reopen(ctx context.Context, s store.Store, match *league.Match, state league.MatchState) error {
	if err := s.DeleteResult(ctx, match.ID); err != nil {
		return err
	}
	if err := s.SetMatchState(ctx, match.ID, state, nil); err != nil {
		return err
	}
	return s.SetFixtureStatus(ctx, match.FixtureID, league.FixtureLocked)
}
