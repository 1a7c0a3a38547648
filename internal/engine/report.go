package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// ReportWinner records the reporter's winner pick on their open match
// and reconciles. side is whose victory they are claiming.
func (e *Engine) ReportWinner(ctx context.Context, userID string, side league.WinnerSide) (*MatchUpdate, error) {
	m, err := e.reportTarget(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = e.store.Tx(ctx, func(s store.Store) error {
		if err := s.UpsertReportWinner(ctx, m.ID, userID, side); err != nil {
			return err
		}
		e.audit(ctx, s, userID, "report_winner", map[string]any{"matchId": m.ID, "side": side})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, m.ID)
}

// ReportScore records the reporter's score pick (raw text like "3-1",
// "3:1" or a bare loser-games digit) and reconciles.
func (e *Engine) ReportScore(ctx context.Context, userID, raw string) (*MatchUpdate, error) {
	m, err := e.reportTarget(ctx, userID)
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
		if err := s.UpsertReportScore(ctx, m.ID, userID, code); err != nil {
			return err
		}
		e.audit(ctx, s, userID, "report_score", map[string]any{"matchId": m.ID, "code": code})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, m.ID)
}

// parseScoreInput accepts either a full scoreline or a loser-games code.
func parseScoreInput(f league.Format, raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if loser, ok := league.ParseScore(f, raw); ok {
		return loser, true
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < f.ScoreCodes() {
		return n, true
	}
	return 0, false
}

// OpenMatch returns the player's current open match, or nil.
func (e *Engine) OpenMatch(ctx context.Context, userID string) (*league.Match, error) {
	return e.store.OpenMatchFor(ctx, userID)
}

// reportTarget resolves the single open match a player may report on.
func (e *Engine) reportTarget(ctx context.Context, userID string) (*league.Match, error) {
	m, err := e.store.OpenMatchFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoOpenMatch
	}
	return m, nil
}

// Dispute lets a participant flag their open match for admin review
// directly, without waiting for conflicting reports.
func (e *Engine) Dispute(ctx context.Context, userID string, channelHint string) error {
	var (
		m  *league.Match
		gs *league.GuildSettings
	)
	err := e.store.Tx(ctx, func(s store.Store) error {
		var err error
		m, err = s.OpenMatchFor(ctx, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNoOpenMatch
		}
		if err := s.DeleteResult(ctx, m.ID); err != nil {
			return err
		}
		if err := s.SetMatchState(ctx, m.ID, league.MatchDisputed, nil); err != nil {
			return err
		}
		_, gs, err = e.settingsIn(ctx, s, m.GuildID)
		if err != nil {
			return err
		}
		e.audit(ctx, s, userID, "match_disputed_by_player", map[string]any{"matchId": m.ID})
		return nil
	})
	if err != nil {
		return err
	}
	channel := m.ChannelID
	if channelHint != "" {
		channel = channelHint
	}
	return e.notify.NotifyDispute(ctx, gs,
		fmt.Sprintf("Match %d was disputed by <@%s>. Please review in <#%s>.", m.ID, userID, channel))
}
