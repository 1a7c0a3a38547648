package engine

import (
	"context"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// CheckinResult reports what a check-in attempt did.
type CheckinResult struct {
	Date     string
	Recorded bool // false when the player had already checked in today
	Days     int
}

// CheckIn records today's attendance for the player in the league
// timezone. Players who have confirmed every fixture are exempt and get
// ErrExemptFromCheckin instead of a row.
func (e *Engine) CheckIn(ctx context.Context, userID string) (*CheckinResult, error) {
	var out CheckinResult
	err := e.store.Tx(ctx, func(s store.Store) error {
		if _, err := e.activePlayer(ctx, s, userID); err != nil {
			return err
		}
		ls, err := s.LeagueSettings(ctx)
		if err != nil {
			return err
		}

		active, err := s.ActivePlayers(ctx)
		if err != nil {
			return err
		}
		fixtures, err := s.Fixtures(ctx)
		if err != nil {
			return err
		}
		completion := league.ComputeCompletion(activeIDs(active), fixtures)
		if completion[userID].Done() {
			return ErrExemptFromCheckin
		}

		out.Date = league.Today(ls.Timezone, e.now())
		out.Recorded, err = s.RecordCheckin(ctx, userID, out.Date)
		if err != nil {
			return err
		}
		out.Days, err = s.CheckinDays(ctx, userID)
		if err != nil {
			return err
		}
		if out.Recorded {
			e.audit(ctx, s, userID, "player_checkin", map[string]any{"date": out.Date})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func activeIDs(players []league.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.UserID)
	}
	return out
}
