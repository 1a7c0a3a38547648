package engine

import (
	"context"
	"errors"
	"math"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// Standings computes the current table for a guild's configured format.
// Withdrawn players are absent; disqualified players appear with their
// remaining fixtures scored as forfeit losses.
func (e *Engine) Standings(ctx context.Context, guildID string) ([]league.StandingsRow, error) {
	ls, gs, err := e.settings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	players, err := e.store.Players(ctx)
	if err != nil {
		return nil, err
	}
	fixtures, err := e.store.Fixtures(ctx)
	if err != nil {
		return nil, err
	}
	results, err := e.store.ConfirmedResultsByFixture(ctx)
	if err != nil {
		return nil, err
	}
	return league.ComputeStandings(players, fixtures, results, gs.MatchFormat, ls.Rules), nil
}

// AttendanceRow is one player's attendance standing.
type AttendanceRow struct {
	UserID   string
	Tag      string
	Days     int
	Percent  float64
	Eligible bool
	Exempt   bool // finished every fixture, attendance no longer required
}

// Attendance reports every active player's check-in progress against
// the configured season length and minimum show-up fraction. A player
// who has confirmed all their fixtures is eligible regardless of days.
func (e *Engine) Attendance(ctx context.Context) ([]AttendanceRow, error) {
	ls, err := e.store.LeagueSettings(ctx)
	if err != nil {
		return nil, err
	}
	active, err := e.store.ActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	fixtures, err := e.store.Fixtures(ctx)
	if err != nil {
		return nil, err
	}
	completion := league.ComputeCompletion(activeIDs(active), fixtures)

	requiredDays := ls.AttendanceMinDays
	if min := int(math.Ceil(ls.EligibilityMinPercent * float64(ls.SeasonDays))); min > requiredDays {
		requiredDays = min
	}

	rows := make([]AttendanceRow, 0, len(active))
	for _, p := range active {
		days, err := e.store.CheckinDays(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		row := AttendanceRow{
			UserID: p.UserID,
			Tag:    p.Tag,
			Days:   days,
			Exempt: completion[p.UserID].Done(),
		}
		if ls.SeasonDays > 0 {
			row.Percent = float64(days) / float64(ls.SeasonDays)
		}
		row.Eligible = row.Exempt || days >= requiredDays
		rows = append(rows, row)
	}
	return rows, nil
}

// RemainingFixture is one leg a player still owes, with the opponent
// resolved for display.
type RemainingFixture struct {
	FixtureID   int64
	Opponent    string
	OpponentTag string
	Leg         int
}

// LeftToPlay lists the player's unconfirmed fixtures against active
// opponents, first legs before second.
func (e *Engine) LeftToPlay(ctx context.Context, userID string) ([]RemainingFixture, error) {
	if _, err := e.activePlayer(ctx, e.store, userID); err != nil {
		return nil, err
	}
	active, err := e.store.ActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string, len(active))
	for _, p := range active {
		tags[p.UserID] = p.Tag
	}
	fixtures, err := e.store.Fixtures(ctx)
	if err != nil {
		return nil, err
	}

	var out []RemainingFixture
	for _, leg := range []int{1, 2} {
		for _, f := range fixtures {
			if f.Leg != leg || f.Status == league.FixtureConfirmed || !f.Involves(userID) {
				continue
			}
			opp := f.Opponent(userID)
			tag, ok := tags[opp]
			if !ok {
				continue
			}
			out = append(out, RemainingFixture{
				FixtureID:   f.ID,
				Opponent:    opp,
				OpponentTag: tag,
				Leg:         f.Leg,
			})
		}
	}
	return out, nil
}

// QueueEntry is one waiting player with their tag resolved.
type QueueEntry struct {
	UserID string
	Tag    string
}

// QueueSnapshot returns the ready pool in arrival order.
func (e *Engine) QueueSnapshot(ctx context.Context) ([]QueueEntry, error) {
	queue, err := e.store.Queue(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]QueueEntry, 0, len(queue))
	for _, q := range queue {
		tag := q.UserID
		if p, err := e.store.PlayerByUserID(ctx, q.UserID); err == nil {
			tag = p.Tag
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		out = append(out, QueueEntry{UserID: q.UserID, Tag: tag})
	}
	return out, nil
}

// MatchByMessage resolves the match behind an announcement message,
// used by reaction handling.
func (e *Engine) MatchByMessage(ctx context.Context, channelID, messageID string) (*league.Match, error) {
	m, err := e.store.MatchByMessage(ctx, channelID, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenMatch
		}
		return nil, err
	}
	return m, nil
}

// RecentAudit returns the newest audit entries, newest first.
func (e *Engine) RecentAudit(ctx context.Context, limit int) ([]league.AuditEntry, error) {
	return e.store.RecentAudit(ctx, limit)
}

// Profile is the owner's view of their own registration, contact
// details decrypted but masked.
type Profile struct {
	Tag         string
	RealName    string
	EmailMasked string
	PhoneMasked string
	Status      league.PlayerStatus
	CheckinDays int
}

// MyData returns the calling player's own stored record. Contact
// details come back masked even to the owner; full plaintext never
// leaves the process.
func (e *Engine) MyData(ctx context.Context, userID string) (*Profile, error) {
	p, err := e.store.PlayerByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	realName, err := e.codec.Decrypt(p.RealNameEnc)
	if err != nil {
		return nil, err
	}
	email, err := e.codec.Decrypt(p.EmailEnc)
	if err != nil {
		return nil, err
	}
	phone, err := e.codec.Decrypt(p.PhoneEnc)
	if err != nil {
		return nil, err
	}
	days, err := e.store.CheckinDays(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Tag:         p.Tag,
		RealName:    realName,
		EmailMasked: pii.MaskEmail(email),
		PhoneMasked: pii.MaskPhone(phone),
		Status:      p.Status,
		CheckinDays: days,
	}, nil
}
