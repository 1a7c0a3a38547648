package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrNotRegistered     = staticErr("player is not registered")
	ErrNotActive         = staticErr("player is not active")
	ErrLeagueFull        = staticErr("league is at its player cap")
	ErrDuplicateSignup   = staticErr("player is already registered")
	ErrInvalidEmail      = staticErr("invalid email address")
	ErrInvalidPhone      = staticErr("invalid phone number")
	ErrOpenMatch         = staticErr("player already has an open match")
	ErrNoOpenMatch       = staticErr("player has no open match")
	ErrMatchNotOpen      = staticErr("match is not open")
	ErrAlreadyConfirmed  = staticErr("match already has a confirmed result")
	ErrNotParticipant    = staticErr("user is not a participant of this match")
	ErrNoFixtureLeft     = staticErr("no unplayed fixture between these players")
	ErrBadScore          = staticErr("score is not valid for the configured format")
	ErrExemptFromCheckin = staticErr("player has completed their schedule")
)

// MatchStatus is the display state of the assignment message.
type MatchStatus string

const (
	StatusPending   MatchStatus = "Pending"
	StatusReported  MatchStatus = "Reported"
	StatusDisputed  MatchStatus = "Disputed"
	StatusConfirmed MatchStatus = "Confirmed"
	StatusCancelled MatchStatus = "Cancelled"
)

// MatchUpdate carries everything a notifier needs to redraw the
// assignment message; rendering stays out of the engine.
type MatchUpdate struct {
	Status        MatchStatus
	Score         string // A-oriented, set when confirmed
	OverrideAdmin string // set when an admin override decided it
	Forfeit       bool
	DisputeDetail string // both reports, set when disputed
}

// Notifier pushes league events out to chat. Implementations must be
// safe for concurrent use; failures are the caller's to handle (match
// announcements compensate, everything else is best effort).
type Notifier interface {
	// AnnounceMatch posts the assignment message and returns its
	// channel and message IDs.
	AnnounceMatch(ctx context.Context, m *league.Match, f *league.Fixture, g *league.GuildSettings) (channelID, messageID string, err error)
	// UpdateMatch rewrites the assignment message.
	UpdateMatch(ctx context.Context, m *league.Match, g *league.GuildSettings, upd MatchUpdate) error
	// DMAssignment tells one player about their new fixture privately.
	DMAssignment(ctx context.Context, userID string, m *league.Match, g *league.GuildSettings) error
	NotifyDispute(ctx context.Context, g *league.GuildSettings, content string) error
	NotifyActivity(ctx context.Context, g *league.GuildSettings, content string) error
	DM(ctx context.Context, userID, content string) error
}

// Engine owns all league state transitions. Persistence goes through
// the store, cross-process coordination through Redis, and chat output
// through the notifier, which keeps every rule testable in-process.
type Engine struct {
	store  store.Store
	coord  *coord.Store
	notify Notifier
	codec  *pii.Codec

	now func() time.Time
}

func New(st store.Store, co *coord.Store, notify Notifier, codec *pii.Codec) *Engine {
	return &Engine{store: st, coord: co, notify: notify, codec: codec, now: time.Now}
}

// SetClock pins the time source for tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// audit appends an audit row; payload is marshalled to JSON. A failed
// marshal still records the action with an empty payload.
func (e *Engine) audit(ctx context.Context, s store.Store, actor, action string, payload any) {
	var raw string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = string(b)
		}
	}
	if err := s.AppendAudit(ctx, &league.AuditEntry{Actor: actor, Action: action, Payload: raw}); err != nil {
		obslog.L().Warn("audit append failed",
			zap.String("action", action),
			zap.Error(err))
	}
}

// settings loads both config halves the handlers usually need together.
func (e *Engine) settings(ctx context.Context, guildID string) (*league.LeagueSettings, *league.GuildSettings, error) {
	return e.settingsIn(ctx, e.store, guildID)
}

func (e *Engine) settingsIn(ctx context.Context, s store.Store, guildID string) (*league.LeagueSettings, *league.GuildSettings, error) {
	ls, err := s.LeagueSettings(ctx)
	if err != nil {
		return nil, nil, err
	}
	gs, err := s.GuildSettings(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	if gs.Timezone == "" {
		gs.Timezone = ls.Timezone
	}
	return ls, gs, nil
}

func (e *Engine) activePlayer(ctx context.Context, s store.Store, userID string) (*league.Player, error) {
	p, err := s.PlayerByUserID(ctx, userID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	if p.Status != league.StatusActive {
		return nil, ErrNotActive
	}
	return p, nil
}
