package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/gateway"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/matchmaker"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/msgcat"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
)

// handlerFn produces the reply text for one command. An empty reply
// with a nil error means the handler already responded (e.g. via DM).
type handlerFn func(ctx context.Context, ev *gateway.Event) (string, error)

type handler struct {
	fn    handlerFn
	admin bool
}

// Dispatcher routes gateway events to engine operations and renders
// the outcome back to chat.
type Dispatcher struct {
	eng    *engine.Engine
	mm     *matchmaker.Matchmaker
	cat    *msgcat.Catalog
	poster Poster

	auditLimit int
	handlers   map[string]handler
}

func New(eng *engine.Engine, mm *matchmaker.Matchmaker, cat *msgcat.Catalog, poster Poster, auditLimit int) *Dispatcher {
	d := &Dispatcher{
		eng:        eng,
		mm:         mm,
		cat:        cat,
		poster:     poster,
		auditLimit: auditLimit,
	}
	d.handlers = map[string]handler{
		"signup":        {fn: d.cmdSignup},
		"checkin":       {fn: d.cmdCheckin},
		"ready":         {fn: d.cmdReady},
		"unready":       {fn: d.cmdUnready},
		"withdraw":      {fn: d.cmdWithdraw},
		"report_winner": {fn: d.cmdReportWinner},
		"report_score":  {fn: d.cmdReportScore},
		"dispute":       {fn: d.cmdDispute},
		"rematch":       {fn: d.cmdRematch},
		"standings":     {fn: d.cmdStandings},
		"left_to_play":  {fn: d.cmdLeftToPlay},
		"queue":         {fn: d.cmdQueue},
		"my_data":       {fn: d.cmdMyData},

		"setup":             {fn: d.cmdSetup, admin: true},
		"set_points":        {fn: d.cmdSetPoints, admin: true},
		"set_channels":      {fn: d.cmdSetChannels, admin: true},
		"generate_fixtures": {fn: d.cmdGenerateFixtures, admin: true},
		"create_match":      {fn: d.cmdCreateMatch, admin: true},
		"force_result":      {fn: d.cmdForceResult, admin: true},
		"void_match":        {fn: d.cmdVoidMatch, admin: true},
		"flag_match":        {fn: d.cmdFlagMatch, admin: true},
		"override":          {fn: d.cmdOverride, admin: true},
		"override_winner":   {fn: d.cmdOverrideWinner, admin: true},
		"override_score":    {fn: d.cmdOverrideScore, admin: true},
		"clear_override":    {fn: d.cmdClearOverride, admin: true},
		"dq":                {fn: d.cmdDisqualify, admin: true},
		"requalify":         {fn: d.cmdRequalify, admin: true},
		"attendance":        {fn: d.cmdAttendance, admin: true},
		"audit":             {fn: d.cmdAudit, admin: true},
		"reset":             {fn: d.cmdReset, admin: true},
		"confirm_reset":     {fn: d.cmdConfirmReset, admin: true},
		"cancel_reset":      {fn: d.cmdCancelReset, admin: true},
		"admin_role_add":    {fn: d.cmdAdminRoleAdd, admin: true},
		"admin_role_remove": {fn: d.cmdAdminRoleRemove, admin: true},
	}
	return d
}

// HandleEvent is the gateway socket's handler. It never panics out.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev gateway.Event) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("handler panic",
				zap.String("command", ev.Command),
				zap.Any("panic", r))
			d.reply(ctx, &ev, d.cat.MustRender("common.error", nil))
		}
	}()

	if ev.UserID != "" {
		d.eng.TouchPlayerNames(ctx, ev.UserID, ev.Username, ev.Display)
	}

	var (
		reply string
		err   error
	)
	switch ev.Kind {
	case gateway.EventReaction:
		reply, err = d.handleReaction(ctx, &ev)
	case gateway.EventCommand:
		reply, err = d.handleCommand(ctx, &ev)
	default:
		return
	}
	if err != nil {
		reply = d.renderError(ctx, &ev, err)
	}
	if reply != "" {
		d.reply(ctx, &ev, reply)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev *gateway.Event) (string, error) {
	h, ok := d.handlers[ev.Command]
	if !ok {
		return d.cat.MustRender("common.unknown_command", map[string]any{"Command": ev.Command}), nil
	}
	if h.admin {
		isAdmin, err := d.eng.IsAdmin(ctx, ev.GuildID, ev.IsAdmin, ev.RoleIDs)
		if err != nil {
			return "", err
		}
		if !isAdmin {
			return d.cat.MustRender("common.not_admin", nil), nil
		}
	}
	return h.fn(ctx, ev)
}

// Reactions on an assignment message are shorthand for the report and
// override commands.
func (d *Dispatcher) handleReaction(ctx context.Context, ev *gateway.Event) (string, error) {
	m, err := d.eng.MatchByMessage(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		if errors.Is(err, engine.ErrNoOpenMatch) {
			return "", nil // reaction on an unrelated message
		}
		return "", err
	}

	switch ev.Emoji {
	case "🇦", "🅰️":
		return d.reactWinner(ctx, ev, m, league.SideA)
	case "🇧", "🅱️":
		return d.reactWinner(ctx, ev, m, league.SideB)
	case "🔁":
		res, err := d.eng.VoteRematch(ctx, ev.UserID, m.ID)
		if err != nil {
			return "", err
		}
		if res.Granted {
			return d.cat.MustRender("rematch.granted", map[string]any{"MatchID": res.Match.ID}), nil
		}
		return d.cat.MustRender("rematch.voted", map[string]any{"Votes": res.Votes}), nil
	case "❗", "⚠️":
		isAdmin, err := d.eng.IsAdmin(ctx, ev.GuildID, ev.IsAdmin, ev.RoleIDs)
		if err != nil {
			return "", err
		}
		if !isAdmin {
			return "", nil
		}
		if err := d.eng.ArmOverride(ctx, ev.UserID, m.ID); err != nil {
			return "", err
		}
		return d.cat.MustRender("admin.override_armed", map[string]any{"MatchID": m.ID}), nil
	}
	return "", nil
}

func (d *Dispatcher) reactWinner(ctx context.Context, ev *gateway.Event, m *league.Match, side league.WinnerSide) (string, error) {
	if !m.Involves(ev.UserID) {
		return "", nil // spectators may react freely
	}
	if _, err := d.eng.ReportWinner(ctx, ev.UserID, side); err != nil {
		return "", err
	}
	return d.cat.MustRender("report.winner_ok", map[string]any{"MatchID": m.ID}), nil
}

func (d *Dispatcher) reply(ctx context.Context, ev *gateway.Event, content string) {
	if ev.ChannelID == "" {
		return
	}
	if _, err := d.poster.PostMessage(ctx, ev.ChannelID, content); err != nil {
		obslog.L().Warn("reply failed",
			zap.String("channel", ev.ChannelID),
			zap.Error(err))
	}
}

// renderError turns engine errors into user-facing catalog messages;
// anything unmapped logs and shows the generic error.
func (d *Dispatcher) renderError(ctx context.Context, ev *gateway.Event, err error) string {
	switch {
	case errors.Is(err, engine.ErrNotRegistered):
		return d.cat.MustRender("common.not_registered", nil)
	case errors.Is(err, engine.ErrNotActive):
		return d.cat.MustRender("common.not_registered", nil)
	case errors.Is(err, engine.ErrDuplicateSignup):
		tag := ev.Display
		if prof, perr := d.eng.MyData(ctx, ev.UserID); perr == nil {
			tag = prof.Tag
		}
		return d.cat.MustRender("signup.duplicate", map[string]any{"Tag": tag})
	case errors.Is(err, engine.ErrLeagueFull):
		max := 0
		if ls, lerr := d.eng.LeagueConfig(ctx); lerr == nil {
			max = ls.MaxPlayers
		}
		return d.cat.MustRender("signup.full", map[string]any{"Max": max})
	case errors.Is(err, engine.ErrInvalidEmail):
		return d.cat.MustRender("signup.invalid_email", nil)
	case errors.Is(err, engine.ErrInvalidPhone):
		return d.cat.MustRender("signup.invalid_phone", nil)
	case errors.Is(err, engine.ErrExemptFromCheckin):
		return d.cat.MustRender("checkin.exempt", nil)
	case errors.Is(err, engine.ErrOpenMatch):
		id := int64(0)
		if m, merr := d.eng.OpenMatch(ctx, ev.UserID); merr == nil && m != nil {
			id = m.ID
		}
		return d.cat.MustRender("ready.open_match", map[string]any{"MatchID": id})
	case errors.Is(err, engine.ErrNoOpenMatch):
		return d.cat.MustRender("report.no_match", nil)
	case errors.Is(err, engine.ErrNoFixtureLeft):
		return d.cat.MustRender("ready.nothing_left", nil)
	case errors.Is(err, engine.ErrBadScore):
		hint := league.ScoreHint(league.FormatFT3)
		if gs, gerr := d.eng.GuildConfig(ctx, ev.GuildID); gerr == nil {
			hint = league.ScoreHint(gs.MatchFormat)
		}
		return d.cat.MustRender("report.bad_score", map[string]any{"Hint": hint})
	case errors.Is(err, engine.ErrAlreadyConfirmed):
		return d.cat.MustRender("admin.already_confirmed", map[string]any{"MatchID": ev.Option("match", "?")})
	case errors.Is(err, coord.ErrNoPending):
		return d.cat.MustRender("reset.expired", nil)
	case errors.Is(err, coord.ErrNotRequester):
		return d.cat.MustRender("reset.wrong_admin", nil)
	}
	obslog.L().Error("command failed",
		zap.String("command", ev.Command),
		zap.String("user", ev.UserID),
		zap.Error(err))
	return d.cat.MustRender("common.error", nil)
}

func parseMatchID(ev *gateway.Event) (int64, error) {
	raw := strings.TrimSpace(ev.Option("match", ""))
	if raw == "" {
		return 0, engine.ErrNoOpenMatch
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil {
		return 0, engine.ErrNoOpenMatch
	}
	return id, nil
}

func parseSide(raw string) (league.WinnerSide, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", "player_a", "1":
		return league.SideA, true
	case "b", "player_b", "2":
		return league.SideB, true
	}
	return "", false
}
