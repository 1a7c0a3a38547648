package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/gateway"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

func (d *Dispatcher) cmdSignup(ctx context.Context, ev *gateway.Event) (string, error) {
	p, err := d.eng.Signup(ctx, engine.SignupInput{
		UserID:      ev.UserID,
		Username:    ev.Username,
		DisplayName: ev.Display,
		RealName:    ev.Option("real_name", ev.Display),
		Tag:         ev.Option("tag", ""),
		Email:       ev.Option("email", ""),
		Phone:       ev.Option("phone", ""),
	})
	if err != nil {
		return "", err
	}
	gs, err := d.eng.GuildConfig(ctx, ev.GuildID)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("signup.ok", map[string]any{
		"Tournament": tournamentName(gs),
		"Tag":        p.Tag,
		"Count":      p.ID,
	}), nil
}

func (d *Dispatcher) cmdCheckin(ctx context.Context, ev *gateway.Event) (string, error) {
	res, err := d.eng.CheckIn(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if !res.Recorded {
		return d.cat.MustRender("checkin.repeat", nil), nil
	}
	return d.cat.MustRender("checkin.ok", map[string]any{
		"Date": res.Date,
		"Days": res.Days,
	}), nil
}

func (d *Dispatcher) cmdReady(ctx context.Context, ev *gateway.Event) (string, error) {
	joined, err := d.eng.Ready(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if !joined {
		return d.cat.MustRender("ready.already", nil), nil
	}
	if d.mm != nil {
		d.mm.TickNow()
	}
	return d.cat.MustRender("ready.joined", nil), nil
}

func (d *Dispatcher) cmdUnready(ctx context.Context, ev *gateway.Event) (string, error) {
	removed, err := d.eng.Unready(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if !removed {
		return d.cat.MustRender("ready.not_queued", nil), nil
	}
	return d.cat.MustRender("ready.left", nil), nil
}

func (d *Dispatcher) cmdWithdraw(ctx context.Context, ev *gateway.Event) (string, error) {
	if err := d.eng.Withdraw(ctx, ev.UserID); err != nil {
		return "", err
	}
	return d.cat.MustRender("signup.withdrawn", nil), nil
}

func (d *Dispatcher) cmdReportWinner(ctx context.Context, ev *gateway.Event) (string, error) {
	side, ok := parseSide(ev.Option("side", ""))
	if !ok {
		return d.cat.MustRender("report.bad_side", nil), nil
	}
	m, err := d.eng.OpenMatch(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", engine.ErrNoOpenMatch
	}
	if _, err := d.eng.ReportWinner(ctx, ev.UserID, side); err != nil {
		return "", err
	}
	return d.cat.MustRender("report.winner_ok", map[string]any{"MatchID": m.ID}), nil
}

func (d *Dispatcher) cmdReportScore(ctx context.Context, ev *gateway.Event) (string, error) {
	m, err := d.eng.OpenMatch(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", engine.ErrNoOpenMatch
	}
	if _, err := d.eng.ReportScore(ctx, ev.UserID, ev.Option("score", "")); err != nil {
		return "", err
	}
	return d.cat.MustRender("report.score_ok", map[string]any{"MatchID": m.ID}), nil
}

func (d *Dispatcher) cmdDispute(ctx context.Context, ev *gateway.Event) (string, error) {
	m, err := d.eng.OpenMatch(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", engine.ErrNoOpenMatch
	}
	if err := d.eng.Dispute(ctx, ev.UserID, ev.ChannelID); err != nil {
		return "", err
	}
	return d.cat.MustRender("dispute.raised", map[string]any{"MatchID": m.ID}), nil
}

func (d *Dispatcher) cmdRematch(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	res, err := d.eng.VoteRematch(ctx, ev.UserID, id)
	if err != nil {
		return "", err
	}
	if res.Granted {
		return d.cat.MustRender("rematch.granted", map[string]any{"MatchID": res.Match.ID}), nil
	}
	return d.cat.MustRender("rematch.voted", map[string]any{"Votes": res.Votes}), nil
}

func (d *Dispatcher) cmdMyData(ctx context.Context, ev *gateway.Event) (string, error) {
	prof, err := d.eng.MyData(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	body := d.cat.MustRender("profile.body", map[string]any{
		"Tag":      prof.Tag,
		"RealName": prof.RealName,
		"Email":    prof.EmailMasked,
		"Phone":    prof.PhoneMasked,
		"Status":   string(prof.Status),
		"Days":     prof.CheckinDays,
	})
	if err := d.poster.SendDM(ctx, ev.UserID, body); err != nil {
		return "", err
	}
	return d.cat.MustRender("profile.dm_sent", nil), nil
}

// --- admin commands ---

func (d *Dispatcher) cmdSetup(ctx context.Context, ev *gateway.Event) (string, error) {
	var in league.SetupInput
	var parseErr error
	intOpt := func(name string) *int {
		raw := ev.Option(name, "")
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			parseErr = errors.New(name + " must be an integer")
			return nil
		}
		return &n
	}
	if v := intOpt("players"); v != nil {
		in.MaxPlayers = v
	}
	if v := intOpt("timeslots"); v != nil {
		in.TimeslotCount = v
	}
	if v := intOpt("duration"); v != nil {
		in.TimeslotDurationMinutes = v
	}
	if v := intOpt("days"); v != nil {
		in.TotalDays = v
	}
	if raw := ev.Option("showup", ""); raw != "" {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			parseErr = errors.New("showup must be a number")
		} else {
			in.MinimumShowupPercent = &pct
		}
	}
	if raw := ev.Option("slot_starts", ""); raw != "" {
		in.TimeslotStartsRaw = &raw
	}
	if raw := ev.Option("start_date", ""); raw != "" {
		in.StartDateRaw = &raw
	}
	if parseErr != nil {
		return parseErr.Error(), nil
	}

	ls, err := d.eng.ApplySetup(ctx, ev.UserID, in)
	if err != nil {
		// Validation messages are written for end users.
		return err.Error(), nil
	}
	return d.cat.MustRender("settings.saved", nil) + "\n" + renderSettings(ls), nil
}

func (d *Dispatcher) cmdSetPoints(ctx context.Context, ev *gateway.Event) (string, error) {
	ls, err := d.eng.LeagueConfig(ctx)
	if err != nil {
		return "", err
	}
	rules := ls.Rules
	read := func(name string, dst *int) {
		if raw := ev.Option(name, ""); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				*dst = n
			}
		}
	}
	read("win", &rules.Win)
	read("loss", &rules.Loss)
	read("noshow", &rules.NoShow)
	read("sweep", &rules.SweepBonus)

	rules, err = d.eng.SetPointRules(ctx, ev.UserID, rules)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("settings.points", map[string]any{
		"Win":    rules.Win,
		"Loss":   rules.Loss,
		"NoShow": rules.NoShow,
		"Sweep":  rules.SweepBonus,
	}), nil
}

func (d *Dispatcher) cmdSetChannels(ctx context.Context, ev *gateway.Event) (string, error) {
	gs, err := d.eng.GuildConfig(ctx, ev.GuildID)
	if err != nil {
		return "", err
	}
	gs.ResultsChannelID = ev.Option("results", gs.ResultsChannelID)
	gs.AdminChannelID = ev.Option("admin", gs.AdminChannelID)
	gs.DisputeChannelID = ev.Option("disputes", gs.DisputeChannelID)
	gs.ActivityChannelID = ev.Option("activity", gs.ActivityChannelID)
	gs.StandingsChannelID = ev.Option("standings", gs.StandingsChannelID)
	gs.TournamentName = ev.Option("tournament", gs.TournamentName)
	gs.Timezone = ev.Option("timezone", gs.Timezone)
	if raw := ev.Option("format", ""); raw != "" {
		gs.MatchFormat = league.ParseFormat(raw)
	}
	if raw := ev.Option("allow_public", ""); raw != "" {
		gs.AllowPublicPlayerCommands = strings.EqualFold(raw, "true") || raw == "1"
	}
	if err := d.eng.UpdateGuildSettings(ctx, ev.UserID, gs); err != nil {
		return "", err
	}
	return d.cat.MustRender("settings.channels", nil), nil
}

func (d *Dispatcher) cmdGenerateFixtures(ctx context.Context, ev *gateway.Event) (string, error) {
	added, err := d.eng.GenerateFixtures(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if added == 0 {
		return d.cat.MustRender("fixtures.none_missing", nil), nil
	}
	rows, err := d.eng.Attendance(ctx)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("fixtures.generated", map[string]any{
		"Count":   added,
		"Players": len(rows),
	}), nil
}

func (d *Dispatcher) cmdCreateMatch(ctx context.Context, ev *gateway.Event) (string, error) {
	a := ev.Option("player_a", "")
	b := ev.Option("player_b", "")
	m, err := d.eng.CreateMatchBetween(ctx, ev.UserID, ev.GuildID, a, b)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.match_created", map[string]any{
		"MatchID": m.ID,
		"PlayerA": m.PlayerA,
		"PlayerB": m.PlayerB,
	}), nil
}

func (d *Dispatcher) cmdForceResult(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	side, ok := parseSide(ev.Option("winner", ""))
	if !ok {
		return d.cat.MustRender("report.bad_side", nil), nil
	}
	forfeit := strings.EqualFold(ev.Option("forfeit", ""), "true")
	upd, err := d.eng.ForceResult(ctx, ev.UserID, id, side, ev.Option("score", ""), forfeit)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.forced", map[string]any{
		"MatchID": id,
		"Score":   upd.Score,
	}), nil
}

func (d *Dispatcher) cmdVoidMatch(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	if err := d.eng.VoidMatch(ctx, ev.UserID, id); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.voided", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdFlagMatch(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	if err := d.eng.AdminDispute(ctx, ev.UserID, id); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.flagged", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdOverride(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	if err := d.eng.ArmOverride(ctx, ev.UserID, id); err != nil {
		if errors.Is(err, store.ErrOverrideOwned) {
			return d.cat.MustRender("admin.override_owned", map[string]any{"MatchID": id}), nil
		}
		return "", err
	}
	return d.cat.MustRender("admin.override_armed", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdOverrideWinner(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	side, ok := parseSide(ev.Option("side", ""))
	if !ok {
		return d.cat.MustRender("report.bad_side", nil), nil
	}
	if _, err := d.eng.SetOverrideWinner(ctx, ev.UserID, id, side); err != nil {
		return "", err
	}
	return d.cat.MustRender("report.winner_ok", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdOverrideScore(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	if _, err := d.eng.SetOverrideScore(ctx, ev.UserID, id, ev.Option("score", "")); err != nil {
		return "", err
	}
	return d.cat.MustRender("report.score_ok", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdClearOverride(ctx context.Context, ev *gateway.Event) (string, error) {
	id, err := parseMatchID(ev)
	if err != nil {
		return "", err
	}
	if _, err := d.eng.ClearOverride(ctx, ev.UserID, id); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.override_cleared", map[string]any{"MatchID": id}), nil
}

func (d *Dispatcher) cmdDisqualify(ctx context.Context, ev *gateway.Event) (string, error) {
	user := ev.Option("user", "")
	if err := d.eng.Disqualify(ctx, ev.UserID, ev.GuildID, user); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.dq", map[string]any{"User": user}), nil
}

func (d *Dispatcher) cmdRequalify(ctx context.Context, ev *gateway.Event) (string, error) {
	user := ev.Option("user", "")
	if err := d.eng.Requalify(ctx, ev.UserID, ev.GuildID, user); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.requalified", map[string]any{"User": user}), nil
}

func (d *Dispatcher) cmdReset(ctx context.Context, ev *gateway.Event) (string, error) {
	level, ok := coord.ParseResetLevel(ev.Option("level", ""))
	if !ok {
		return d.cat.MustRender("reset.bad_level", nil), nil
	}
	token, err := d.eng.StageReset(ctx, ev.UserID, level)
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("reset.staged", map[string]any{
		"Level": string(level),
		"Token": token,
	}), nil
}

func (d *Dispatcher) cmdConfirmReset(ctx context.Context, ev *gateway.Event) (string, error) {
	level, err := d.eng.ConfirmReset(ctx, ev.UserID, ev.Option("token", ""))
	if err != nil {
		return "", err
	}
	return d.cat.MustRender("reset.done", map[string]any{"Level": string(level)}), nil
}

func (d *Dispatcher) cmdCancelReset(ctx context.Context, ev *gateway.Event) (string, error) {
	if err := d.eng.CancelReset(ctx, ev.UserID, ev.Option("token", "")); err != nil {
		return "", err
	}
	return d.cat.MustRender("reset.cancelled", nil), nil
}

// roleScope resolves the optional scope argument: "all" registers the
// role under the wildcard scope, anything else stays guild-local.
func roleScope(ev *gateway.Event) string {
	if strings.EqualFold(ev.Option("scope", ""), "all") {
		return ""
	}
	return ev.GuildID
}

func (d *Dispatcher) cmdAdminRoleAdd(ctx context.Context, ev *gateway.Event) (string, error) {
	role := ev.Option("role", "")
	if err := d.eng.AddAdminRole(ctx, ev.UserID, roleScope(ev), role); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.role_added", map[string]any{"Role": role}), nil
}

func (d *Dispatcher) cmdAdminRoleRemove(ctx context.Context, ev *gateway.Event) (string, error) {
	role := ev.Option("role", "")
	if err := d.eng.RemoveAdminRole(ctx, ev.UserID, roleScope(ev), role); err != nil {
		return "", err
	}
	return d.cat.MustRender("admin.role_removed", map[string]any{"Role": role}), nil
}
