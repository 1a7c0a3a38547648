package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/gateway"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

func (d *Dispatcher) cmdStandings(ctx context.Context, ev *gateway.Event) (string, error) {
	gs, err := d.eng.GuildConfig(ctx, ev.GuildID)
	if err != nil {
		return "", err
	}
	rows, err := d.eng.Standings(ctx, ev.GuildID)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return d.cat.MustRender("standings.empty", nil), nil
	}

	var b strings.Builder
	b.WriteString(d.cat.MustRender("standings.header", map[string]any{
		"Tournament": tournamentName(gs),
	}))
	b.WriteString("\n```\n")
	fmt.Fprintf(&b, "%-3s %-16s %4s %3s %3s %5s %4s\n", "#", "Player", "Pts", "W", "L", "+/-", "P")
	for i, r := range rows {
		name := r.Tag
		if r.Status == league.StatusDisqualified {
			name += " (DQ)"
		}
		if len(name) > 16 {
			name = name[:16]
		}
		fmt.Fprintf(&b, "%-3d %-16s %4d %3d %3d %+5d %4d\n",
			i+1, name, r.Points, r.Wins, r.Losses, r.Diff, r.Played)
	}
	b.WriteString("```")
	return b.String(), nil
}

func (d *Dispatcher) cmdLeftToPlay(ctx context.Context, ev *gateway.Event) (string, error) {
	left, err := d.eng.LeftToPlay(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if len(left) == 0 {
		return d.cat.MustRender("checkin.exempt", nil), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d fixture(s) left:\n", len(left))
	for _, rf := range left {
		fmt.Fprintf(&b, "- %s (leg %d)\n", rf.OpponentTag, rf.Leg)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) cmdQueue(ctx context.Context, ev *gateway.Event) (string, error) {
	queue, err := d.eng.QueueSnapshot(ctx)
	if err != nil {
		return "", err
	}
	if len(queue) == 0 {
		return "The ready pool is empty.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Ready pool (%d):\n", len(queue))
	for i, q := range queue {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Tag)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) cmdAttendance(ctx context.Context, ev *gateway.Event) (string, error) {
	rows, err := d.eng.Attendance(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return d.cat.MustRender("standings.empty", nil), nil
	}
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "%-16s %5s %6s %s\n", "Player", "Days", "Show%", "Status")
	for _, r := range rows {
		status := "short"
		switch {
		case r.Exempt:
			status = "exempt"
		case r.Eligible:
			status = "ok"
		}
		name := r.Tag
		if len(name) > 16 {
			name = name[:16]
		}
		fmt.Fprintf(&b, "%-16s %5d %5.0f%% %s\n", name, r.Days, r.Percent*100, status)
	}
	b.WriteString("```")
	return b.String(), nil
}

func (d *Dispatcher) cmdAudit(ctx context.Context, ev *gateway.Event) (string, error) {
	entries, err := d.eng.RecentAudit(ctx, d.auditLimit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "The audit log is empty.", nil
	}
	var b strings.Builder
	b.WriteString("```\n")
	for _, e := range entries {
		actor := e.Actor
		if actor == "" {
			actor = "system"
		}
		fmt.Fprintf(&b, "%s  %-28s %s  %s\n",
			e.At.Format("01-02 15:04"), e.Action, actor, e.Payload)
	}
	b.WriteString("```")
	return b.String(), nil
}

func renderSettings(ls *league.LeagueSettings) string {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "Players cap:    %d\n", ls.MaxPlayers)
	fmt.Fprintf(&b, "Season days:    %d\n", ls.SeasonDays)
	fmt.Fprintf(&b, "Start date:     %s\n", ls.StartDate)
	fmt.Fprintf(&b, "Timeslots:      %d x %d min (%s)\n",
		ls.TimeslotCount, ls.TimeslotDurationMinutes, ls.TimeslotStarts)
	fmt.Fprintf(&b, "Show-up min:    %.0f%%\n", ls.EligibilityMinPercent*100)
	b.WriteString("```")
	return b.String()
}
