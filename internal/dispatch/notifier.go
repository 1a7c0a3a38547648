package dispatch

import (
	"context"
	"fmt"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/msgcat"
)

// Poster is the outbound half of the chat gateway the dispatcher
// needs. gateway.Client satisfies it; tests substitute a recorder.
type Poster interface {
	PostMessage(ctx context.Context, channelID, content string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	SendDM(ctx context.Context, userID, content string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrNoResultsChannel means the guild has not bound a results channel
// yet, so there is nowhere to announce matches.
const ErrNoResultsChannel = staticErr("results channel not configured")

// Notifier renders league events through the message catalog and posts
// them via the gateway. It is the production engine.Notifier.
type Notifier struct {
	poster Poster
	cat    *msgcat.Catalog
}

func NewNotifier(poster Poster, cat *msgcat.Catalog) *Notifier {
	return &Notifier{poster: poster, cat: cat}
}

func tournamentName(g *league.GuildSettings) string {
	if g.TournamentName != "" {
		return g.TournamentName
	}
	return "League"
}

func (n *Notifier) AnnounceMatch(ctx context.Context, m *league.Match, f *league.Fixture, g *league.GuildSettings) (string, string, error) {
	if g.ResultsChannelID == "" {
		return "", "", ErrNoResultsChannel
	}
	content := n.cat.MustRender("match.assignment", map[string]any{
		"Tournament": tournamentName(g),
		"MatchID":    m.ID,
		"PlayerA":    m.PlayerA,
		"PlayerB":    m.PlayerB,
		"Leg":        f.Leg,
		"Status":     string(engine.StatusPending),
		"Format":     string(g.MatchFormat),
		"ScoreGuide": league.ScoreHint(g.MatchFormat),
		"Details":    "",
	})
	msgID, err := n.poster.PostMessage(ctx, g.ResultsChannelID, content)
	if err != nil {
		return "", "", err
	}
	return g.ResultsChannelID, msgID, nil
}

func (n *Notifier) UpdateMatch(ctx context.Context, m *league.Match, g *league.GuildSettings, upd engine.MatchUpdate) error {
	if m.ChannelID == "" || m.MessageID == "" {
		return nil
	}
	header := fmt.Sprintf("**%s**\nMatch #%d: <@%s> vs <@%s>\nStatus: %s",
		tournamentName(g), m.ID, m.PlayerA, m.PlayerB, upd.Status)

	var detail string
	switch upd.Status {
	case engine.StatusReported:
		detail = n.cat.MustRender("match.reported", nil)
	case engine.StatusConfirmed:
		score := upd.Score
		if upd.Forfeit {
			score += " (forfeit)"
		}
		if upd.OverrideAdmin != "" {
			detail = n.cat.MustRender("match.confirmed_override", map[string]any{
				"Score": score,
				"Admin": upd.OverrideAdmin,
			})
		} else {
			detail = n.cat.MustRender("match.confirmed", map[string]any{"Score": score})
		}
	case engine.StatusDisputed:
		detail = n.cat.MustRender("match.disputed", map[string]any{"Details": upd.DisputeDetail})
	case engine.StatusCancelled:
		detail = n.cat.MustRender("match.cancelled", map[string]any{"MatchID": m.ID})
	}
	if detail != "" {
		header += "\n" + detail
	}
	return n.poster.EditMessage(ctx, m.ChannelID, m.MessageID, header)
}

func (n *Notifier) DMAssignment(ctx context.Context, userID string, m *league.Match, g *league.GuildSettings) error {
	return n.poster.SendDM(ctx, userID, n.cat.MustRender("match.dm_assigned", map[string]any{
		"Tournament": tournamentName(g),
		"Channel":    m.ChannelID,
		"MatchID":    m.ID,
	}))
}

// NotifyDispute prefers the dispute channel, then admin, then results.
func (n *Notifier) NotifyDispute(ctx context.Context, g *league.GuildSettings, content string) error {
	channel := firstNonEmpty(g.DisputeChannelID, g.AdminChannelID, g.ResultsChannelID)
	if channel == "" {
		return ErrNoResultsChannel
	}
	_, err := n.poster.PostMessage(ctx, channel, content)
	return err
}

func (n *Notifier) NotifyActivity(ctx context.Context, g *league.GuildSettings, content string) error {
	channel := firstNonEmpty(g.ActivityChannelID, g.ResultsChannelID)
	if channel == "" {
		return ErrNoResultsChannel
	}
	_, err := n.poster.PostMessage(ctx, channel, content)
	return err
}

func (n *Notifier) DM(ctx context.Context, userID, content string) error {
	return n.poster.SendDM(ctx, userID, content)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
