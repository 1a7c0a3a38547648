package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

// RematchResult reports the state of a rematch vote.
type RematchResult struct {
	Votes   int64
	Granted bool
	// Match is the newly opened match when the vote passed and a leg
	// was still available between the two players.
	Match *league.Match
}

// VoteRematch casts one participant's vote to play the return leg
// immediately instead of waiting on the queue. Votes live in Redis with
// a short expiry; once both participants of a confirmed match have
// voted, the next unplayed leg between them is opened right away.
func (e *Engine) VoteRematch(ctx context.Context, userID string, matchID int64) (*RematchResult, error) {
	m, err := e.store.MatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.State != league.MatchConfirmed {
		return nil, ErrMatchNotOpen
	}
	if !m.Involves(userID) {
		return nil, ErrNotParticipant
	}
	for _, uid := range []string{m.PlayerA, m.PlayerB} {
		if _, err := e.activePlayer(ctx, e.store, uid); err != nil {
			return nil, err
		}
		if open, err := e.store.OpenMatchFor(ctx, uid); err != nil {
			return nil, err
		} else if open != nil {
			return nil, ErrOpenMatch
		}
	}

	key := strconv.FormatInt(matchID, 10)
	votes, err := e.coord.VoteRematch(ctx, key, userID)
	if err != nil {
		return nil, err
	}
	e.audit(ctx, e.store, userID, "rematch_vote", map[string]any{"matchId": matchID, "votes": votes})
	if votes < 2 {
		return &RematchResult{Votes: votes}, nil
	}

	next, err := e.CreateMatchBetween(ctx, "", m.GuildID, m.PlayerA, m.PlayerB)
	if err != nil {
		if errors.Is(err, ErrNoFixtureLeft) {
			// Both legs already played; drop the stale vote set.
			_ = e.coord.ClearRematch(ctx, key)
			return nil, err
		}
		return nil, err
	}
	if err := e.coord.ClearRematch(ctx, key); err != nil {
		return nil, err
	}
	return &RematchResult{Votes: votes, Granted: true, Match: next}, nil
}
