package league

import (
	"sort"
	"strings"
)

// StandingsRow is one player's aggregate line in the table.
type StandingsRow struct {
	UserID    string
	Name      string
	Tag       string
	Status    PlayerStatus
	Points    int
	Wins      int
	Losses    int
	GamesWon  int
	GamesLost int
	Diff      int
	Played    int
}

// ComputeStandings folds every fixture into per-player aggregates and
// returns a total, deterministic order.
//
// Disqualification overrides history: any fixture between a disqualified
// player and a non-disqualified one scores as a forced format-shutout
// loss for the disqualified side, whether or not a real result was ever
// recorded. Two disqualified players facing each other contribute
// nothing. Forced outcomes use forfeit scoring (no-show points, no
// sweep bonus).
func ComputeStandings(players []Player, fixtures []Fixture, resultsByFixture map[int64]Result, format Format, rules PointRules) []StandingsRow {
	rules = rules.Normalize()

	rows := make(map[string]*StandingsRow, len(players))
	dq := make(map[string]bool)
	for _, p := range players {
		if p.Status != StatusActive && p.Status != StatusDisqualified {
			continue
		}
		rows[p.UserID] = &StandingsRow{
			UserID: p.UserID,
			Name:   p.DisplayName(),
			Tag:    p.Tag,
			Status: p.Status,
		}
		if p.Status == StatusDisqualified {
			dq[p.UserID] = true
		}
	}

	win := format.WinScore()

	for _, f := range fixtures {
		a, b := rows[f.PlayerA], rows[f.PlayerB]
		if a == nil || b == nil {
			continue
		}

		if dq[f.PlayerA] != dq[f.PlayerB] {
			winner, loser := a, b
			winnerID := f.PlayerA
			if dq[f.PlayerA] {
				winner, loser = b, a
				winnerID = f.PlayerB
			}
			winner.GamesWon += win
			loser.GamesLost += win
			winner.Wins++
			loser.Losses++

			scoreA, scoreB := win, 0
			if winnerID != f.PlayerA {
				scoreA, scoreB = 0, win
			}
			pa, pb := CalcMatchPoints(MatchOutcome{
				ScoreA:  scoreA,
				ScoreB:  scoreB,
				Winner:  winnerID,
				PlayerA: f.PlayerA,
				PlayerB: f.PlayerB,
				Forfeit: true,
			}, rules)
			a.Points += pa
			b.Points += pb
			continue
		}
		if dq[f.PlayerA] && dq[f.PlayerB] {
			continue
		}

		r, ok := resultsByFixture[f.ID]
		if !ok {
			continue
		}

		a.GamesWon += r.ScoreA
		a.GamesLost += r.ScoreB
		b.GamesWon += r.ScoreB
		b.GamesLost += r.ScoreA
		if r.Winner == f.PlayerA {
			a.Wins++
			b.Losses++
		} else {
			b.Wins++
			a.Losses++
		}

		pa, pb := CalcMatchPoints(MatchOutcome{
			ScoreA:  r.ScoreA,
			ScoreB:  r.ScoreB,
			Winner:  r.Winner,
			PlayerA: f.PlayerA,
			PlayerB: f.PlayerB,
			Forfeit: r.Forfeit,
		}, rules)
		a.Points += pa
		b.Points += pb
	}

	list := make([]StandingsRow, 0, len(rows))
	for _, r := range rows {
		r.Diff = r.GamesWon - r.GamesLost
		r.Played = r.Wins + r.Losses
		list = append(list, *r)
	}

	sort.Slice(list, func(i, j int) bool {
		p, q := list[i], list[j]
		if p.Points != q.Points {
			return p.Points > q.Points
		}
		if p.Diff != q.Diff {
			return p.Diff > q.Diff
		}
		if p.GamesWon != q.GamesWon {
			return p.GamesWon > q.GamesWon
		}
		return strings.ToLower(p.Tag) < strings.ToLower(q.Tag)
	})
	return list
}
