package league

// PointRules is the configurable scoring scheme for one league.
type PointRules struct {
	Win        int
	Loss       int
	NoShow     int
	SweepBonus int
}

// DefaultRules matches the league's stock scheme.
func DefaultRules() PointRules {
	return PointRules{Win: 2, Loss: 1, NoShow: 3, SweepBonus: 1}
}

// Normalize coerces every value to a non-negative integer, substituting
// the default for anything negative, so malformed configuration can
// never make the points function misbehave.
func (r PointRules) Normalize() PointRules {
	def := DefaultRules()
	pick := func(v, fallback int) int {
		if v < 0 {
			return fallback
		}
		return v
	}
	return PointRules{
		Win:        pick(r.Win, def.Win),
		Loss:       pick(r.Loss, def.Loss),
		NoShow:     pick(r.NoShow, def.NoShow),
		SweepBonus: pick(r.SweepBonus, def.SweepBonus),
	}
}

// MatchOutcome is the minimal view of a decided match that scoring needs.
type MatchOutcome struct {
	ScoreA  int
	ScoreB  int
	Winner  string
	PlayerA string
	PlayerB string
	Forfeit bool
}

func pointsForPlayedMatch(winnerScore, loserScore int, rules PointRules) int {
	if winnerScore > loserScore && loserScore == 0 {
		return rules.Win + rules.SweepBonus
	}
	return rules.Win
}

// CalcMatchPoints maps an outcome to (pointsA, pointsB). Forfeits award
// the no-show value to the winner and nothing to the loser, and never
// the sweep bonus.
func CalcMatchPoints(o MatchOutcome, rules PointRules) (pointsA, pointsB int) {
	rules = rules.Normalize()

	if o.Forfeit {
		if o.Winner == o.PlayerA {
			return rules.NoShow, 0
		}
		return 0, rules.NoShow
	}

	if o.Winner == o.PlayerA {
		return pointsForPlayedMatch(o.ScoreA, o.ScoreB, rules), rules.Loss
	}
	return rules.Loss, pointsForPlayedMatch(o.ScoreB, o.ScoreA, rules)
}
