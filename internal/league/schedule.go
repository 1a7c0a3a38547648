package league

import (
	"fmt"
	"sort"
)

// PairLeg identifies one required fixture by unordered pair + leg.
// Low/High are the two user IDs in lexical order.
type PairLeg struct {
	Low  string
	High string
	Leg  int
}

// Key is the uniqueness key a fixture must never duplicate.
func (p PairLeg) Key() string { return fmt.Sprintf("%s|%s|%d", p.Low, p.High, p.Leg) }

// NormalizePair orders two user IDs lexically.
func NormalizePair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// MissingFixtures computes the double round-robin requirement for the
// active player set and returns the pair/leg combinations absent from
// all-time fixture history. Regeneration is therefore idempotent and
// only ever fills gaps (e.g. after a late signup).
func MissingFixtures(activeIDs []string, existing []Fixture) []PairLeg {
	ids := append([]string(nil), activeIDs...)
	sort.Strings(ids)

	seen := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		low, high := NormalizePair(f.PlayerA, f.PlayerB)
		seen[PairLeg{Low: low, High: high, Leg: f.Leg}.Key()] = struct{}{}
	}

	var missing []PairLeg
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			for leg := 1; leg <= 2; leg++ {
				p := PairLeg{Low: ids[i], High: ids[j], Leg: leg}
				if _, ok := seen[p.Key()]; ok {
					continue
				}
				seen[p.Key()] = struct{}{}
				missing = append(missing, p)
			}
		}
	}
	return missing
}

// RequiredFixtures is the total double round-robin fixture count for n
// active players: (n choose 2) * 2.
func RequiredFixtures(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1)
}

// CompletionRequired is the confirmed-fixture count at which one player
// has finished their schedule: (active players - 1) * 2.
func CompletionRequired(activeCount int) int {
	if activeCount < 2 {
		return 0
	}
	return (activeCount - 1) * 2
}

// Completion is one player's schedule progress.
type Completion struct {
	Completed int
	Required  int
}

// Done reports whether the player has no fixtures left, which exempts
// them from further attendance requirements.
func (c Completion) Done() bool { return c.Required > 0 && c.Completed >= c.Required }

// ComputeCompletion counts confirmed fixtures per active player.
func ComputeCompletion(activeIDs []string, fixtures []Fixture) map[string]Completion {
	required := CompletionRequired(len(activeIDs))
	out := make(map[string]Completion, len(activeIDs))
	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
		out[id] = Completion{Required: required}
	}
	for _, f := range fixtures {
		if f.Status != FixtureConfirmed {
			continue
		}
		for _, id := range []string{f.PlayerA, f.PlayerB} {
			if _, ok := active[id]; ok {
				c := out[id]
				c.Completed++
				out[id] = c
			}
		}
	}
	return out
}
