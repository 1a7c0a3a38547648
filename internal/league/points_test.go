package league

import "testing"

func TestCalcMatchPointsPlayed(t *testing.T) {
	rules := DefaultRules()

	pa, pb := CalcMatchPoints(MatchOutcome{ScoreA: 3, ScoreB: 1, Winner: "a", PlayerA: "a", PlayerB: "b"}, rules)
	if pa != 2 || pb != 1 {
		t.Fatalf("3-1 win: got %d/%d, want 2/1", pa, pb)
	}

	pa, pb = CalcMatchPoints(MatchOutcome{ScoreA: 1, ScoreB: 3, Winner: "b", PlayerA: "a", PlayerB: "b"}, rules)
	if pa != 1 || pb != 2 {
		t.Fatalf("1-3 loss: got %d/%d, want 1/2", pa, pb)
	}
}

func TestCalcMatchPointsSweepBonus(t *testing.T) {
	rules := DefaultRules()

	pa, pb := CalcMatchPoints(MatchOutcome{ScoreA: 3, ScoreB: 0, Winner: "a", PlayerA: "a", PlayerB: "b"}, rules)
	if pa != 3 || pb != 1 {
		t.Fatalf("3-0 sweep: got %d/%d, want 3/1", pa, pb)
	}

	pa, pb = CalcMatchPoints(MatchOutcome{ScoreA: 0, ScoreB: 2, Winner: "b", PlayerA: "a", PlayerB: "b"}, rules)
	if pa != 1 || pb != 3 {
		t.Fatalf("0-2 sweep against: got %d/%d, want 1/3", pa, pb)
	}
}

func TestCalcMatchPointsForfeit(t *testing.T) {
	rules := DefaultRules()

	// Forfeit pays the no-show value, nothing to the loser, and never
	// the sweep bonus even on a shutout scoreline.
	pa, pb := CalcMatchPoints(MatchOutcome{ScoreA: 3, ScoreB: 0, Winner: "a", PlayerA: "a", PlayerB: "b", Forfeit: true}, rules)
	if pa != 3 || pb != 0 {
		t.Fatalf("forfeit for A: got %d/%d, want 3/0", pa, pb)
	}
	pa, pb = CalcMatchPoints(MatchOutcome{ScoreA: 0, ScoreB: 3, Winner: "b", PlayerA: "a", PlayerB: "b", Forfeit: true}, rules)
	if pa != 0 || pb != 3 {
		t.Fatalf("forfeit for B: got %d/%d, want 0/3", pa, pb)
	}
}

func TestCalcMatchPointsCustomRules(t *testing.T) {
	rules := PointRules{Win: 5, Loss: 0, NoShow: 7, SweepBonus: 2}

	pa, _ := CalcMatchPoints(MatchOutcome{ScoreA: 2, ScoreB: 0, Winner: "a", PlayerA: "a", PlayerB: "b"}, rules)
	if pa != 7 {
		t.Fatalf("custom sweep: got %d, want 7", pa)
	}
	_, pb := CalcMatchPoints(MatchOutcome{ScoreA: 2, ScoreB: 1, Winner: "a", PlayerA: "a", PlayerB: "b"}, rules)
	if pb != 0 {
		t.Fatalf("custom loss: got %d, want 0", pb)
	}
}

func TestNormalizeRejectsNegatives(t *testing.T) {
	got := PointRules{Win: -1, Loss: 0, NoShow: -5, SweepBonus: 4}.Normalize()
	want := PointRules{Win: 2, Loss: 0, NoShow: 3, SweepBonus: 4}
	if got != want {
		t.Fatalf("Normalize: got %+v, want %+v", got, want)
	}
}
