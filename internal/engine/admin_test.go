package engine

import (
	"context"
	"testing"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

func confirmMatch(t *testing.T, e *Engine, m *league.Match, winner string, score string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.ForceResult(ctx, "admin", m.ID, sideOf(m, winner), score, false); err != nil {
		t.Fatalf("ForceResult: %v", err)
	}
}

func TestForceRefusesConfirmedMatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	m := openMatchBetween(t, e, "u-A", "u-B")
	confirmMatch(t, e, m, "u-A", "3-0")

	if _, err := e.ForceResult(ctx, "admin", m.ID, league.SideB, "3-2", false); err != ErrAlreadyConfirmed {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
}

func TestVoidThenForce(t *testing.T) {
	e, mem, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	m := openMatchBetween(t, e, "u-A", "u-B")
	confirmMatch(t, e, m, "u-A", "3-0")

	if err := e.VoidMatch(ctx, "admin", m.ID); err != nil {
		t.Fatalf("VoidMatch: %v", err)
	}
	got, err := mem.MatchByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("MatchByID: %v", err)
	}
	if got.State != league.MatchCancelled {
		t.Fatalf("state = %s, want cancelled", got.State)
	}
	f, err := mem.FixtureByID(ctx, m.FixtureID)
	if err != nil {
		t.Fatalf("FixtureByID: %v", err)
	}
	if f.Status != league.FixtureUnplayed {
		t.Fatalf("fixture status = %s, want unplayed", f.Status)
	}
	if _, err := mem.ResultByMatch(ctx, m.ID); err == nil {
		t.Fatalf("voided match kept its result")
	}

	// The pairing can now be replayed and settled the other way.
	m2 := openMatchBetween(t, e, "u-A", "u-B")
	if m2.FixtureID != m.FixtureID {
		t.Fatalf("replay used fixture %d, want %d", m2.FixtureID, m.FixtureID)
	}
	confirmMatch(t, e, m2, "u-B", "3-2")
}

func TestForceForfeitScoring(t *testing.T) {
	e, mem, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	m := openMatchBetween(t, e, "u-A", "u-B")

	upd, err := e.ForceResult(ctx, "admin", m.ID, sideOf(m, "u-A"), "", true)
	if err != nil {
		t.Fatalf("ForceResult forfeit: %v", err)
	}
	if !upd.Forfeit {
		t.Fatalf("update not flagged as forfeit")
	}
	r, err := mem.ResultByMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("ResultByMatch: %v", err)
	}
	if !r.Forfeit {
		t.Fatalf("result not flagged as forfeit")
	}

	rows, err := e.Standings(ctx, "g1")
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	byUser := make(map[string]league.StandingsRow)
	for _, row := range rows {
		byUser[row.UserID] = row
	}
	// Forfeit win pays no-show points with no sweep bonus; the loser
	// gets nothing.
	if got := byUser["u-A"].Points; got != 3 {
		t.Fatalf("winner points = %d, want 3", got)
	}
	if got := byUser["u-B"].Points; got != 0 {
		t.Fatalf("loser points = %d, want 0", got)
	}
}

func TestDisqualifyForcesStandingsLosses(t *testing.T) {
	e, _, notify := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B", "C")

	// A beats B for real before C is thrown out.
	m := openMatchBetween(t, e, "u-A", "u-B")
	confirmMatch(t, e, m, "u-A", "3-0")
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}

	if err := e.Disqualify(ctx, "admin", "g1", "u-C"); err != nil {
		t.Fatalf("Disqualify: %v", err)
	}
	if len(notify.activities) != 1 {
		t.Fatalf("activity notices = %d, want 1", len(notify.activities))
	}

	rows, err := e.Standings(ctx, "g1")
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	byUser := make(map[string]league.StandingsRow)
	for _, row := range rows {
		byUser[row.UserID] = row
	}
	// C forfeits both legs against A and against B.
	if got := byUser["u-C"].Losses; got != 4 {
		t.Fatalf("disqualified losses = %d, want 4", got)
	}
	if got := byUser["u-C"].Points; got != 0 {
		t.Fatalf("disqualified points = %d, want 0", got)
	}
	// A: real 3-0 win (2+1) plus two forfeit wins over C (3+3).
	if got := byUser["u-A"].Points; got != 9 {
		t.Fatalf("A points = %d, want 9", got)
	}
	// B: real loss (1) plus two forfeit wins over C (3+3).
	if got := byUser["u-B"].Points; got != 7 {
		t.Fatalf("B points = %d, want 7", got)
	}

	if _, err := e.Ready(ctx, "u-C"); err != ErrNotActive {
		t.Fatalf("Ready after DQ err = %v, want ErrNotActive", err)
	}
}

func TestRequalifyRestoresPlay(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")

	if err := e.Disqualify(ctx, "admin", "g1", "u-B"); err != nil {
		t.Fatalf("Disqualify: %v", err)
	}
	if err := e.Requalify(ctx, "admin", "g1", "u-B"); err != nil {
		t.Fatalf("Requalify: %v", err)
	}
	if _, err := e.Ready(ctx, "u-B"); err != nil {
		t.Fatalf("Ready after requalify: %v", err)
	}

	rows, err := e.Standings(ctx, "g1")
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	for _, row := range rows {
		if row.Losses != 0 || row.Points != 0 {
			t.Fatalf("reinstated standings dirty: %+v", row)
		}
	}
}

func TestAdminMatchCreationPath(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}

	m, err := e.CreateMatchBetween(ctx, "admin", "g1", "u-A", "u-B")
	if err != nil {
		t.Fatalf("CreateMatchBetween: %v", err)
	}
	if m.State != league.MatchPending {
		t.Fatalf("state = %s, want pending", m.State)
	}
	if _, err := e.CreateMatchBetween(ctx, "admin", "g1", "u-A", "u-B"); err != ErrOpenMatch {
		t.Fatalf("second create err = %v, want ErrOpenMatch", err)
	}
	confirmMatch(t, e, m, "u-A", "3-0")

	// One leg left, then the pairing is exhausted.
	m2, err := e.CreateMatchBetween(ctx, "admin", "g1", "u-A", "u-B")
	if err != nil {
		t.Fatalf("second leg: %v", err)
	}
	confirmMatch(t, e, m2, "u-B", "3-1")
	if _, err := e.CreateMatchBetween(ctx, "admin", "g1", "u-A", "u-B"); err != ErrNoFixtureLeft {
		t.Fatalf("exhausted err = %v, want ErrNoFixtureLeft", err)
	}
}
