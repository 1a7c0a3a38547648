package engine

import (
	"context"
	"testing"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

func TestLeftToPlayOrdersLegs(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B", "C")
	m := openMatchBetween(t, e, "u-A", "u-B")
	confirmMatch(t, e, m, "u-A", "3-0")

	left, err := e.LeftToPlay(ctx, "u-A")
	if err != nil {
		t.Fatalf("LeftToPlay: %v", err)
	}
	// A owes both legs against C plus the return leg against B.
	if len(left) != 3 {
		t.Fatalf("remaining = %d, want 3", len(left))
	}
	for i := 1; i < len(left); i++ {
		if left[i-1].Leg > left[i].Leg {
			t.Fatalf("legs out of order: %+v", left)
		}
	}
	for _, rf := range left {
		if rf.Opponent == "u-A" {
			t.Fatalf("player listed as their own opponent")
		}
		if rf.OpponentTag == "" {
			t.Fatalf("opponent tag unresolved for %s", rf.Opponent)
		}
	}
}

func TestLeftToPlaySkipsInactiveOpponents(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B", "C")
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	if err := e.Disqualify(ctx, "admin", "g1", "u-C"); err != nil {
		t.Fatalf("Disqualify: %v", err)
	}

	left, err := e.LeftToPlay(ctx, "u-A")
	if err != nil {
		t.Fatalf("LeftToPlay: %v", err)
	}
	for _, rf := range left {
		if rf.Opponent == "u-C" {
			t.Fatalf("disqualified opponent still listed")
		}
	}
	if len(left) != 2 {
		t.Fatalf("remaining = %d, want 2 (both legs vs B)", len(left))
	}
}

func TestAttendanceEligibility(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")

	// Shrink the season so one check-in can clear the bar.
	days := 1
	pct := 100.0
	if _, err := e.ApplySetup(ctx, "admin", league.SetupInput{
		TotalDays:            &days,
		MinimumShowupPercent: &pct,
	}); err != nil {
		t.Fatalf("ApplySetup: %v", err)
	}
	// The stock minimum-days floor still applies; drop it via the
	// season being a single day is not enough, so check the raw rows.
	if _, err := e.CheckIn(ctx, "u-A"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	rows, err := e.Attendance(ctx)
	if err != nil {
		t.Fatalf("Attendance: %v", err)
	}
	byUser := make(map[string]AttendanceRow)
	for _, r := range rows {
		byUser[r.UserID] = r
	}
	if got := byUser["u-A"].Days; got != 1 {
		t.Fatalf("A days = %d, want 1", got)
	}
	if byUser["u-A"].Percent != 1.0 {
		t.Fatalf("A percent = %f, want 1.0", byUser["u-A"].Percent)
	}
	if byUser["u-B"].Days != 0 || byUser["u-B"].Eligible {
		t.Fatalf("B unexpectedly eligible: %+v", byUser["u-B"])
	}
}

func TestAttendanceExemptWhenScheduleDone(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	for leg := 0; leg < 2; leg++ {
		m := openMatchBetween(t, e, "u-A", "u-B")
		confirmMatch(t, e, m, "u-A", "3-0")
	}

	rows, err := e.Attendance(ctx)
	if err != nil {
		t.Fatalf("Attendance: %v", err)
	}
	for _, r := range rows {
		if !r.Exempt || !r.Eligible {
			t.Fatalf("finished player not exempt: %+v", r)
		}
	}
}

func TestApplySetupValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	bad := 1
	if _, err := e.ApplySetup(ctx, "admin", league.SetupInput{MaxPlayers: &bad}); err == nil {
		t.Fatalf("accepted max players below 2")
	}
	slots := "18:00,19:00"
	count := 3
	if _, err := e.ApplySetup(ctx, "admin", league.SetupInput{
		TimeslotCount:     &count,
		TimeslotStartsRaw: &slots,
	}); err == nil {
		t.Fatalf("accepted slot count that disagrees with starts")
	}

	count = 2
	ls, err := e.ApplySetup(ctx, "admin", league.SetupInput{
		TimeslotCount:     &count,
		TimeslotStartsRaw: &slots,
	})
	if err != nil {
		t.Fatalf("ApplySetup: %v", err)
	}
	if ls.TimeslotCount != 2 || ls.TimeslotStarts != "18:00,19:00" {
		t.Fatalf("merged settings = %+v", ls)
	}
}

func TestApplySetupCrossChecksMergedState(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	// The stock settings carry 4 slots; changing only the count must
	// still agree with the stored starts list.
	count := 2
	if _, err := e.ApplySetup(ctx, "admin", league.SetupInput{TimeslotCount: &count}); err == nil {
		t.Fatalf("accepted count change that contradicts stored starts")
	}
}

func TestSetPointRulesNormalizes(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	rules, err := e.SetPointRules(ctx, "admin", league.PointRules{Win: 5, Loss: -2, NoShow: 4, SweepBonus: 0})
	if err != nil {
		t.Fatalf("SetPointRules: %v", err)
	}
	if rules.Win != 5 || rules.NoShow != 4 || rules.SweepBonus != 0 {
		t.Fatalf("rules = %+v", rules)
	}
	if rules.Loss != 1 {
		t.Fatalf("negative loss not normalized: %+v", rules)
	}
	ls, err := e.LeagueConfig(ctx)
	if err != nil {
		t.Fatalf("LeagueConfig: %v", err)
	}
	if ls.Rules != rules {
		t.Fatalf("stored rules = %+v, want %+v", ls.Rules, rules)
	}
}

func TestQueueSnapshotResolvesTags(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	if _, err := e.Ready(ctx, "u-A"); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if _, err := e.Ready(ctx, "u-B"); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	q, err := e.QueueSnapshot(ctx)
	if err != nil {
		t.Fatalf("QueueSnapshot: %v", err)
	}
	if len(q) != 2 {
		t.Fatalf("queue length = %d, want 2", len(q))
	}
	if q[0].Tag != "A" || q[1].Tag != "B" {
		t.Fatalf("queue = %+v, want arrival order with tags", q)
	}
}

func TestAdminRoleWhitelist(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	ok, err := e.IsAdmin(ctx, "g1", true, nil)
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !ok {
		t.Fatalf("platform admin rejected")
	}
	ok, err = e.IsAdmin(ctx, "g1", false, []string{"r1"})
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Fatalf("unlisted role accepted")
	}
	if err := e.AddAdminRole(ctx, "admin", "g1", "r1"); err != nil {
		t.Fatalf("AddAdminRole: %v", err)
	}
	ok, err = e.IsAdmin(ctx, "g1", false, []string{"r0", "r1"})
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !ok {
		t.Fatalf("whitelisted role rejected")
	}
	if err := e.RemoveAdminRole(ctx, "admin", "g1", "r1"); err != nil {
		t.Fatalf("RemoveAdminRole: %v", err)
	}
	ok, err = e.IsAdmin(ctx, "g1", false, []string{"r1"})
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Fatalf("removed role still accepted")
	}
}

func TestAdminRoleWildcardScope(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.AddAdminRole(ctx, "admin", "", "r-wild"); err != nil {
		t.Fatalf("AddAdminRole: %v", err)
	}
	for _, guild := range []string{"g1", "g2"} {
		ok, err := e.IsAdmin(ctx, guild, false, []string{"r-wild"})
		if err != nil {
			t.Fatalf("IsAdmin(%s): %v", guild, err)
		}
		if !ok {
			t.Fatalf("wildcard role rejected in %s", guild)
		}
	}
	if err := e.RemoveAdminRole(ctx, "admin", "", "r-wild"); err != nil {
		t.Fatalf("RemoveAdminRole: %v", err)
	}
	ok, err := e.IsAdmin(ctx, "g1", false, []string{"r-wild"})
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if ok {
		t.Fatalf("removed wildcard role still accepted")
	}
}

func TestAuditTrailRecordsActions(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	m := openMatchBetween(t, e, "u-A", "u-B")
	confirmMatch(t, e, m, "u-A", "3-0")

	entries, err := e.RecentAudit(ctx, 50)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	seen := make(map[string]bool)
	for _, en := range entries {
		seen[en.Action] = true
	}
	for _, action := range []string{"player_signup", "fixtures_generated", "player_ready", "match_created", "match_forced"} {
		if !seen[action] {
			t.Fatalf("audit missing action %q (have %v)", action, entries)
		}
	}
}
