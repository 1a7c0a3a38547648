package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeNotifier struct {
	mu           sync.Mutex
	failAnnounce bool

	announced  []int64
	updates    []MatchUpdate
	dms        []string
	disputes   []string
	activities []string
	nextMsg    int
}

func (f *fakeNotifier) AnnounceMatch(ctx context.Context, m *league.Match, fx *league.Fixture, g *league.GuildSettings) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAnnounce {
		return "", "", fmt.Errorf("announce refused")
	}
	f.nextMsg++
	f.announced = append(f.announced, m.ID)
	return "chan-results", fmt.Sprintf("msg-%d", f.nextMsg), nil
}

func (f *fakeNotifier) UpdateMatch(ctx context.Context, m *league.Match, g *league.GuildSettings, upd MatchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeNotifier) DMAssignment(ctx context.Context, userID string, m *league.Match, g *league.GuildSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, userID)
	return nil
}

func (f *fakeNotifier) NotifyDispute(ctx context.Context, g *league.GuildSettings, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disputes = append(f.disputes, content)
	return nil
}

func (f *fakeNotifier) NotifyActivity(ctx context.Context, g *league.GuildSettings, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, content)
	return nil
}

func (f *fakeNotifier) DM(ctx context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, userID)
	return nil
}

func (f *fakeNotifier) lastUpdate(t *testing.T) MatchUpdate {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		t.Fatalf("no match updates recorded")
	}
	return f.updates[len(f.updates)-1]
}

func newTestEngine(t *testing.T) (*Engine, *store.Memory, *fakeNotifier) {
	t.Helper()
	mem := store.NewMemory()
	codec, err := pii.NewCodec(testKeyHex)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	notify := &fakeNotifier{}
	e := New(mem, nil, notify, codec)
	e.SetClock(func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) })
	return e, mem, notify
}

// newTestEngineRedis additionally wires a live coordination store for
// reset and rematch flows.
func newTestEngineRedis(t *testing.T) (*Engine, *store.Memory, *fakeNotifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	e, mem, notify := newTestEngine(t)
	e.coord = coord.NewStore(rdb)
	return e, mem, notify, mr
}

func signupN(t *testing.T, e *Engine, tags ...string) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, len(tags))
	for i, tag := range tags {
		uid := "u-" + tag
		_, err := e.Signup(ctx, SignupInput{
			UserID:      uid,
			Username:    strings.ToLower(tag),
			DisplayName: tag,
			RealName:    tag + " Example",
			Tag:         tag,
			Email:       fmt.Sprintf("%s%d@example.com", strings.ToLower(tag), i),
			Phone:       fmt.Sprintf("+9745550%04d", i),
		})
		if err != nil {
			t.Fatalf("Signup(%s): %v", tag, err)
		}
		ids = append(ids, uid)
	}
	return ids
}

// openMatchBetween drives the normal path: fixtures generated, both
// players ready, match opened on their first remaining leg.
func openMatchBetween(t *testing.T, e *Engine, a, b string) *league.Match {
	t.Helper()
	ctx := context.Background()
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	for _, uid := range []string{a, b} {
		if _, err := e.Ready(ctx, uid); err != nil {
			t.Fatalf("Ready(%s): %v", uid, err)
		}
	}
	f, err := e.NextUnplayedFixtureBetween(ctx, a, b)
	if err != nil {
		t.Fatalf("NextUnplayedFixtureBetween: %v", err)
	}
	m, err := e.CreateMatchForFixture(ctx, "g1", f.ID)
	if err != nil {
		t.Fatalf("CreateMatchForFixture: %v", err)
	}
	return m
}

func sideOf(m *league.Match, userID string) league.WinnerSide {
	if m.PlayerA == userID {
		return league.SideA
	}
	return league.SideB
}

func TestSignupDuplicateRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "Kazuya")
	_, err := e.Signup(ctx, SignupInput{
		UserID: "u-Kazuya", Username: "kazuya", DisplayName: "Kazuya",
		RealName: "K", Email: "k@example.com", Phone: "+97455512345",
	})
	if err != ErrDuplicateSignup {
		t.Fatalf("err = %v, want ErrDuplicateSignup", err)
	}
}

func TestSignupValidatesContact(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	base := SignupInput{UserID: "u1", DisplayName: "P", RealName: "P", Phone: "+97455512345"}

	in := base
	in.Email = "not-an-email"
	if _, err := e.Signup(ctx, in); err != ErrInvalidEmail {
		t.Fatalf("bad email err = %v, want ErrInvalidEmail", err)
	}
	in = base
	in.Email = "p@example.com"
	in.Phone = "12"
	if _, err := e.Signup(ctx, in); err != ErrInvalidPhone {
		t.Fatalf("bad phone err = %v, want ErrInvalidPhone", err)
	}
}

func TestSignupEnforcesPlayerCap(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	limit := 2
	if _, err := e.ApplySetup(ctx, "admin", league.SetupInput{MaxPlayers: &limit}); err != nil {
		t.Fatalf("ApplySetup: %v", err)
	}
	signupN(t, e, "A", "B")
	_, err := e.Signup(ctx, SignupInput{
		UserID: "u-C", DisplayName: "C", RealName: "C",
		Email: "c@example.com", Phone: "+97455512345",
	})
	if err != ErrLeagueFull {
		t.Fatalf("err = %v, want ErrLeagueFull", err)
	}
}

func TestSignupStoresEncryptedContact(t *testing.T) {
	e, mem, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "Jin")
	p, err := mem.PlayerByUserID(ctx, "u-Jin")
	if err != nil {
		t.Fatalf("PlayerByUserID: %v", err)
	}
	if strings.Contains(p.EmailEnc, "@") {
		t.Fatalf("email stored in plaintext: %q", p.EmailEnc)
	}
	prof, err := e.MyData(ctx, "u-Jin")
	if err != nil {
		t.Fatalf("MyData: %v", err)
	}
	if !strings.HasSuffix(prof.EmailMasked, "@example.com") {
		t.Fatalf("EmailMasked = %q, want example.com domain preserved", prof.EmailMasked)
	}
	if strings.Contains(prof.EmailMasked, "jin0@") {
		t.Fatalf("EmailMasked = %q leaks the local part", prof.EmailMasked)
	}
}

func TestCheckinOncePerDay(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")

	r1, err := e.CheckIn(ctx, "u-A")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if !r1.Recorded || r1.Days != 1 {
		t.Fatalf("first check-in = %+v, want recorded day 1", r1)
	}
	r2, err := e.CheckIn(ctx, "u-A")
	if err != nil {
		t.Fatalf("repeat CheckIn: %v", err)
	}
	if r2.Recorded || r2.Days != 1 {
		t.Fatalf("repeat check-in = %+v, want not recorded", r2)
	}

	e.SetClock(func() time.Time { return time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) })
	r3, err := e.CheckIn(ctx, "u-A")
	if err != nil {
		t.Fatalf("next-day CheckIn: %v", err)
	}
	if !r3.Recorded || r3.Days != 2 {
		t.Fatalf("next-day check-in = %+v, want day 2", r3)
	}
}

func TestCheckinExemptAfterCompletion(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")

	for leg := 0; leg < 2; leg++ {
		m := openMatchBetween(t, e, "u-A", "u-B")
		if _, err := e.ForceResult(ctx, "admin", m.ID, league.SideA, "3-0", false); err != nil {
			t.Fatalf("ForceResult leg %d: %v", leg, err)
		}
	}
	if _, err := e.CheckIn(ctx, "u-A"); err != ErrExemptFromCheckin {
		t.Fatalf("err = %v, want ErrExemptFromCheckin", err)
	}
}

func TestReadyRejectsOpenMatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	openMatchBetween(t, e, "u-A", "u-B")

	if _, err := e.Ready(ctx, "u-A"); err != ErrOpenMatch {
		t.Fatalf("err = %v, want ErrOpenMatch", err)
	}
}

func TestReadyIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")

	joined, err := e.Ready(ctx, "u-A")
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if !joined {
		t.Fatalf("first Ready did not join")
	}
	joined, err = e.Ready(ctx, "u-A")
	if err != nil {
		t.Fatalf("second Ready: %v", err)
	}
	if joined {
		t.Fatalf("second Ready reported a fresh join")
	}
	removed, err := e.Unready(ctx, "u-A")
	if err != nil {
		t.Fatalf("Unready: %v", err)
	}
	if !removed {
		t.Fatalf("Unready did not remove queued player")
	}
}

// guildSettingsFailStore breaks the guild-settings lookup on demand so
// the post-commit path of match creation can be driven into failure.
type guildSettingsFailStore struct {
	*store.Memory
	fail bool
}

func (s *guildSettingsFailStore) GuildSettings(ctx context.Context, guildID string) (*league.GuildSettings, error) {
	if s.fail {
		return nil, errors.New("guild settings unavailable")
	}
	return s.Memory.GuildSettings(ctx, guildID)
}

func TestSettingsFailureAfterCreateCompensates(t *testing.T) {
	mem := store.NewMemory()
	st := &guildSettingsFailStore{Memory: mem}
	codec, err := pii.NewCodec(testKeyHex)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	notify := &fakeNotifier{}
	e := New(st, nil, notify, codec)
	e.SetClock(func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	signupN(t, e, "A", "B")
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	for _, uid := range []string{"u-A", "u-B"} {
		if _, err := e.Ready(ctx, uid); err != nil {
			t.Fatalf("Ready: %v", err)
		}
	}
	f, err := e.NextUnplayedFixtureBetween(ctx, "u-A", "u-B")
	if err != nil {
		t.Fatalf("NextUnplayedFixtureBetween: %v", err)
	}

	st.fail = true
	if _, err := e.CreateMatchForFixture(ctx, "g1", f.ID); err == nil {
		t.Fatalf("CreateMatchForFixture succeeded despite settings failure")
	}

	got, err := mem.FixtureByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("FixtureByID: %v", err)
	}
	if got.Status != league.FixtureUnplayed {
		t.Fatalf("fixture status = %s, want unplayed", got.Status)
	}
	for _, uid := range []string{"u-A", "u-B"} {
		open, err := mem.OpenMatchFor(ctx, uid)
		if err != nil {
			t.Fatalf("OpenMatchFor: %v", err)
		}
		if open != nil {
			t.Fatalf("%s still has an open match after compensation", uid)
		}
		in, err := mem.InQueue(ctx, uid)
		if err != nil {
			t.Fatalf("InQueue: %v", err)
		}
		if !in {
			t.Fatalf("%s not re-queued after compensation", uid)
		}
	}
}

func TestAnnounceFailureCompensates(t *testing.T) {
	e, mem, notify := newTestEngine(t)
	ctx := context.Background()
	signupN(t, e, "A", "B")
	if _, err := e.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	for _, uid := range []string{"u-A", "u-B"} {
		if _, err := e.Ready(ctx, uid); err != nil {
			t.Fatalf("Ready: %v", err)
		}
	}
	f, err := e.NextUnplayedFixtureBetween(ctx, "u-A", "u-B")
	if err != nil {
		t.Fatalf("NextUnplayedFixtureBetween: %v", err)
	}

	notify.failAnnounce = true
	if _, err := e.CreateMatchForFixture(ctx, "g1", f.ID); err == nil {
		t.Fatalf("CreateMatchForFixture succeeded despite announce failure")
	}

	got, err := mem.FixtureByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("FixtureByID: %v", err)
	}
	if got.Status != league.FixtureUnplayed {
		t.Fatalf("fixture status = %s, want unplayed", got.Status)
	}
	for _, uid := range []string{"u-A", "u-B"} {
		in, err := mem.InQueue(ctx, uid)
		if err != nil {
			t.Fatalf("InQueue: %v", err)
		}
		if !in {
			t.Fatalf("%s not re-queued after compensation", uid)
		}
	}
}
