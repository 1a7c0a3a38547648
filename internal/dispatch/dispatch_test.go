package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/gateway"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/msgcat"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type recordedMessage struct {
	Channel string
	ID      string
	Content string
}

type fakePoster struct {
	mu    sync.Mutex
	posts []recordedMessage
	edits []recordedMessage
	dms   []recordedMessage
	next  int
}

func (p *fakePoster) PostMessage(ctx context.Context, channelID, content string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	id := fmt.Sprintf("msg-%d", p.next)
	p.posts = append(p.posts, recordedMessage{Channel: channelID, ID: id, Content: content})
	return id, nil
}

func (p *fakePoster) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, recordedMessage{Channel: channelID, ID: messageID, Content: content})
	return nil
}

func (p *fakePoster) SendDM(ctx context.Context, userID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms = append(p.dms, recordedMessage{Channel: userID, Content: content})
	return nil
}

func (p *fakePoster) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return nil
}

func (p *fakePoster) lastPost(t *testing.T) recordedMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.posts) == 0 {
		t.Fatalf("no messages posted")
	}
	return p.posts[len(p.posts)-1]
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *engine.Engine, *fakePoster) {
	t.Helper()
	mem := store.NewMemory()
	codec, err := pii.NewCodec(testKeyHex)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	poster := &fakePoster{}
	eng := engine.New(mem, nil, NewNotifier(poster, cat), codec)

	gs := &league.GuildSettings{
		GuildID:                   "g1",
		ResultsChannelID:          "chan-results",
		DisputeChannelID:          "chan-disputes",
		MatchFormat:               league.FormatFT3,
		AllowPublicPlayerCommands: true,
		TournamentName:            "Test League",
	}
	if err := eng.UpdateGuildSettings(context.Background(), "setup", gs); err != nil {
		t.Fatalf("UpdateGuildSettings: %v", err)
	}
	return New(eng, nil, cat, poster, 20), eng, poster
}

func command(user, name string, opts map[string]string) gateway.Event {
	return gateway.Event{
		Kind:      gateway.EventCommand,
		GuildID:   "g1",
		ChannelID: "chan-cmd",
		UserID:    user,
		Username:  strings.ToLower(user),
		Display:   user,
		Command:   name,
		Options:   opts,
	}
}

func signupEvent(user string) gateway.Event {
	return command(user, "signup", map[string]string{
		"real_name": user + " Example",
		"tag":       user,
		"email":     strings.ToLower(user) + "@example.com",
		"phone":     "+97455512345",
	})
}

func TestUnknownCommandReply(t *testing.T) {
	d, _, poster := newTestDispatcher(t)
	d.HandleEvent(context.Background(), command("u1", "frobnicate", nil))
	got := poster.lastPost(t)
	if !strings.Contains(got.Content, "Unknown command") {
		t.Fatalf("reply = %q, want unknown-command text", got.Content)
	}
}

func TestAdminGateRejectsPlayers(t *testing.T) {
	d, _, poster := newTestDispatcher(t)
	d.HandleEvent(context.Background(), command("u1", "force_result", map[string]string{"match": "1"}))
	got := poster.lastPost(t)
	if !strings.Contains(got.Content, "restricted to league admins") {
		t.Fatalf("reply = %q, want admin gate text", got.Content)
	}
}

func TestAdminGateAcceptsWhitelistedRole(t *testing.T) {
	d, eng, poster := newTestDispatcher(t)
	ctx := context.Background()
	if err := eng.AddAdminRole(ctx, "setup", "g1", "role-mod"); err != nil {
		t.Fatalf("AddAdminRole: %v", err)
	}
	ev := command("u1", "generate_fixtures", nil)
	ev.RoleIDs = []string{"role-mod"}
	d.HandleEvent(ctx, ev)
	got := poster.lastPost(t)
	if strings.Contains(got.Content, "restricted") {
		t.Fatalf("whitelisted role rejected: %q", got.Content)
	}
}

func TestAdminRoleAddAllScope(t *testing.T) {
	d, eng, poster := newTestDispatcher(t)
	ctx := context.Background()

	// Registering with scope=all lands in the wildcard scope, so the
	// role opens admin commands in guilds the registrar never touched.
	add := command("boss", "admin_role_add", map[string]string{"role": "role-wild", "scope": "all"})
	add.IsAdmin = true
	d.HandleEvent(ctx, add)
	got := poster.lastPost(t)
	if !strings.Contains(got.Content, "role-wild") {
		t.Fatalf("reply = %q, want role confirmation", got.Content)
	}

	ok, err := eng.IsAdmin(ctx, "g-other", false, []string{"role-wild"})
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !ok {
		t.Fatalf("wildcard role not honored outside the registering guild")
	}
}

func TestSignupCommand(t *testing.T) {
	d, _, poster := newTestDispatcher(t)
	d.HandleEvent(context.Background(), signupEvent("Kazuya"))
	got := poster.lastPost(t)
	if !strings.Contains(got.Content, "Welcome to Test League, Kazuya") {
		t.Fatalf("reply = %q, want signup welcome", got.Content)
	}

	// Second signup turns into the duplicate message, not an error.
	d.HandleEvent(context.Background(), signupEvent("Kazuya"))
	got = poster.lastPost(t)
	if !strings.Contains(got.Content, "already registered") {
		t.Fatalf("reply = %q, want duplicate text", got.Content)
	}
}

func TestSignupValidationReplies(t *testing.T) {
	d, _, poster := newTestDispatcher(t)
	ev := signupEvent("Jin")
	ev.Options["email"] = "nope"
	d.HandleEvent(context.Background(), ev)
	got := poster.lastPost(t)
	if !strings.Contains(got.Content, "email address") {
		t.Fatalf("reply = %q, want email validation text", got.Content)
	}
}

func TestMatchFlowThroughCommands(t *testing.T) {
	d, eng, poster := newTestDispatcher(t)
	ctx := context.Background()
	d.HandleEvent(ctx, signupEvent("A"))
	d.HandleEvent(ctx, signupEvent("B"))

	ev := command("admin", "generate_fixtures", nil)
	ev.IsAdmin = true
	d.HandleEvent(ctx, ev)
	if !strings.Contains(poster.lastPost(t).Content, "Generated 2 new fixture(s)") {
		t.Fatalf("fixtures reply = %q", poster.lastPost(t).Content)
	}

	ev = command("admin", "create_match", map[string]string{"player_a": "A", "player_b": "B"})
	ev.IsAdmin = true
	d.HandleEvent(ctx, ev)

	// The announcement went to the results channel.
	var announce recordedMessage
	for _, p := range poster.posts {
		if p.Channel == "chan-results" {
			announce = p
		}
	}
	if announce.ID == "" {
		t.Fatalf("no announcement in results channel")
	}
	if !strings.Contains(announce.Content, "Match #") {
		t.Fatalf("announcement = %q", announce.Content)
	}

	// Both players report through commands.
	m, err := eng.OpenMatch(ctx, "A")
	if err != nil || m == nil {
		t.Fatalf("OpenMatch: %v %v", m, err)
	}
	for _, user := range []string{"A", "B"} {
		d.HandleEvent(ctx, command(user, "report_winner", map[string]string{"side": "a"}))
		d.HandleEvent(ctx, command(user, "report_score", map[string]string{"score": "3-1"}))
	}

	got, err := eng.OpenMatch(ctx, "A")
	if err != nil {
		t.Fatalf("OpenMatch after reports: %v", err)
	}
	if got != nil {
		t.Fatalf("match still open after matching reports")
	}
	// The announcement was edited to the confirmed state.
	if len(poster.edits) == 0 {
		t.Fatalf("no message edits recorded")
	}
	last := poster.edits[len(poster.edits)-1]
	if !strings.Contains(last.Content, "Confirmed") {
		t.Fatalf("final edit = %q, want confirmed status", last.Content)
	}
}

func TestReactionReportsWinner(t *testing.T) {
	d, eng, poster := newTestDispatcher(t)
	ctx := context.Background()
	d.HandleEvent(ctx, signupEvent("A"))
	d.HandleEvent(ctx, signupEvent("B"))
	if _, err := eng.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	m, err := eng.CreateMatchBetween(ctx, "admin", "g1", "A", "B")
	if err != nil {
		t.Fatalf("CreateMatchBetween: %v", err)
	}

	react := gateway.Event{
		Kind:      gateway.EventReaction,
		GuildID:   "g1",
		ChannelID: m.ChannelID,
		MessageID: m.MessageID,
		UserID:    "A",
		Emoji:     "🇦",
	}
	d.HandleEvent(ctx, react)
	if !strings.Contains(poster.lastPost(t).Content, "Recorded your winner pick") {
		t.Fatalf("reaction reply = %q", poster.lastPost(t).Content)
	}

	// A spectator's reaction is ignored.
	react.UserID = "C"
	before := len(poster.posts)
	d.HandleEvent(ctx, react)
	if len(poster.posts) != before {
		t.Fatalf("spectator reaction produced a reply")
	}
}

func TestMyDataGoesToDM(t *testing.T) {
	d, _, poster := newTestDispatcher(t)
	ctx := context.Background()
	d.HandleEvent(ctx, signupEvent("Jin"))
	d.HandleEvent(ctx, command("Jin", "my_data", nil))

	if len(poster.dms) != 1 {
		t.Fatalf("dms = %d, want 1", len(poster.dms))
	}
	dm := poster.dms[0]
	if strings.Contains(dm.Content, "jin@example.com") {
		t.Fatalf("DM leaks unmasked email: %q", dm.Content)
	}
	if !strings.Contains(dm.Content, "@example.com") {
		t.Fatalf("DM missing masked email: %q", dm.Content)
	}
	if !strings.Contains(poster.lastPost(t).Content, "DMs") {
		t.Fatalf("channel reply = %q", poster.lastPost(t).Content)
	}
}

func TestStandingsView(t *testing.T) {
	d, eng, poster := newTestDispatcher(t)
	ctx := context.Background()
	d.HandleEvent(ctx, signupEvent("A"))
	d.HandleEvent(ctx, signupEvent("B"))
	if _, err := eng.GenerateFixtures(ctx, "admin"); err != nil {
		t.Fatalf("GenerateFixtures: %v", err)
	}
	m, err := eng.CreateMatchBetween(ctx, "admin", "g1", "A", "B")
	if err != nil {
		t.Fatalf("CreateMatchBetween: %v", err)
	}
	side := league.SideA
	if m.PlayerA != "A" {
		side = league.SideB
	}
	if _, err := eng.ForceResult(ctx, "admin", m.ID, side, "3-0", false); err != nil {
		t.Fatalf("ForceResult: %v", err)
	}

	d.HandleEvent(ctx, command("A", "standings", nil))
	got := poster.lastPost(t).Content
	if !strings.Contains(got, "Standings: Test League") {
		t.Fatalf("standings header missing: %q", got)
	}
	lines := strings.Split(got, "\n")
	var firstRow string
	for _, l := range lines {
		if strings.HasPrefix(l, "1 ") {
			firstRow = l
		}
	}
	if !strings.Contains(firstRow, "A") {
		t.Fatalf("winner not first in table: %q", got)
	}
}
