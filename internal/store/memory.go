package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

// Memory is an in-process Store used by tests. One mutex guards all
// state; Tx snapshots the state and restores it when fn fails, so
// rollback semantics match the SQL implementation.
type Memory struct {
	mu sync.Mutex
	st *memState
}

func NewMemory() *Memory {
	ls := league.LeagueSettings{
		Name:                    "Tekken League",
		Timezone:                "Asia/Qatar",
		SeasonDays:              20,
		AttendanceMinDays:       15,
		EligibilityMinPercent:   0.75,
		MaxPlayers:              64,
		TimeslotCount:           4,
		TimeslotDurationMinutes: 120,
		TimeslotStarts:          "18:00,20:00,22:00,00:00",
		Rules:                   league.DefaultRules(),
	}
	return &Memory{st: &memState{
		players:    make(map[string]*league.Player),
		attendance: make(map[string]map[string]time.Time),
		fixtures:   make(map[int64]*league.Fixture),
		queue:      make(map[string]time.Time),
		matches:    make(map[int64]*league.Match),
		reports:    make(map[int64]map[string]*league.MatchReport),
		results:    make(map[int64]*league.Result),
		overrides:  make(map[int64]*league.AdminOverride),
		guilds:     make(map[string]*league.GuildSettings),
		adminRoles: make(map[string]map[string]struct{}),
		settings:   ls,
		now:        time.Now,
	}}
}

// SetClock replaces the time source. Tests pin it for deterministic rows.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.now = now
}

func (m *Memory) Tx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(&memTx{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// memTx exposes the state without locking, for use inside Tx where the
// outer mutex is already held. Nested Tx reuses the same view.
type memTx struct{ st *memState }

func (t *memTx) Tx(ctx context.Context, fn func(Store) error) error { return fn(t) }

type memState struct {
	players       map[string]*league.Player
	nextPlayerID  int64
	attendance    map[string]map[string]time.Time
	fixtures      map[int64]*league.Fixture
	nextFixtureID int64
	queue         map[string]time.Time
	matches       map[int64]*league.Match
	nextMatchID   int64
	reports       map[int64]map[string]*league.MatchReport
	results       map[int64]*league.Result
	nextResultID  int64
	overrides     map[int64]*league.AdminOverride
	audit         []league.AuditEntry
	nextAuditID   int64
	settings      league.LeagueSettings
	guilds        map[string]*league.GuildSettings
	adminRoles    map[string]map[string]struct{}
	now           func() time.Time
}

func (s *memState) clone() *memState {
	c := &memState{
		players:       make(map[string]*league.Player, len(s.players)),
		nextPlayerID:  s.nextPlayerID,
		attendance:    make(map[string]map[string]time.Time, len(s.attendance)),
		fixtures:      make(map[int64]*league.Fixture, len(s.fixtures)),
		nextFixtureID: s.nextFixtureID,
		queue:         make(map[string]time.Time, len(s.queue)),
		matches:       make(map[int64]*league.Match, len(s.matches)),
		nextMatchID:   s.nextMatchID,
		reports:       make(map[int64]map[string]*league.MatchReport, len(s.reports)),
		results:       make(map[int64]*league.Result, len(s.results)),
		nextResultID:  s.nextResultID,
		overrides:     make(map[int64]*league.AdminOverride, len(s.overrides)),
		audit:         append([]league.AuditEntry(nil), s.audit...),
		nextAuditID:   s.nextAuditID,
		settings:      s.settings,
		guilds:        make(map[string]*league.GuildSettings, len(s.guilds)),
		adminRoles:    make(map[string]map[string]struct{}, len(s.adminRoles)),
		now:           s.now,
	}
	for k, v := range s.players {
		p := *v
		c.players[k] = &p
	}
	for k, days := range s.attendance {
		m := make(map[string]time.Time, len(days))
		for d, t := range days {
			m[d] = t
		}
		c.attendance[k] = m
	}
	for k, v := range s.fixtures {
		f := *v
		c.fixtures[k] = &f
	}
	for k, v := range s.queue {
		c.queue[k] = v
	}
	for k, v := range s.matches {
		mm := *v
		c.matches[k] = &mm
	}
	for k, reps := range s.reports {
		m := make(map[string]*league.MatchReport, len(reps))
		for who, r := range reps {
			rr := *r
			m[who] = &rr
		}
		c.reports[k] = m
	}
	for k, v := range s.results {
		r := *v
		c.results[k] = &r
	}
	for k, v := range s.overrides {
		o := *v
		c.overrides[k] = &o
	}
	for k, v := range s.guilds {
		g := *v
		c.guilds[k] = &g
	}
	for g, roles := range s.adminRoles {
		m := make(map[string]struct{}, len(roles))
		for r := range roles {
			m[r] = struct{}{}
		}
		c.adminRoles[g] = m
	}
	return c
}

// --- players ---

func (s *memState) createPlayer(p *league.Player) error {
	if _, ok := s.players[p.UserID]; ok {
		return ErrDuplicate
	}
	s.nextPlayerID++
	p.ID = s.nextPlayerID
	p.LeagueID = league.DefaultLeagueID
	cp := *p
	s.players[p.UserID] = &cp
	return nil
}

func (s *memState) playerByUserID(userID string) (*league.Player, error) {
	p, ok := s.players[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memState) playerByTag(tag string) (*league.Player, error) {
	for _, p := range s.players {
		if strings.EqualFold(p.Tag, tag) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memState) listPlayers(filter func(*league.Player) bool) []league.Player {
	out := make([]league.Player, 0, len(s.players))
	for _, p := range s.players {
		if filter == nil || filter(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- fixtures ---

func (s *memState) insertFixtures(legs []league.PairLeg) int {
	seen := make(map[string]struct{}, len(s.fixtures))
	for _, f := range s.fixtures {
		low, high := league.NormalizePair(f.PlayerA, f.PlayerB)
		seen[league.PairLeg{Low: low, High: high, Leg: f.Leg}.Key()] = struct{}{}
	}
	inserted := 0
	for _, l := range legs {
		if _, dup := seen[l.Key()]; dup {
			continue
		}
		seen[l.Key()] = struct{}{}
		s.nextFixtureID++
		s.fixtures[s.nextFixtureID] = &league.Fixture{
			ID:        s.nextFixtureID,
			LeagueID:  league.DefaultLeagueID,
			PlayerA:   l.Low,
			PlayerB:   l.High,
			Leg:       l.Leg,
			Status:    league.FixtureUnplayed,
			CreatedAt: s.now(),
		}
		inserted++
	}
	return inserted
}

func (s *memState) listFixtures(filter func(*league.Fixture) bool) []league.Fixture {
	out := make([]league.Fixture, 0, len(s.fixtures))
	for _, f := range s.fixtures {
		if filter == nil || filter(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- matches ---

func (s *memState) listMatches(filter func(*league.Match) bool) []league.Match {
	out := make([]league.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if filter == nil || filter(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Store method bodies live on memTx; Memory wraps each one with the
// mutex so direct calls and Tx bodies see the same serialization.

func (t *memTx) CreatePlayer(ctx context.Context, p *league.Player) error {
	return t.st.createPlayer(p)
}

func (t *memTx) PlayerByUserID(ctx context.Context, userID string) (*league.Player, error) {
	return t.st.playerByUserID(userID)
}

func (t *memTx) PlayerByTag(ctx context.Context, tag string) (*league.Player, error) {
	return t.st.playerByTag(tag)
}

func (t *memTx) Players(ctx context.Context) ([]league.Player, error) {
	return t.st.listPlayers(nil), nil
}

func (t *memTx) ActivePlayers(ctx context.Context) ([]league.Player, error) {
	return t.st.listPlayers(func(p *league.Player) bool { return p.Status == league.StatusActive }), nil
}

func (t *memTx) CountPlayers(ctx context.Context) (int, error) {
	n := 0
	for _, p := range t.st.players {
		if p.Status != league.StatusWithdrawn {
			n++
		}
	}
	return n, nil
}

func (t *memTx) SetPlayerStatus(ctx context.Context, userID string, status league.PlayerStatus) error {
	p, ok := t.st.players[userID]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (t *memTx) UpdatePlayerNames(ctx context.Context, userID, username, displayName string) error {
	p, ok := t.st.players[userID]
	if !ok {
		return nil
	}
	if displayName != "" {
		p.DisplayNameLastSeen = displayName
	}
	if username != "" && p.UsernameAtSignup == "" {
		p.UsernameAtSignup = username
	}
	return nil
}

func (t *memTx) RecordCheckin(ctx context.Context, userID, date string) (bool, error) {
	days := t.st.attendance[userID]
	if days == nil {
		days = make(map[string]time.Time)
		t.st.attendance[userID] = days
	}
	if _, ok := days[date]; ok {
		return false, nil
	}
	days[date] = t.st.now()
	return true, nil
}

func (t *memTx) CheckinDays(ctx context.Context, userID string) (int, error) {
	return len(t.st.attendance[userID]), nil
}

func (t *memTx) CheckinsOn(ctx context.Context, date string) ([]string, error) {
	type entry struct {
		id string
		at time.Time
	}
	var entries []entry
	for id, days := range t.st.attendance {
		if at, ok := days[date]; ok {
			entries = append(entries, entry{id, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].id < entries[j].id
		}
		return entries[i].at.Before(entries[j].at)
	})
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.id)
	}
	return out, nil
}

func (t *memTx) InsertFixtures(ctx context.Context, legs []league.PairLeg) (int, error) {
	return t.st.insertFixtures(legs), nil
}

func (t *memTx) Fixtures(ctx context.Context) ([]league.Fixture, error) {
	return t.st.listFixtures(nil), nil
}

func (t *memTx) FixtureByID(ctx context.Context, id int64) (*league.Fixture, error) {
	f, ok := t.st.fixtures[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (t *memTx) UnplayedFixturesAmong(ctx context.Context, userIDs []string) ([]league.Fixture, error) {
	set := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	return t.st.listFixtures(func(f *league.Fixture) bool {
		if f.Status != league.FixtureUnplayed {
			return false
		}
		_, a := set[f.PlayerA]
		_, b := set[f.PlayerB]
		return a && b
	}), nil
}

func (t *memTx) ClaimFixture(ctx context.Context, id int64) error {
	f, ok := t.st.fixtures[id]
	if !ok || f.Status != league.FixtureUnplayed {
		return ErrFixtureClaimed
	}
	f.Status = league.FixtureLocked
	return nil
}

func (t *memTx) SetFixtureStatus(ctx context.Context, id int64, status league.FixtureStatus) error {
	f, ok := t.st.fixtures[id]
	if !ok {
		return ErrNotFound
	}
	f.Status = status
	if status == league.FixtureConfirmed {
		at := t.st.now()
		f.ConfirmedAt = &at
	} else {
		f.ConfirmedAt = nil
	}
	return nil
}

func (t *memTx) Enqueue(ctx context.Context, userID string, at time.Time) error {
	if _, ok := t.st.queue[userID]; !ok {
		t.st.queue[userID] = at
	}
	return nil
}

func (t *memTx) Dequeue(ctx context.Context, userID string) (bool, error) {
	if _, ok := t.st.queue[userID]; !ok {
		return false, nil
	}
	delete(t.st.queue, userID)
	return true, nil
}

func (t *memTx) InQueue(ctx context.Context, userID string) (bool, error) {
	_, ok := t.st.queue[userID]
	return ok, nil
}

func (t *memTx) Queue(ctx context.Context) ([]league.ReadyEntry, error) {
	out := make([]league.ReadyEntry, 0, len(t.st.queue))
	for id, since := range t.st.queue {
		out = append(out, league.ReadyEntry{UserID: id, Since: since})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out, nil
}

func (t *memTx) ClearQueue(ctx context.Context) error {
	t.st.queue = make(map[string]time.Time)
	return nil
}

func (t *memTx) CreateMatch(ctx context.Context, m *league.Match) error {
	t.st.nextMatchID++
	m.ID = t.st.nextMatchID
	m.LeagueID = league.DefaultLeagueID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.st.now()
	}
	cp := *m
	t.st.matches[m.ID] = &cp
	return nil
}

func (t *memTx) MatchByID(ctx context.Context, id int64) (*league.Match, error) {
	m, ok := t.st.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (t *memTx) MatchByMessage(ctx context.Context, channelID, messageID string) (*league.Match, error) {
	found := t.st.listMatches(func(m *league.Match) bool {
		return m.ChannelID == channelID && m.MessageID == messageID
	})
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	cp := found[0]
	return &cp, nil
}

func (t *memTx) OpenMatchFor(ctx context.Context, userID string) (*league.Match, error) {
	open := t.st.listMatches(func(m *league.Match) bool {
		return m.State.Open() && m.Involves(userID)
	})
	if len(open) == 0 {
		return nil, nil
	}
	return &open[0], nil
}

func (t *memTx) OpenMatches(ctx context.Context) ([]league.Match, error) {
	return t.st.listMatches(func(m *league.Match) bool { return m.State.Open() }), nil
}

func (t *memTx) MatchesFor(ctx context.Context, userID string) ([]league.Match, error) {
	return t.st.listMatches(func(m *league.Match) bool { return m.Involves(userID) }), nil
}

func (t *memTx) SetMatchState(ctx context.Context, id int64, state league.MatchState, endedAt *time.Time) error {
	m, ok := t.st.matches[id]
	if !ok {
		return ErrNotFound
	}
	m.State = state
	m.EndedAt = endedAt
	return nil
}

func (t *memTx) SetMatchMessage(ctx context.Context, id int64, channelID, messageID string) error {
	m, ok := t.st.matches[id]
	if !ok {
		return ErrNotFound
	}
	m.ChannelID = channelID
	m.MessageID = messageID
	return nil
}

func (t *memTx) report(matchID int64, reporter string) *league.MatchReport {
	reps := t.st.reports[matchID]
	if reps == nil {
		reps = make(map[string]*league.MatchReport)
		t.st.reports[matchID] = reps
	}
	r := reps[reporter]
	if r == nil {
		r = &league.MatchReport{MatchID: matchID, Reporter: reporter}
		reps[reporter] = r
	}
	return r
}

func (t *memTx) UpsertReportWinner(ctx context.Context, matchID int64, reporter string, side league.WinnerSide) error {
	r := t.report(matchID, reporter)
	r.WinnerSide = side
	r.UpdatedAt = t.st.now()
	return nil
}

func (t *memTx) UpsertReportScore(ctx context.Context, matchID int64, reporter string, code int) error {
	r := t.report(matchID, reporter)
	c := code
	r.ScoreCode = &c
	r.UpdatedAt = t.st.now()
	return nil
}

func (t *memTx) Reports(ctx context.Context, matchID int64) (map[string]*league.MatchReport, error) {
	out := make(map[string]*league.MatchReport, len(t.st.reports[matchID]))
	for who, r := range t.st.reports[matchID] {
		cp := *r
		out[who] = &cp
	}
	return out, nil
}

func (t *memTx) ClearReports(ctx context.Context, matchID int64) error {
	delete(t.st.reports, matchID)
	return nil
}

func (t *memTx) SaveResult(ctx context.Context, r *league.Result) error {
	if prev, ok := t.st.results[r.MatchID]; ok {
		r.ID = prev.ID
	} else {
		t.st.nextResultID++
		r.ID = t.st.nextResultID
	}
	cp := *r
	t.st.results[r.MatchID] = &cp
	return nil
}

func (t *memTx) ResultByMatch(ctx context.Context, matchID int64) (*league.Result, error) {
	r, ok := t.st.results[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) DeleteResult(ctx context.Context, matchID int64) error {
	delete(t.st.results, matchID)
	return nil
}

func (t *memTx) ConfirmedResultsByFixture(ctx context.Context) (map[int64]league.Result, error) {
	out := make(map[int64]league.Result)
	for matchID, r := range t.st.results {
		if r.ConfirmedAt == nil {
			continue
		}
		m, ok := t.st.matches[matchID]
		if !ok || m.State != league.MatchConfirmed {
			continue
		}
		out[m.FixtureID] = *r
	}
	return out, nil
}

func (t *memTx) Override(ctx context.Context, matchID int64) (*league.AdminOverride, error) {
	o, ok := t.st.overrides[matchID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) ArmOverride(ctx context.Context, matchID int64, adminID string) error {
	if o, ok := t.st.overrides[matchID]; ok {
		if o.AdminID != adminID {
			return ErrOverrideOwned
		}
		o.Active = true
		o.UpdatedAt = t.st.now()
		return nil
	}
	t.st.overrides[matchID] = &league.AdminOverride{
		MatchID:   matchID,
		AdminID:   adminID,
		Active:    true,
		UpdatedAt: t.st.now(),
	}
	return nil
}

func (t *memTx) SetOverrideWinner(ctx context.Context, matchID int64, adminID string, side league.WinnerSide) error {
	o, ok := t.st.overrides[matchID]
	if !ok || o.AdminID != adminID || !o.Active {
		return ErrOverrideOwned
	}
	o.WinnerSide = side
	o.WinnerSelected = true
	o.UpdatedAt = t.st.now()
	return nil
}

func (t *memTx) SetOverrideScore(ctx context.Context, matchID int64, adminID string, code int) error {
	o, ok := t.st.overrides[matchID]
	if !ok || o.AdminID != adminID || !o.Active {
		return ErrOverrideOwned
	}
	c := code
	o.ScoreCode = &c
	o.UpdatedAt = t.st.now()
	return nil
}

func (t *memTx) ClearOverride(ctx context.Context, matchID int64) error {
	delete(t.st.overrides, matchID)
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, e *league.AuditEntry) error {
	t.st.nextAuditID++
	e.ID = t.st.nextAuditID
	e.LeagueID = league.DefaultLeagueID
	if e.At.IsZero() {
		e.At = t.st.now()
	}
	t.st.audit = append(t.st.audit, *e)
	return nil
}

func (t *memTx) RecentAudit(ctx context.Context, limit int) ([]league.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	n := len(t.st.audit)
	out := make([]league.AuditEntry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.st.audit[i])
	}
	return out, nil
}

func (t *memTx) LeagueSettings(ctx context.Context) (*league.LeagueSettings, error) {
	cp := t.st.settings
	return &cp, nil
}

func (t *memTx) SaveLeagueSettings(ctx context.Context, s *league.LeagueSettings) error {
	t.st.settings = *s
	return nil
}

func (t *memTx) GuildSettings(ctx context.Context, guildID string) (*league.GuildSettings, error) {
	if g, ok := t.st.guilds[guildID]; ok {
		cp := *g
		return &cp, nil
	}
	return &league.GuildSettings{
		GuildID:                   guildID,
		MatchFormat:               league.FormatFT3,
		AllowPublicPlayerCommands: true,
	}, nil
}

func (t *memTx) SaveGuildSettings(ctx context.Context, g *league.GuildSettings) error {
	cp := *g
	t.st.guilds[g.GuildID] = &cp
	return nil
}

func (t *memTx) AdminRoles(ctx context.Context, guildID string) ([]string, error) {
	merged := make(map[string]struct{})
	for r := range t.st.adminRoles[guildID] {
		merged[r] = struct{}{}
	}
	if guildID != "" {
		for r := range t.st.adminRoles[""] {
			merged[r] = struct{}{}
		}
	}
	out := make([]string, 0, len(merged))
	for r := range merged {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (t *memTx) AddAdminRole(ctx context.Context, guildID, roleID string) error {
	roles := t.st.adminRoles[guildID]
	if roles == nil {
		roles = make(map[string]struct{})
		t.st.adminRoles[guildID] = roles
	}
	roles[roleID] = struct{}{}
	return nil
}

func (t *memTx) RemoveAdminRole(ctx context.Context, guildID, roleID string) error {
	delete(t.st.adminRoles[guildID], roleID)
	return nil
}

func (t *memTx) ResetCheckins(ctx context.Context, date string) error {
	for _, days := range t.st.attendance {
		delete(days, date)
	}
	t.st.queue = make(map[string]time.Time)
	return nil
}

func (t *memTx) ResetLeague(ctx context.Context) error {
	t.st.fixtures = make(map[int64]*league.Fixture)
	t.st.matches = make(map[int64]*league.Match)
	t.st.reports = make(map[int64]map[string]*league.MatchReport)
	t.st.results = make(map[int64]*league.Result)
	t.st.overrides = make(map[int64]*league.AdminOverride)
	t.st.queue = make(map[string]time.Time)
	t.st.attendance = make(map[string]map[string]time.Time)
	return nil
}

func (t *memTx) ResetEverything(ctx context.Context) error {
	_ = t.ResetLeague(ctx)
	t.st.players = make(map[string]*league.Player)
	return nil
}
