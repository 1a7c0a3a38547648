package store

import (
	"context"
	"time"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

// Locking pass-throughs from Memory to memTx.

func (m *Memory) tx() *memTx { return &memTx{st: m.st} }

func (m *Memory) CreatePlayer(ctx context.Context, p *league.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CreatePlayer(ctx, p)
}

func (m *Memory) PlayerByUserID(ctx context.Context, userID string) (*league.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().PlayerByUserID(ctx, userID)
}

func (m *Memory) PlayerByTag(ctx context.Context, tag string) (*league.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().PlayerByTag(ctx, tag)
}

func (m *Memory) Players(ctx context.Context) ([]league.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Players(ctx)
}

func (m *Memory) ActivePlayers(ctx context.Context) ([]league.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ActivePlayers(ctx)
}

func (m *Memory) CountPlayers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CountPlayers(ctx)
}

func (m *Memory) SetPlayerStatus(ctx context.Context, userID string, status league.PlayerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetPlayerStatus(ctx, userID, status)
}

func (m *Memory) UpdatePlayerNames(ctx context.Context, userID, username, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().UpdatePlayerNames(ctx, userID, username, displayName)
}

func (m *Memory) RecordCheckin(ctx context.Context, userID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().RecordCheckin(ctx, userID, date)
}

func (m *Memory) CheckinDays(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CheckinDays(ctx, userID)
}

func (m *Memory) CheckinsOn(ctx context.Context, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CheckinsOn(ctx, date)
}

func (m *Memory) InsertFixtures(ctx context.Context, legs []league.PairLeg) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().InsertFixtures(ctx, legs)
}

func (m *Memory) Fixtures(ctx context.Context) ([]league.Fixture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Fixtures(ctx)
}

func (m *Memory) FixtureByID(ctx context.Context, id int64) (*league.Fixture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().FixtureByID(ctx, id)
}

func (m *Memory) UnplayedFixturesAmong(ctx context.Context, userIDs []string) ([]league.Fixture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().UnplayedFixturesAmong(ctx, userIDs)
}

func (m *Memory) ClaimFixture(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ClaimFixture(ctx, id)
}

func (m *Memory) SetFixtureStatus(ctx context.Context, id int64, status league.FixtureStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetFixtureStatus(ctx, id, status)
}

func (m *Memory) Enqueue(ctx context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Enqueue(ctx, userID, at)
}

func (m *Memory) Dequeue(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Dequeue(ctx, userID)
}

func (m *Memory) InQueue(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().InQueue(ctx, userID)
}

func (m *Memory) Queue(ctx context.Context) ([]league.ReadyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Queue(ctx)
}

func (m *Memory) ClearQueue(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ClearQueue(ctx)
}

func (m *Memory) CreateMatch(ctx context.Context, mm *league.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CreateMatch(ctx, mm)
}

func (m *Memory) MatchByID(ctx context.Context, id int64) (*league.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().MatchByID(ctx, id)
}

func (m *Memory) MatchByMessage(ctx context.Context, channelID, messageID string) (*league.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().MatchByMessage(ctx, channelID, messageID)
}

func (m *Memory) OpenMatchFor(ctx context.Context, userID string) (*league.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().OpenMatchFor(ctx, userID)
}

func (m *Memory) OpenMatches(ctx context.Context) ([]league.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().OpenMatches(ctx)
}

func (m *Memory) MatchesFor(ctx context.Context, userID string) ([]league.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().MatchesFor(ctx, userID)
}

func (m *Memory) SetMatchState(ctx context.Context, id int64, state league.MatchState, endedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetMatchState(ctx, id, state, endedAt)
}

func (m *Memory) SetMatchMessage(ctx context.Context, id int64, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetMatchMessage(ctx, id, channelID, messageID)
}

func (m *Memory) UpsertReportWinner(ctx context.Context, matchID int64, reporter string, side league.WinnerSide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().UpsertReportWinner(ctx, matchID, reporter, side)
}

func (m *Memory) UpsertReportScore(ctx context.Context, matchID int64, reporter string, code int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().UpsertReportScore(ctx, matchID, reporter, code)
}

func (m *Memory) Reports(ctx context.Context, matchID int64) (map[string]*league.MatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Reports(ctx, matchID)
}

func (m *Memory) ClearReports(ctx context.Context, matchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ClearReports(ctx, matchID)
}

func (m *Memory) SaveResult(ctx context.Context, r *league.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SaveResult(ctx, r)
}

func (m *Memory) ResultByMatch(ctx context.Context, matchID int64) (*league.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ResultByMatch(ctx, matchID)
}

func (m *Memory) DeleteResult(ctx context.Context, matchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().DeleteResult(ctx, matchID)
}

func (m *Memory) ConfirmedResultsByFixture(ctx context.Context) (map[int64]league.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ConfirmedResultsByFixture(ctx)
}

func (m *Memory) Override(ctx context.Context, matchID int64) (*league.AdminOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Override(ctx, matchID)
}

func (m *Memory) ArmOverride(ctx context.Context, matchID int64, adminID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ArmOverride(ctx, matchID, adminID)
}

func (m *Memory) SetOverrideWinner(ctx context.Context, matchID int64, adminID string, side league.WinnerSide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetOverrideWinner(ctx, matchID, adminID, side)
}

func (m *Memory) SetOverrideScore(ctx context.Context, matchID int64, adminID string, code int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetOverrideScore(ctx, matchID, adminID, code)
}

func (m *Memory) ClearOverride(ctx context.Context, matchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ClearOverride(ctx, matchID)
}

func (m *Memory) AppendAudit(ctx context.Context, e *league.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().AppendAudit(ctx, e)
}

func (m *Memory) RecentAudit(ctx context.Context, limit int) ([]league.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().RecentAudit(ctx, limit)
}

func (m *Memory) LeagueSettings(ctx context.Context) (*league.LeagueSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().LeagueSettings(ctx)
}

func (m *Memory) SaveLeagueSettings(ctx context.Context, s *league.LeagueSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SaveLeagueSettings(ctx, s)
}

func (m *Memory) GuildSettings(ctx context.Context, guildID string) (*league.GuildSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().GuildSettings(ctx, guildID)
}

func (m *Memory) SaveGuildSettings(ctx context.Context, g *league.GuildSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SaveGuildSettings(ctx, g)
}

func (m *Memory) AdminRoles(ctx context.Context, guildID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().AdminRoles(ctx, guildID)
}

func (m *Memory) AddAdminRole(ctx context.Context, guildID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().AddAdminRole(ctx, guildID, roleID)
}

func (m *Memory) RemoveAdminRole(ctx context.Context, guildID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().RemoveAdminRole(ctx, guildID, roleID)
}

func (m *Memory) ResetCheckins(ctx context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ResetCheckins(ctx, date)
}

func (m *Memory) ResetLeague(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ResetLeague(ctx)
}

func (m *Memory) ResetEverything(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ResetEverything(ctx)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*memTx)(nil)
	_ Store = (*Postgres)(nil)
)
