package store

import (
	"context"
	"errors"
	"time"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness rule would be violated.
	ErrDuplicate = errors.New("already exists")
	// ErrFixtureClaimed is returned by ClaimFixture when the fixture is
	// no longer unplayed. Matchmaker retries on it.
	ErrFixtureClaimed = errors.New("fixture already claimed")
	// ErrOverrideOwned is returned when a second admin tries to arm an
	// override another admin holds.
	ErrOverrideOwned = errors.New("override armed by another admin")
)

// Store is the persistence surface for league state. Every method is
// scoped to the single configured league. Implementations: Postgres for
// production, Memory for tests.
type Store interface {
	// Tx runs fn against a transactional view of the store. fn returning
	// an error rolls every write back.
	Tx(ctx context.Context, fn func(Store) error) error

	// Players.
	CreatePlayer(ctx context.Context, p *league.Player) error
	PlayerByUserID(ctx context.Context, userID string) (*league.Player, error)
	PlayerByTag(ctx context.Context, tag string) (*league.Player, error)
	Players(ctx context.Context) ([]league.Player, error)
	ActivePlayers(ctx context.Context) ([]league.Player, error)
	CountPlayers(ctx context.Context) (int, error)
	SetPlayerStatus(ctx context.Context, userID string, status league.PlayerStatus) error
	UpdatePlayerNames(ctx context.Context, userID, username, displayName string) error

	// Attendance. RecordCheckin reports false when the player already
	// checked in on that date.
	RecordCheckin(ctx context.Context, userID, date string) (bool, error)
	CheckinDays(ctx context.Context, userID string) (int, error)
	CheckinsOn(ctx context.Context, date string) ([]string, error)

	// Fixtures.
	InsertFixtures(ctx context.Context, legs []league.PairLeg) (int, error)
	Fixtures(ctx context.Context) ([]league.Fixture, error)
	FixtureByID(ctx context.Context, id int64) (*league.Fixture, error)
	// UnplayedFixturesAmong returns unplayed fixtures whose both sides
	// are in userIDs. Pair selection happens in the matchmaker.
	UnplayedFixturesAmong(ctx context.Context, userIDs []string) ([]league.Fixture, error)
	// ClaimFixture flips unplayed to locked_in_match as a compare and
	// swap, failing with ErrFixtureClaimed on any other current status.
	ClaimFixture(ctx context.Context, id int64) error
	SetFixtureStatus(ctx context.Context, id int64, status league.FixtureStatus) error

	// Ready queue.
	Enqueue(ctx context.Context, userID string, at time.Time) error
	Dequeue(ctx context.Context, userID string) (bool, error)
	InQueue(ctx context.Context, userID string) (bool, error)
	Queue(ctx context.Context) ([]league.ReadyEntry, error)
	ClearQueue(ctx context.Context) error

	// Matches.
	CreateMatch(ctx context.Context, m *league.Match) error
	MatchByID(ctx context.Context, id int64) (*league.Match, error)
	MatchByMessage(ctx context.Context, channelID, messageID string) (*league.Match, error)
	OpenMatchFor(ctx context.Context, userID string) (*league.Match, error)
	OpenMatches(ctx context.Context) ([]league.Match, error)
	MatchesFor(ctx context.Context, userID string) ([]league.Match, error)
	SetMatchState(ctx context.Context, id int64, state league.MatchState, endedAt *time.Time) error
	SetMatchMessage(ctx context.Context, id int64, channelID, messageID string) error

	// Player reports. Winner and score arrive in separate steps, so
	// each upsert touches only its own column.
	UpsertReportWinner(ctx context.Context, matchID int64, reporter string, side league.WinnerSide) error
	UpsertReportScore(ctx context.Context, matchID int64, reporter string, code int) error
	Reports(ctx context.Context, matchID int64) (map[string]*league.MatchReport, error)
	ClearReports(ctx context.Context, matchID int64) error

	// Results. SaveResult upserts by match.
	SaveResult(ctx context.Context, r *league.Result) error
	ResultByMatch(ctx context.Context, matchID int64) (*league.Result, error)
	DeleteResult(ctx context.Context, matchID int64) error
	// ConfirmedResultsByFixture maps fixture ID to its confirmed result,
	// skipping voided matches.
	ConfirmedResultsByFixture(ctx context.Context) (map[int64]league.Result, error)

	// Admin overrides.
	Override(ctx context.Context, matchID int64) (*league.AdminOverride, error)
	ArmOverride(ctx context.Context, matchID int64, adminID string) error
	SetOverrideWinner(ctx context.Context, matchID int64, adminID string, side league.WinnerSide) error
	SetOverrideScore(ctx context.Context, matchID int64, adminID string, code int) error
	ClearOverride(ctx context.Context, matchID int64) error

	// Audit log.
	AppendAudit(ctx context.Context, e *league.AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]league.AuditEntry, error)

	// Settings.
	LeagueSettings(ctx context.Context) (*league.LeagueSettings, error)
	SaveLeagueSettings(ctx context.Context, s *league.LeagueSettings) error
	GuildSettings(ctx context.Context, guildID string) (*league.GuildSettings, error)
	SaveGuildSettings(ctx context.Context, s *league.GuildSettings) error

	// Admin roles. The empty guild scope is the wildcard: roles stored
	// under it grant admin in every guild, and AdminRoles folds them
	// into each guild's lookup.
	AdminRoles(ctx context.Context, guildID string) ([]string, error)
	AddAdminRole(ctx context.Context, guildID, roleID string) error
	RemoveAdminRole(ctx context.Context, guildID, roleID string) error

	// Staged resets. Checkins clears attendance only; League additionally
	// clears fixtures, matches, reports, results, overrides and the
	// queue; Everything also drops players.
	ResetCheckins(ctx context.Context, date string) error
	ResetLeague(ctx context.Context) error
	ResetEverything(ctx context.Context) error
}
