package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
)

const schema = `
CREATE TABLE IF NOT EXISTS leagues (
	league_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'Asia/Qatar',
	season_days INT NOT NULL DEFAULT 20,
	attendance_min_days INT NOT NULL DEFAULT 15,
	eligibility_min_percent DOUBLE PRECISION NOT NULL DEFAULT 0.75,
	max_players INT NOT NULL DEFAULT 64,
	timeslot_count INT NOT NULL DEFAULT 4,
	timeslot_duration_minutes INT NOT NULL DEFAULT 120,
	timeslot_starts TEXT NOT NULL DEFAULT '18:00,20:00,22:00,00:00',
	start_date TEXT NOT NULL DEFAULT '',
	points_win INT NOT NULL DEFAULT 2,
	points_loss INT NOT NULL DEFAULT 1,
	points_no_show INT NOT NULL DEFAULT 3,
	points_sweep_bonus INT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS players (
	player_id BIGSERIAL PRIMARY KEY,
	league_id BIGINT NOT NULL REFERENCES leagues(league_id),
	user_id TEXT NOT NULL UNIQUE,
	username_at_signup TEXT NOT NULL DEFAULT '',
	display_name_at_signup TEXT NOT NULL DEFAULT '',
	display_name_last_seen TEXT NOT NULL DEFAULT '',
	real_name_enc TEXT NOT NULL,
	tag TEXT NOT NULL,
	email_enc TEXT NOT NULL,
	phone_enc TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	signup_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS attendance (
	league_id BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	date TEXT NOT NULL,
	checked_in_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (league_id, user_id, date)
);

CREATE TABLE IF NOT EXISTS fixtures (
	fixture_id BIGSERIAL PRIMARY KEY,
	league_id BIGINT NOT NULL REFERENCES leagues(league_id),
	player_a TEXT NOT NULL,
	player_b TEXT NOT NULL,
	leg INT NOT NULL CHECK (leg IN (1, 2)),
	status TEXT NOT NULL DEFAULT 'unplayed',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	confirmed_at TIMESTAMPTZ,
	UNIQUE (league_id, player_a, player_b, leg)
);

CREATE TABLE IF NOT EXISTS ready_queue (
	league_id BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	since_ts TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (league_id, user_id)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id BIGSERIAL PRIMARY KEY,
	league_id BIGINT NOT NULL REFERENCES leagues(league_id),
	guild_id TEXT NOT NULL DEFAULT '',
	fixture_id BIGINT NOT NULL REFERENCES fixtures(fixture_id),
	player_a TEXT NOT NULL,
	player_b TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'pending',
	channel_id TEXT NOT NULL DEFAULT '',
	message_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_reports (
	match_id BIGINT NOT NULL REFERENCES matches(match_id),
	reporter TEXT NOT NULL,
	winner_side TEXT NOT NULL DEFAULT '',
	score_code INT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, reporter)
);

CREATE TABLE IF NOT EXISTS match_overrides (
	match_id BIGINT PRIMARY KEY REFERENCES matches(match_id),
	admin_id TEXT NOT NULL,
	winner_side TEXT NOT NULL DEFAULT '',
	score_code INT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	winner_selected BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS results (
	result_id BIGSERIAL PRIMARY KEY,
	match_id BIGINT NOT NULL UNIQUE REFERENCES matches(match_id),
	winner TEXT NOT NULL,
	score_a INT NOT NULL,
	score_b INT NOT NULL,
	is_forfeit BOOLEAN NOT NULL DEFAULT FALSE,
	reporter TEXT NOT NULL,
	reported_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	confirmer TEXT NOT NULL DEFAULT '',
	confirmed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS audit_log (
	audit_id BIGSERIAL PRIMARY KEY,
	league_id BIGINT NOT NULL,
	ts TIMESTAMPTZ NOT NULL DEFAULT now(),
	actor TEXT NOT NULL DEFAULT '',
	action_type TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id TEXT PRIMARY KEY,
	results_channel_id TEXT NOT NULL DEFAULT '',
	admin_channel_id TEXT NOT NULL DEFAULT '',
	standings_channel_id TEXT NOT NULL DEFAULT '',
	dispute_channel_id TEXT NOT NULL DEFAULT '',
	activity_channel_id TEXT NOT NULL DEFAULT '',
	match_format TEXT NOT NULL DEFAULT 'FT3',
	allow_public_player_commands BOOLEAN NOT NULL DEFAULT TRUE,
	tournament_name TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS admin_roles (
	league_id BIGINT NOT NULL,
	guild_id TEXT NOT NULL,
	role_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (league_id, guild_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_players_league_status ON players (league_id, status);
CREATE INDEX IF NOT EXISTS idx_attendance_league_date ON attendance (league_id, date);
CREATE INDEX IF NOT EXISTS idx_fixtures_league_status ON fixtures (league_id, status);
CREATE INDEX IF NOT EXISTS idx_matches_fixture_state ON matches (fixture_id, state);
CREATE INDEX IF NOT EXISTS idx_matches_players_state ON matches (league_id, player_a, player_b, state);
CREATE INDEX IF NOT EXISTS idx_audit_action_ts ON audit_log (league_id, action_type, ts);
`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on a PostgreSQL database. Inside Tx the
// same type runs against the transaction instead of the pool.
type Postgres struct {
	db *sql.DB
	q  querier
}

// NewPostgres opens the pool, verifies connectivity, applies the schema
// and seeds the single league row.
func NewPostgres(ctx context.Context, databaseURL, leagueName string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	s := &Postgres{db: db, q: db}
	if err := s.initSchema(ctx, leagueName); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Postgres) initSchema(ctx context.Context, leagueName string) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if strings.TrimSpace(leagueName) == "" {
		leagueName = "Tekken League"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leagues (league_id, name) VALUES ($1, $2) ON CONFLICT (league_id) DO NOTHING`,
		league.DefaultLeagueID, leagueName)
	return err
}

// Tx wraps fn in a serializable-enough transaction. Nested calls reuse
// the outer transaction.
func (s *Postgres) Tx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	inner := &Postgres{q: tx}
	if err := fn(inner); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// --- players ---

func (s *Postgres) CreatePlayer(ctx context.Context, p *league.Player) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO players (league_id, user_id, username_at_signup, display_name_at_signup,
			display_name_last_seen, real_name_enc, tag, email_enc, phone_enc, status, signup_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING player_id`,
		league.DefaultLeagueID, p.UserID, p.UsernameAtSignup, p.DisplayNameAtSignup,
		p.DisplayNameLastSeen, p.RealNameEnc, p.Tag, p.EmailEnc, p.PhoneEnc, p.Status, p.SignupAt,
	).Scan(&p.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err == nil {
		p.LeagueID = league.DefaultLeagueID
	}
	return err
}

const playerCols = `player_id, league_id, user_id, username_at_signup, display_name_at_signup,
	display_name_last_seen, real_name_enc, tag, email_enc, phone_enc, status, signup_at`

func scanPlayer(row interface{ Scan(...any) error }) (*league.Player, error) {
	var p league.Player
	err := row.Scan(&p.ID, &p.LeagueID, &p.UserID, &p.UsernameAtSignup, &p.DisplayNameAtSignup,
		&p.DisplayNameLastSeen, &p.RealNameEnc, &p.Tag, &p.EmailEnc, &p.PhoneEnc, &p.Status, &p.SignupAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) PlayerByUserID(ctx context.Context, userID string) (*league.Player, error) {
	return scanPlayer(s.q.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE league_id = $1 AND user_id = $2`,
		league.DefaultLeagueID, userID))
}

func (s *Postgres) PlayerByTag(ctx context.Context, tag string) (*league.Player, error) {
	return scanPlayer(s.q.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE league_id = $1 AND lower(tag) = lower($2) LIMIT 1`,
		league.DefaultLeagueID, tag))
}

func (s *Postgres) listPlayers(ctx context.Context, where string, args ...any) ([]league.Player, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE league_id = $1`+where+` ORDER BY player_id`,
		append([]any{league.DefaultLeagueID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []league.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Postgres) Players(ctx context.Context) ([]league.Player, error) {
	return s.listPlayers(ctx, "")
}

func (s *Postgres) ActivePlayers(ctx context.Context) ([]league.Player, error) {
	return s.listPlayers(ctx, " AND status = $2", league.StatusActive)
}

func (s *Postgres) CountPlayers(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM players WHERE league_id = $1 AND status <> $2`,
		league.DefaultLeagueID, league.StatusWithdrawn).Scan(&n)
	return n, err
}

func (s *Postgres) SetPlayerStatus(ctx context.Context, userID string, status league.PlayerStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE players SET status = $1 WHERE league_id = $2 AND user_id = $3`,
		status, league.DefaultLeagueID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Postgres) UpdatePlayerNames(ctx context.Context, userID, username, displayName string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE players SET display_name_last_seen = $1 WHERE league_id = $2 AND user_id = $3 AND $1 <> ''`,
		displayName, league.DefaultLeagueID, userID)
	if err != nil || username == "" {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`UPDATE players SET username_at_signup = $1
		 WHERE league_id = $2 AND user_id = $3 AND username_at_signup = ''`,
		username, league.DefaultLeagueID, userID)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- attendance ---

func (s *Postgres) RecordCheckin(ctx context.Context, userID, date string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO attendance (league_id, user_id, date) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		league.DefaultLeagueID, userID, date)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) CheckinDays(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM attendance WHERE league_id = $1 AND user_id = $2`,
		league.DefaultLeagueID, userID).Scan(&n)
	return n, err
}

func (s *Postgres) CheckinsOn(ctx context.Context, date string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT user_id FROM attendance WHERE league_id = $1 AND date = $2 ORDER BY checked_in_at`,
		league.DefaultLeagueID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- fixtures ---

func (s *Postgres) InsertFixtures(ctx context.Context, legs []league.PairLeg) (int, error) {
	inserted := 0
	for _, l := range legs {
		res, err := s.q.ExecContext(ctx,
			`INSERT INTO fixtures (league_id, player_a, player_b, leg)
			 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
			league.DefaultLeagueID, l.Low, l.High, l.Leg)
		if err != nil {
			return inserted, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

const fixtureCols = `fixture_id, league_id, player_a, player_b, leg, status, created_at, confirmed_at`

func scanFixture(row interface{ Scan(...any) error }) (*league.Fixture, error) {
	var f league.Fixture
	var confirmed sql.NullTime
	err := row.Scan(&f.ID, &f.LeagueID, &f.PlayerA, &f.PlayerB, &f.Leg, &f.Status, &f.CreatedAt, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if confirmed.Valid {
		f.ConfirmedAt = &confirmed.Time
	}
	return &f, nil
}

func (s *Postgres) listFixtures(ctx context.Context, where string, args ...any) ([]league.Fixture, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+fixtureCols+` FROM fixtures WHERE league_id = $1`+where+` ORDER BY fixture_id`,
		append([]any{league.DefaultLeagueID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []league.Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *Postgres) Fixtures(ctx context.Context) ([]league.Fixture, error) {
	return s.listFixtures(ctx, "")
}

func (s *Postgres) FixtureByID(ctx context.Context, id int64) (*league.Fixture, error) {
	return scanFixture(s.q.QueryRowContext(ctx,
		`SELECT `+fixtureCols+` FROM fixtures WHERE fixture_id = $1`, id))
}

func (s *Postgres) UnplayedFixturesAmong(ctx context.Context, userIDs []string) ([]league.Fixture, error) {
	if len(userIDs) < 2 {
		return nil, nil
	}
	return s.listFixtures(ctx,
		" AND status = $2 AND player_a = ANY($3) AND player_b = ANY($3)",
		league.FixtureUnplayed, pq.Array(userIDs))
}

func (s *Postgres) ClaimFixture(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE fixtures SET status = $1 WHERE fixture_id = $2 AND status = $3`,
		league.FixtureLocked, id, league.FixtureUnplayed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFixtureClaimed
	}
	return nil
}

func (s *Postgres) SetFixtureStatus(ctx context.Context, id int64, status league.FixtureStatus) error {
	var res sql.Result
	var err error
	if status == league.FixtureConfirmed {
		res, err = s.q.ExecContext(ctx,
			`UPDATE fixtures SET status = $1, confirmed_at = now() WHERE fixture_id = $2`, status, id)
	} else {
		res, err = s.q.ExecContext(ctx,
			`UPDATE fixtures SET status = $1, confirmed_at = NULL WHERE fixture_id = $2`, status, id)
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- ready queue ---

func (s *Postgres) Enqueue(ctx context.Context, userID string, at time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ready_queue (league_id, user_id, since_ts) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		league.DefaultLeagueID, userID, at)
	return err
}

func (s *Postgres) Dequeue(ctx context.Context, userID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM ready_queue WHERE league_id = $1 AND user_id = $2`,
		league.DefaultLeagueID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Postgres) InQueue(ctx context.Context, userID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM ready_queue WHERE league_id = $1 AND user_id = $2`,
		league.DefaultLeagueID, userID).Scan(&n)
	return n > 0, err
}

func (s *Postgres) Queue(ctx context.Context) ([]league.ReadyEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT user_id, since_ts FROM ready_queue WHERE league_id = $1 ORDER BY since_ts`,
		league.DefaultLeagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []league.ReadyEntry
	for rows.Next() {
		var e league.ReadyEntry
		if err := rows.Scan(&e.UserID, &e.Since); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) ClearQueue(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM ready_queue WHERE league_id = $1`, league.DefaultLeagueID)
	return err
}

// --- matches ---

const matchCols = `match_id, league_id, guild_id, fixture_id, player_a, player_b, state,
	channel_id, message_id, created_at, ended_at`

func (s *Postgres) CreateMatch(ctx context.Context, m *league.Match) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO matches (league_id, guild_id, fixture_id, player_a, player_b, state, channel_id, message_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING match_id, created_at`,
		league.DefaultLeagueID, m.GuildID, m.FixtureID, m.PlayerA, m.PlayerB, m.State, m.ChannelID, m.MessageID,
	).Scan(&m.ID, &m.CreatedAt)
	if err == nil {
		m.LeagueID = league.DefaultLeagueID
	}
	return err
}

func scanMatch(row interface{ Scan(...any) error }) (*league.Match, error) {
	var m league.Match
	var ended sql.NullTime
	err := row.Scan(&m.ID, &m.LeagueID, &m.GuildID, &m.FixtureID, &m.PlayerA, &m.PlayerB, &m.State,
		&m.ChannelID, &m.MessageID, &m.CreatedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		m.EndedAt = &ended.Time
	}
	return &m, nil
}

func (s *Postgres) MatchByID(ctx context.Context, id int64) (*league.Match, error) {
	return scanMatch(s.q.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE match_id = $1`, id))
}

func (s *Postgres) MatchByMessage(ctx context.Context, channelID, messageID string) (*league.Match, error) {
	return scanMatch(s.q.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE channel_id = $1 AND message_id = $2
		 ORDER BY match_id DESC LIMIT 1`, channelID, messageID))
}

func openStateList() any {
	states := league.OpenStates()
	out := make([]string, len(states))
	for i, st := range states {
		out[i] = string(st)
	}
	return pq.Array(out)
}

func (s *Postgres) OpenMatchFor(ctx context.Context, userID string) (*league.Match, error) {
	m, err := scanMatch(s.q.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches
		 WHERE league_id = $1 AND state = ANY($2) AND (player_a = $3 OR player_b = $3)
		 ORDER BY match_id LIMIT 1`,
		league.DefaultLeagueID, openStateList(), userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *Postgres) listMatches(ctx context.Context, where string, args ...any) ([]league.Match, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE league_id = $1`+where+` ORDER BY match_id`,
		append([]any{league.DefaultLeagueID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []league.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Postgres) OpenMatches(ctx context.Context) ([]league.Match, error) {
	return s.listMatches(ctx, " AND state = ANY($2)", openStateList())
}

func (s *Postgres) MatchesFor(ctx context.Context, userID string) ([]league.Match, error) {
	return s.listMatches(ctx, " AND (player_a = $2 OR player_b = $2)", userID)
}

func (s *Postgres) SetMatchState(ctx context.Context, id int64, state league.MatchState, endedAt *time.Time) error {
	var ended sql.NullTime
	if endedAt != nil {
		ended = sql.NullTime{Time: *endedAt, Valid: true}
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE matches SET state = $1, ended_at = $2 WHERE match_id = $3`, state, ended, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Postgres) SetMatchMessage(ctx context.Context, id int64, channelID, messageID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE matches SET channel_id = $1, message_id = $2 WHERE match_id = $3`,
		channelID, messageID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- reports ---

func (s *Postgres) UpsertReportWinner(ctx context.Context, matchID int64, reporter string, side league.WinnerSide) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO match_reports (match_id, reporter, winner_side, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (match_id, reporter) DO UPDATE SET winner_side = EXCLUDED.winner_side, updated_at = now()`,
		matchID, reporter, side)
	return err
}

func (s *Postgres) UpsertReportScore(ctx context.Context, matchID int64, reporter string, code int) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO match_reports (match_id, reporter, score_code, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (match_id, reporter) DO UPDATE SET score_code = EXCLUDED.score_code, updated_at = now()`,
		matchID, reporter, code)
	return err
}

func (s *Postgres) Reports(ctx context.Context, matchID int64) (map[string]*league.MatchReport, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT match_id, reporter, winner_side, score_code, updated_at FROM match_reports WHERE match_id = $1`,
		matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*league.MatchReport)
	for rows.Next() {
		var r league.MatchReport
		var code sql.NullInt64
		if err := rows.Scan(&r.MatchID, &r.Reporter, &r.WinnerSide, &code, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if code.Valid {
			c := int(code.Int64)
			r.ScoreCode = &c
		}
		out[r.Reporter] = &r
	}
	return out, rows.Err()
}

func (s *Postgres) ClearReports(ctx context.Context, matchID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM match_reports WHERE match_id = $1`, matchID)
	return err
}

// --- results ---

func (s *Postgres) SaveResult(ctx context.Context, r *league.Result) error {
	var confirmed sql.NullTime
	if r.ConfirmedAt != nil {
		confirmed = sql.NullTime{Time: *r.ConfirmedAt, Valid: true}
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO results (match_id, winner, score_a, score_b, is_forfeit, reporter, reported_at, confirmer, confirmed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (match_id) DO UPDATE SET
			winner = EXCLUDED.winner,
			score_a = EXCLUDED.score_a,
			score_b = EXCLUDED.score_b,
			is_forfeit = EXCLUDED.is_forfeit,
			reporter = EXCLUDED.reporter,
			reported_at = EXCLUDED.reported_at,
			confirmer = EXCLUDED.confirmer,
			confirmed_at = EXCLUDED.confirmed_at
		RETURNING result_id`,
		r.MatchID, r.Winner, r.ScoreA, r.ScoreB, r.Forfeit, r.Reporter, r.ReportedAt, r.Confirmer, confirmed,
	).Scan(&r.ID)
	return err
}

const resultCols = `result_id, match_id, winner, score_a, score_b, is_forfeit, reporter, reported_at, confirmer, confirmed_at`

func scanResult(row interface{ Scan(...any) error }) (*league.Result, error) {
	var r league.Result
	var confirmed sql.NullTime
	err := row.Scan(&r.ID, &r.MatchID, &r.Winner, &r.ScoreA, &r.ScoreB, &r.Forfeit,
		&r.Reporter, &r.ReportedAt, &r.Confirmer, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if confirmed.Valid {
		r.ConfirmedAt = &confirmed.Time
	}
	return &r, nil
}

func (s *Postgres) ResultByMatch(ctx context.Context, matchID int64) (*league.Result, error) {
	return scanResult(s.q.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM results WHERE match_id = $1`, matchID))
}

func (s *Postgres) DeleteResult(ctx context.Context, matchID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM results WHERE match_id = $1`, matchID)
	return err
}

func (s *Postgres) ConfirmedResultsByFixture(ctx context.Context) (map[int64]league.Result, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT m.fixture_id, `+prefixCols("r", resultCols)+`
		FROM results r
		JOIN matches m ON m.match_id = r.match_id
		WHERE m.league_id = $1 AND m.state = $2 AND r.confirmed_at IS NOT NULL
		ORDER BY r.confirmed_at`,
		league.DefaultLeagueID, league.MatchConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]league.Result)
	for rows.Next() {
		var fixtureID int64
		var r league.Result
		var confirmed sql.NullTime
		if err := rows.Scan(&fixtureID, &r.ID, &r.MatchID, &r.Winner, &r.ScoreA, &r.ScoreB,
			&r.Forfeit, &r.Reporter, &r.ReportedAt, &r.Confirmer, &confirmed); err != nil {
			return nil, err
		}
		if confirmed.Valid {
			r.ConfirmedAt = &confirmed.Time
		}
		out[fixtureID] = r
	}
	return out, rows.Err()
}

func prefixCols(prefix, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// --- overrides ---

func (s *Postgres) Override(ctx context.Context, matchID int64) (*league.AdminOverride, error) {
	var o league.AdminOverride
	var code sql.NullInt64
	err := s.q.QueryRowContext(ctx, `
		SELECT match_id, admin_id, winner_side, score_code, active, winner_selected, updated_at
		FROM match_overrides WHERE match_id = $1`, matchID,
	).Scan(&o.MatchID, &o.AdminID, &o.WinnerSide, &code, &o.Active, &o.WinnerSelected, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if code.Valid {
		c := int(code.Int64)
		o.ScoreCode = &c
	}
	return &o, nil
}

func (s *Postgres) ArmOverride(ctx context.Context, matchID int64, adminID string) error {
	// First admin wins; re-arming by the owner refreshes the row.
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO match_overrides (match_id, admin_id, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (match_id) DO UPDATE SET active = TRUE, updated_at = now()
		WHERE match_overrides.admin_id = EXCLUDED.admin_id`,
		matchID, adminID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOverrideOwned
	}
	return nil
}

func (s *Postgres) ownedOverrideExec(ctx context.Context, query string, matchID int64, adminID string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, append([]any{matchID, adminID}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOverrideOwned
	}
	return nil
}

func (s *Postgres) SetOverrideWinner(ctx context.Context, matchID int64, adminID string, side league.WinnerSide) error {
	return s.ownedOverrideExec(ctx, `
		UPDATE match_overrides SET winner_side = $3, winner_selected = TRUE, updated_at = now()
		WHERE match_id = $1 AND admin_id = $2 AND active`,
		matchID, adminID, side)
}

func (s *Postgres) SetOverrideScore(ctx context.Context, matchID int64, adminID string, code int) error {
	return s.ownedOverrideExec(ctx, `
		UPDATE match_overrides SET score_code = $3, updated_at = now()
		WHERE match_id = $1 AND admin_id = $2 AND active`,
		matchID, adminID, code)
}

func (s *Postgres) ClearOverride(ctx context.Context, matchID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM match_overrides WHERE match_id = $1`, matchID)
	return err
}

// --- audit ---

func (s *Postgres) AppendAudit(ctx context.Context, e *league.AuditEntry) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO audit_log (league_id, actor, action_type, payload_json)
		VALUES ($1, $2, $3, $4) RETURNING audit_id, ts`,
		league.DefaultLeagueID, e.Actor, e.Action, e.Payload,
	).Scan(&e.ID, &e.At)
}

func (s *Postgres) RecentAudit(ctx context.Context, limit int) ([]league.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT audit_id, league_id, ts, actor, action_type, payload_json
		FROM audit_log WHERE league_id = $1 ORDER BY audit_id DESC LIMIT $2`,
		league.DefaultLeagueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []league.AuditEntry
	for rows.Next() {
		var e league.AuditEntry
		if err := rows.Scan(&e.ID, &e.LeagueID, &e.At, &e.Actor, &e.Action, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- settings ---

func (s *Postgres) LeagueSettings(ctx context.Context) (*league.LeagueSettings, error) {
	var ls league.LeagueSettings
	err := s.q.QueryRowContext(ctx, `
		SELECT name, timezone, season_days, attendance_min_days, eligibility_min_percent,
			max_players, timeslot_count, timeslot_duration_minutes, timeslot_starts, start_date,
			points_win, points_loss, points_no_show, points_sweep_bonus
		FROM leagues WHERE league_id = $1`, league.DefaultLeagueID,
	).Scan(&ls.Name, &ls.Timezone, &ls.SeasonDays, &ls.AttendanceMinDays, &ls.EligibilityMinPercent,
		&ls.MaxPlayers, &ls.TimeslotCount, &ls.TimeslotDurationMinutes, &ls.TimeslotStarts, &ls.StartDate,
		&ls.Rules.Win, &ls.Rules.Loss, &ls.Rules.NoShow, &ls.Rules.SweepBonus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

func (s *Postgres) SaveLeagueSettings(ctx context.Context, ls *league.LeagueSettings) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE leagues SET name = $1, timezone = $2, season_days = $3, attendance_min_days = $4,
			eligibility_min_percent = $5, max_players = $6, timeslot_count = $7,
			timeslot_duration_minutes = $8, timeslot_starts = $9, start_date = $10,
			points_win = $11, points_loss = $12, points_no_show = $13, points_sweep_bonus = $14
		WHERE league_id = $15`,
		ls.Name, ls.Timezone, ls.SeasonDays, ls.AttendanceMinDays, ls.EligibilityMinPercent,
		ls.MaxPlayers, ls.TimeslotCount, ls.TimeslotDurationMinutes, ls.TimeslotStarts, ls.StartDate,
		ls.Rules.Win, ls.Rules.Loss, ls.Rules.NoShow, ls.Rules.SweepBonus, league.DefaultLeagueID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Postgres) GuildSettings(ctx context.Context, guildID string) (*league.GuildSettings, error) {
	var g league.GuildSettings
	var format string
	err := s.q.QueryRowContext(ctx, `
		SELECT guild_id, results_channel_id, admin_channel_id, standings_channel_id,
			dispute_channel_id, activity_channel_id, match_format, allow_public_player_commands,
			tournament_name, timezone
		FROM guild_settings WHERE guild_id = $1`, guildID,
	).Scan(&g.GuildID, &g.ResultsChannelID, &g.AdminChannelID, &g.StandingsChannelID,
		&g.DisputeChannelID, &g.ActivityChannelID, &format, &g.AllowPublicPlayerCommands,
		&g.TournamentName, &g.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		// Settings materialize with defaults on first touch.
		return &league.GuildSettings{
			GuildID:                   guildID,
			MatchFormat:               league.FormatFT3,
			AllowPublicPlayerCommands: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	g.MatchFormat = league.ParseFormat(format)
	return &g, nil
}

func (s *Postgres) SaveGuildSettings(ctx context.Context, g *league.GuildSettings) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, results_channel_id, admin_channel_id, standings_channel_id,
			dispute_channel_id, activity_channel_id, match_format, allow_public_player_commands,
			tournament_name, timezone, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		ON CONFLICT (guild_id) DO UPDATE SET
			results_channel_id = EXCLUDED.results_channel_id,
			admin_channel_id = EXCLUDED.admin_channel_id,
			standings_channel_id = EXCLUDED.standings_channel_id,
			dispute_channel_id = EXCLUDED.dispute_channel_id,
			activity_channel_id = EXCLUDED.activity_channel_id,
			match_format = EXCLUDED.match_format,
			allow_public_player_commands = EXCLUDED.allow_public_player_commands,
			tournament_name = EXCLUDED.tournament_name,
			timezone = EXCLUDED.timezone,
			updated_at = now()`,
		g.GuildID, g.ResultsChannelID, g.AdminChannelID, g.StandingsChannelID,
		g.DisputeChannelID, g.ActivityChannelID, g.MatchFormat, g.AllowPublicPlayerCommands,
		g.TournamentName, g.Timezone)
	return err
}

// --- admin roles ---

func (s *Postgres) AdminRoles(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT DISTINCT role_id FROM admin_roles WHERE league_id = $1 AND (guild_id = $2 OR guild_id = '') ORDER BY role_id`,
		league.DefaultLeagueID, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Postgres) AddAdminRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO admin_roles (league_id, guild_id, role_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		league.DefaultLeagueID, guildID, roleID)
	return err
}

func (s *Postgres) RemoveAdminRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM admin_roles WHERE league_id = $1 AND guild_id = $2 AND role_id = $3`,
		league.DefaultLeagueID, guildID, roleID)
	return err
}

// --- resets ---

func (s *Postgres) ResetCheckins(ctx context.Context, date string) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM attendance WHERE league_id = $1 AND date = $2`,
		league.DefaultLeagueID, date); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM ready_queue WHERE league_id = $1`, league.DefaultLeagueID)
	return err
}

func (s *Postgres) ResetLeague(ctx context.Context) error {
	stmts := []string{
		`DELETE FROM match_reports WHERE match_id IN (SELECT match_id FROM matches WHERE league_id = $1)`,
		`DELETE FROM match_overrides WHERE match_id IN (SELECT match_id FROM matches WHERE league_id = $1)`,
		`DELETE FROM results WHERE match_id IN (SELECT match_id FROM matches WHERE league_id = $1)`,
		`DELETE FROM matches WHERE league_id = $1`,
		`DELETE FROM fixtures WHERE league_id = $1`,
		`DELETE FROM ready_queue WHERE league_id = $1`,
		`DELETE FROM attendance WHERE league_id = $1`,
	}
	for _, q := range stmts {
		if _, err := s.q.ExecContext(ctx, q, league.DefaultLeagueID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) ResetEverything(ctx context.Context) error {
	if err := s.ResetLeague(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM players WHERE league_id = $1`, league.DefaultLeagueID)
	return err
}
