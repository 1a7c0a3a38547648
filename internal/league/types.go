package league

import "time"

// DefaultLeagueID scopes every row. The column exists for future
// multi-tenancy but a deployment runs exactly one league.
const DefaultLeagueID = 1

// PlayerStatus is a player's standing in the league roster.
type PlayerStatus string

const (
	StatusActive       PlayerStatus = "active"
	StatusDisqualified PlayerStatus = "disqualified"
	StatusWithdrawn    PlayerStatus = "withdrawn"
)

// Player is a registered league participant. Contact fields hold the
// encrypted wire form produced by the profile codec; the engine never
// sees plaintext outside signup and the owner's own profile query.
type Player struct {
	ID                  int64
	LeagueID            int64
	UserID              string
	UsernameAtSignup    string
	DisplayNameAtSignup string
	DisplayNameLastSeen string
	RealNameEnc         string
	Tag                 string
	EmailEnc            string
	PhoneEnc            string
	Status              PlayerStatus
	SignupAt            time.Time
}

// DisplayName prefers the freshest name we have seen.
func (p *Player) DisplayName() string {
	if p.DisplayNameLastSeen != "" {
		return p.DisplayNameLastSeen
	}
	return p.Tag
}

// FixtureStatus is the lifecycle of a required pairing.
type FixtureStatus string

const (
	FixtureUnplayed  FixtureStatus = "unplayed"
	FixtureLocked    FixtureStatus = "locked_in_match"
	FixtureConfirmed FixtureStatus = "confirmed"
)

// Fixture is one leg of a double round-robin pairing. At most one row
// ever exists per unordered pair + leg, across full history.
type Fixture struct {
	ID          int64
	LeagueID    int64
	PlayerA     string
	PlayerB     string
	Leg         int
	Status      FixtureStatus
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// Involves reports whether userID is one of the fixture's sides.
func (f *Fixture) Involves(userID string) bool {
	return f.PlayerA == userID || f.PlayerB == userID
}

// Opponent returns the other side, or "" when userID is not in the fixture.
func (f *Fixture) Opponent(userID string) string {
	switch userID {
	case f.PlayerA:
		return f.PlayerB
	case f.PlayerB:
		return f.PlayerA
	}
	return ""
}

// MatchState is the closed set of match lifecycle states.
type MatchState string

const (
	MatchPending   MatchState = "pending"
	MatchReported  MatchState = "reported"
	MatchConfirmed MatchState = "confirmed"
	MatchDisputed  MatchState = "disputed"
	MatchCancelled MatchState = "cancelled"
)

// Open reports whether the state blocks ready-queue re-entry and
// matchmaker selection. Disputed counts as open: the fixture is still
// locked and pairing either player again would double-book them.
func (s MatchState) Open() bool {
	switch s {
	case MatchPending, MatchReported, MatchDisputed:
		return true
	}
	return false
}

// Terminal reports whether no further player input can change the state.
func (s MatchState) Terminal() bool {
	return s == MatchConfirmed || s == MatchCancelled
}

// OpenStates is the canonical open set, in a stable order for SQL IN lists.
func OpenStates() []MatchState {
	return []MatchState{MatchPending, MatchReported, MatchDisputed}
}

// Match is a live instance of a fixture. Player order A/B is inherited
// from the fixture and fixed for the life of the match.
type Match struct {
	ID        int64
	LeagueID  int64
	GuildID   string
	FixtureID int64
	PlayerA   string
	PlayerB   string
	State     MatchState
	ChannelID string
	MessageID string
	CreatedAt time.Time
	EndedAt   *time.Time
}

func (m *Match) Involves(userID string) bool {
	return m.PlayerA == userID || m.PlayerB == userID
}

func (m *Match) Opponent(userID string) string {
	switch userID {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	}
	return ""
}

// Side returns which side userID plays, or "" for outsiders.
func (m *Match) Side(userID string) WinnerSide {
	switch userID {
	case m.PlayerA:
		return SideA
	case m.PlayerB:
		return SideB
	}
	return ""
}

// WinnerSide identifies a match side in reports and overrides.
type WinnerSide string

const (
	SideA WinnerSide = "A"
	SideB WinnerSide = "B"
)

// MatchReport is one player's current belief about the outcome. Fields
// fill in independently; a report is only usable once both are set.
type MatchReport struct {
	MatchID    int64
	Reporter   string
	WinnerSide WinnerSide // "" until chosen
	ScoreCode  *int       // nil until chosen
	UpdatedAt  time.Time
}

// Complete reports whether both winner side and score code are present.
func (r *MatchReport) Complete() bool {
	return r != nil && r.WinnerSide != "" && r.ScoreCode != nil
}

// Partial reports whether any field has been supplied at all.
func (r *MatchReport) Partial() bool {
	return r != nil && (r.WinnerSide != "" || r.ScoreCode != nil)
}

// Result is the single current outcome of a match. A confirmed result is
// immutable to players; only an explicit admin void removes it.
type Result struct {
	ID          int64
	MatchID     int64
	Winner      string
	ScoreA      int
	ScoreB      int
	Forfeit     bool
	Reporter    string
	ReportedAt  time.Time
	Confirmer   string
	ConfirmedAt *time.Time
}

func (r *Result) Confirmed() bool { return r != nil && r.ConfirmedAt != nil }

// AdminOverride supersedes player self-reporting for one match. The
// first admin to arm it owns it exclusively until cleared.
type AdminOverride struct {
	MatchID        int64
	AdminID        string
	WinnerSide     WinnerSide
	ScoreCode      *int
	Active         bool
	WinnerSelected bool
	UpdatedAt      time.Time
}

// Decided reports whether the override is armed and carries a complete
// decision, i.e. it must take precedence in reconciliation.
func (o *AdminOverride) Decided() bool {
	return o != nil && o.Active && o.WinnerSelected && o.WinnerSide != "" && o.ScoreCode != nil
}

// ReadyEntry is one player waiting in the matchmaking pool.
type ReadyEntry struct {
	UserID string
	Since  time.Time
}

// AuditEntry is an append-only record of a state-changing action.
type AuditEntry struct {
	ID       int64
	LeagueID int64
	At       time.Time
	Actor    string
	Action   string
	Payload  string
}

// LeagueSettings is the per-league configuration row.
type LeagueSettings struct {
	Name                    string
	Timezone                string
	SeasonDays              int
	AttendanceMinDays       int
	EligibilityMinPercent   float64
	MaxPlayers              int
	TimeslotCount           int
	TimeslotDurationMinutes int
	TimeslotStarts          string
	StartDate               string
	Rules                   PointRules
}

// GuildSettings binds the league to one guild's channels and options.
type GuildSettings struct {
	GuildID                   string
	ResultsChannelID          string
	AdminChannelID            string
	StandingsChannelID        string
	DisputeChannelID          string
	ActivityChannelID         string
	MatchFormat               Format
	AllowPublicPlayerCommands bool
	TournamentName            string
	Timezone                  string
}

// DisputeChannel picks where dispute notifications go.
func (g *GuildSettings) DisputeChannel() string {
	if g.DisputeChannelID != "" {
		return g.DisputeChannelID
	}
	return g.AdminChannelID
}

// ActivityChannel picks where activity notifications go.
func (g *GuildSettings) ActivityChannel() string {
	if g.ActivityChannelID != "" {
		return g.ActivityChannelID
	}
	return g.AdminChannelID
}

// Today formats now as YYYY-MM-DD in the league timezone. An unknown
// timezone falls back to UTC rather than failing a check-in.
func Today(tz string, now time.Time) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}
