package league

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SetupInput carries the optional tournament-setup fields an admin may
// change; nil means "leave unchanged".
type SetupInput struct {
	MaxPlayers              *int
	TimeslotCount           *int
	TimeslotDurationMinutes *int
	TimeslotStartsRaw       *string
	TotalDays               *int
	MinimumShowupPercent    *float64
	StartDateRaw            *string
}

// SetupPatch is the validated, normalized update to apply.
type SetupPatch struct {
	MaxPlayers              *int
	TimeslotCount           *int
	TimeslotDurationMinutes *int
	TimeslotStarts          *string
	SeasonDays              *int
	EligibilityMinPercent   *float64
	StartDate               *string
}

// Empty reports whether no field was supplied at all.
func (p SetupPatch) Empty() bool {
	return p.MaxPlayers == nil && p.TimeslotCount == nil && p.TimeslotDurationMinutes == nil &&
		p.TimeslotStarts == nil && p.SeasonDays == nil && p.EligibilityMinPercent == nil && p.StartDate == nil
}

var timeSlotRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// ParseTimeSlotStarts validates a comma-separated HH:MM (24h) list,
// rejecting duplicates, and returns the zero-padded normalized times.
func ParseTimeSlotStarts(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("time slot starts cannot be empty")
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(text, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		m := timeSlotRe.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("invalid time format: %s. Use HH:MM (24h)", p)
		}
		t := fmt.Sprintf("%02s:%s", m[1], m[2])
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("duplicate time slot start found: %s", t)
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("provide at least one time slot start")
	}
	return out, nil
}

var startDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseStartDate validates a YYYY-MM-DD calendar date.
func ParseStartDate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("tournament start date cannot be empty")
	}
	if !startDateRe.MatchString(text) {
		return "", fmt.Errorf("tournament start date must be in YYYY-MM-DD format")
	}
	t, err := time.Parse("2006-01-02", text)
	if err != nil || t.Format("2006-01-02") != text {
		return "", fmt.Errorf("tournament start date is invalid")
	}
	return text, nil
}

// ValidateSetup checks every supplied field against the tournament
// bounds and returns the patch to persist. The first violation is
// returned as a user-facing error and nothing is applied.
func ValidateSetup(in SetupInput) (SetupPatch, error) {
	var out SetupPatch

	if in.MaxPlayers != nil {
		if *in.MaxPlayers < 2 || *in.MaxPlayers > 1024 {
			return SetupPatch{}, fmt.Errorf("no. of players must be an integer between 2 and 1024")
		}
		out.MaxPlayers = in.MaxPlayers
	}
	if in.TimeslotCount != nil {
		if *in.TimeslotCount < 1 || *in.TimeslotCount > 24 {
			return SetupPatch{}, fmt.Errorf("no. of timeslots must be an integer between 1 and 24")
		}
		out.TimeslotCount = in.TimeslotCount
	}
	if in.TimeslotDurationMinutes != nil {
		if *in.TimeslotDurationMinutes < 15 || *in.TimeslotDurationMinutes > 1440 {
			return SetupPatch{}, fmt.Errorf("timeslot duration must be an integer between 15 and 1440 minutes")
		}
		out.TimeslotDurationMinutes = in.TimeslotDurationMinutes
	}
	if in.TotalDays != nil {
		if *in.TotalDays < 1 || *in.TotalDays > 365 {
			return SetupPatch{}, fmt.Errorf("total tournament days must be an integer between 1 and 365")
		}
		out.SeasonDays = in.TotalDays
	}
	if in.MinimumShowupPercent != nil {
		pct := *in.MinimumShowupPercent
		if pct < 0 || pct > 100 {
			return SetupPatch{}, fmt.Errorf("minimum show up %% must be a number between 0 and 100")
		}
		frac := pct / 100
		out.EligibilityMinPercent = &frac
	}
	if in.TimeslotStartsRaw != nil {
		times, err := ParseTimeSlotStarts(*in.TimeslotStartsRaw)
		if err != nil {
			return SetupPatch{}, err
		}
		joined := strings.Join(times, ",")
		out.TimeslotStarts = &joined
	}
	if in.StartDateRaw != nil {
		date, err := ParseStartDate(*in.StartDateRaw)
		if err != nil {
			return SetupPatch{}, err
		}
		out.StartDate = &date
	}

	if out.TimeslotCount != nil && out.TimeslotStarts != nil {
		startsCount := len(strings.Split(*out.TimeslotStarts, ","))
		if startsCount != *out.TimeslotCount {
			return SetupPatch{}, fmt.Errorf("no. of timeslots (%d) must match start times count (%d)", *out.TimeslotCount, startsCount)
		}
	}
	return out, nil
}

// MergedSlotMismatch re-checks timeslot consistency after merging a
// patch onto current settings, since count and starts may be updated in
// separate commands.
func MergedSlotMismatch(count int, starts string) error {
	if starts == "" {
		return nil
	}
	n := len(strings.Split(starts, ","))
	if n != count {
		return fmt.Errorf("no. of timeslots (%d) must match start times count (%d)", count, n)
	}
	return nil
}
