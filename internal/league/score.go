package league

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format is the match length: first-to-3 (BO5) or first-to-2 (BO3).
type Format string

const (
	FormatFT3 Format = "FT3"
	FormatFT2 Format = "FT2"
)

// ParseFormat normalizes a configured format, defaulting to FT3.
func ParseFormat(raw string) Format {
	if strings.EqualFold(strings.TrimSpace(raw), string(FormatFT2)) {
		return FormatFT2
	}
	return FormatFT3
}

// WinScore is the games a winner always has in this format.
func (f Format) WinScore() int {
	if f == FormatFT2 {
		return 2
	}
	return 3
}

// ScoreCodes is how many loser-score codes the format admits
// (code N means the loser took N games).
func (f Format) ScoreCodes() int {
	if f == FormatFT2 {
		return 2
	}
	return 3
}

// ScoreFromCode maps a score code to (winner, loser) games.
// FT3: 0→3-0, 1→3-1, 2→3-2. FT2: 0→2-0, 1→2-1.
func ScoreFromCode(f Format, code int) (win, lose int, ok bool) {
	if code < 0 || code >= f.ScoreCodes() {
		return 0, 0, false
	}
	return f.WinScore(), code, true
}

var scoreRe = regexp.MustCompile(`^(\d)\s*[-:]\s*(\d)$`)

// ParseScore accepts "3-1" or "3:1" style input for the format and
// returns the loser's games. The winner side must hold exactly the
// format's winning score and the loser strictly fewer.
func ParseScore(f Format, raw string) (loser int, ok bool) {
	m := scoreRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, false
	}
	w, _ := strconv.Atoi(m[1])
	l, _ := strconv.Atoi(m[2])
	if w != f.WinScore() || l < 0 || l >= f.WinScore() {
		return 0, false
	}
	return l, true
}

// ScoreHint is the user-facing permitted set, e.g. "3-0, 3-1, or 3-2".
func ScoreHint(f Format) string {
	if f == FormatFT2 {
		return "2-0 or 2-1"
	}
	return "3-0, 3-1, or 3-2"
}

// SidedScores orients a (winner, loser) pair onto the A/B axis.
func SidedScores(side WinnerSide, win, lose int) (scoreA, scoreB int) {
	if side == SideA {
		return win, lose
	}
	return lose, win
}

// FormatScore renders an A-oriented score pair.
func FormatScore(scoreA, scoreB int) string {
	return fmt.Sprintf("%d-%d", scoreA, scoreB)
}
