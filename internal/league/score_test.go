package league

import "testing"

func TestScoreFromCode(t *testing.T) {
	cases := []struct {
		format Format
		code   int
		win    int
		lose   int
		ok     bool
	}{
		{FormatFT3, 0, 3, 0, true},
		{FormatFT3, 1, 3, 1, true},
		{FormatFT3, 2, 3, 2, true},
		{FormatFT3, 3, 0, 0, false},
		{FormatFT2, 0, 2, 0, true},
		{FormatFT2, 1, 2, 1, true},
		{FormatFT2, 2, 0, 0, false},
		{FormatFT3, -1, 0, 0, false},
	}
	for _, c := range cases {
		win, lose, ok := ScoreFromCode(c.format, c.code)
		if win != c.win || lose != c.lose || ok != c.ok {
			t.Fatalf("ScoreFromCode(%s, %d) = (%d, %d, %v), want (%d, %d, %v)",
				c.format, c.code, win, lose, ok, c.win, c.lose, c.ok)
		}
	}
}

func TestParseScore(t *testing.T) {
	if l, ok := ParseScore(FormatFT3, "3-1"); !ok || l != 1 {
		t.Fatalf("3-1: got (%d, %v)", l, ok)
	}
	if l, ok := ParseScore(FormatFT3, " 3 : 0 "); !ok || l != 0 {
		t.Fatalf("3:0 with spaces: got (%d, %v)", l, ok)
	}
	if _, ok := ParseScore(FormatFT3, "3-3"); ok {
		t.Fatalf("3-3 must be rejected")
	}
	if _, ok := ParseScore(FormatFT3, "2-1"); ok {
		t.Fatalf("2-1 is not an FT3 scoreline")
	}
	if _, ok := ParseScore(FormatFT2, "2-1"); !ok {
		t.Fatalf("2-1 is a valid FT2 scoreline")
	}
	if _, ok := ParseScore(FormatFT2, "banana"); ok {
		t.Fatalf("garbage must be rejected")
	}
}

func TestParseFormat(t *testing.T) {
	if f := ParseFormat("ft2"); f != FormatFT2 {
		t.Fatalf("ft2: got %s", f)
	}
	if f := ParseFormat(""); f != FormatFT3 {
		t.Fatalf("default: got %s", f)
	}
	if f := ParseFormat("nonsense"); f != FormatFT3 {
		t.Fatalf("unknown: got %s", f)
	}
}

func TestSidedScores(t *testing.T) {
	if a, b := SidedScores(SideA, 3, 1); a != 3 || b != 1 {
		t.Fatalf("side A: %d-%d", a, b)
	}
	if a, b := SidedScores(SideB, 3, 1); a != 1 || b != 3 {
		t.Fatalf("side B: %d-%d", a, b)
	}
}
