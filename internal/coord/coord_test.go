package coord

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestStageAndConfirmReset(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	token, err := s.StageReset(ctx, ResetLeague, "admin1")
	if err != nil {
		t.Fatalf("StageReset: %v", err)
	}

	level, err := s.ConfirmReset(ctx, token, "admin1")
	if err != nil {
		t.Fatalf("ConfirmReset: %v", err)
	}
	if level != ResetLeague {
		t.Fatalf("level: %s", level)
	}

	// Token is single-use.
	if _, err := s.ConfirmReset(ctx, token, "admin1"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("reused token: %v", err)
	}
}

func TestConfirmResetWrongAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	token, err := s.StageReset(ctx, ResetCheckins, "admin1")
	if err != nil {
		t.Fatalf("StageReset: %v", err)
	}

	if _, err := s.ConfirmReset(ctx, token, "admin2"); !errors.Is(err, ErrNotRequester) {
		t.Fatalf("wrong admin: %v", err)
	}
	// The requester can still confirm afterwards.
	if _, err := s.ConfirmReset(ctx, token, "admin1"); err != nil {
		t.Fatalf("requester confirm after rejection: %v", err)
	}
}

func TestConfirmResetExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	token, err := s.StageReset(ctx, ResetEverything, "admin1")
	if err != nil {
		t.Fatalf("StageReset: %v", err)
	}

	mr.FastForward(5*time.Minute + time.Second)

	if _, err := s.ConfirmReset(ctx, token, "admin1"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expired token: %v", err)
	}
}

func TestParseResetLevel(t *testing.T) {
	if lvl, ok := ParseResetLevel(" League "); !ok || lvl != ResetLeague {
		t.Fatalf("league: %s %v", lvl, ok)
	}
	if _, ok := ParseResetLevel("all"); ok {
		t.Fatalf("unknown level accepted")
	}
}

func TestRematchVotes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	n, err := s.VoteRematch(ctx, "42", "u1")
	if err != nil || n != 1 {
		t.Fatalf("first vote: %d %v", n, err)
	}
	// Same voter twice still counts once.
	if n, _ = s.VoteRematch(ctx, "42", "u1"); n != 1 {
		t.Fatalf("duplicate vote: %d", n)
	}
	if n, _ = s.VoteRematch(ctx, "42", "u2"); n != 2 {
		t.Fatalf("second voter: %d", n)
	}

	voters, err := s.RematchVoters(ctx, "42")
	if err != nil || len(voters) != 2 {
		t.Fatalf("voters: %v %v", voters, err)
	}

	if err := s.ClearRematch(ctx, "42"); err != nil {
		t.Fatalf("ClearRematch: %v", err)
	}
	if voters, _ := s.RematchVoters(ctx, "42"); len(voters) != 0 {
		t.Fatalf("votes survived clear: %v", voters)
	}
}
