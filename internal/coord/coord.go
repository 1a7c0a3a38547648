package coord

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ttlReset   = 5 * time.Minute
	ttlRematch = 10 * time.Minute
)

var (
	// ErrNoPending is returned when a confirmation token does not
	// correspond to a live staged action.
	ErrNoPending = errors.New("no pending confirmation")
	// ErrNotRequester is returned when someone other than the admin who
	// staged a reset tries to confirm it.
	ErrNotRequester = errors.New("confirmation belongs to another admin")
)

// ResetLevel names the staged destructive actions.
type ResetLevel string

const (
	ResetCheckins   ResetLevel = "checkins"
	ResetLeague     ResetLevel = "league"
	ResetEverything ResetLevel = "everything"
)

// ParseResetLevel rejects anything outside the closed set.
func ParseResetLevel(raw string) (ResetLevel, bool) {
	switch ResetLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case ResetCheckins:
		return ResetCheckins, true
	case ResetLeague:
		return ResetLeague, true
	case ResetEverything:
		return ResetEverything, true
	}
	return "", false
}

type pendingReset struct {
	Level     ResetLevel `json:"level"`
	Requester string     `json:"requester"`
	StagedAt  time.Time  `json:"staged_at"`
}

// Store holds short-lived cross-process coordination state: staged
// reset confirmations and rematch votes. Everything expires on its own,
// so a crashed process never wedges a confirmation.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyReset(token string) string  { return "league:reset:" + strings.TrimSpace(token) }
func (s *Store) keyRematch(matchID string) string {
	return "league:rematch:" + strings.TrimSpace(matchID)
}

// StageReset records a pending destructive reset and returns the
// one-time token the requester must echo back within the window.
func (s *Store) StageReset(ctx context.Context, level ResetLevel, requester string) (string, error) {
	token := uuid.NewString()
	raw, err := json.Marshal(pendingReset{Level: level, Requester: requester, StagedAt: time.Now()})
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.keyReset(token), raw, ttlReset).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmReset consumes the token and returns the staged level. Only
// the admin who staged it may confirm; anyone else leaves the token
// intact for the requester.
func (s *Store) ConfirmReset(ctx context.Context, token, requester string) (ResetLevel, error) {
	raw, err := s.rdb.Get(ctx, s.keyReset(token)).Bytes()
	if err == redis.Nil {
		return "", ErrNoPending
	}
	if err != nil {
		return "", err
	}
	var p pendingReset
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	if p.Requester != requester {
		return "", ErrNotRequester
	}
	if err := s.rdb.Del(ctx, s.keyReset(token)).Err(); err != nil {
		return "", err
	}
	return p.Level, nil
}

// CancelReset drops a staged reset early.
func (s *Store) CancelReset(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, s.keyReset(token)).Err()
}

// VoteRematch records one player's rematch vote on a finished match and
// reports how many distinct voters the match now has.
func (s *Store) VoteRematch(ctx context.Context, matchID, userID string) (int64, error) {
	key := s.keyRematch(matchID)
	if err := s.rdb.SAdd(ctx, key, userID).Err(); err != nil {
		return 0, err
	}
	if err := s.rdb.Expire(ctx, key, ttlRematch).Err(); err != nil {
		return 0, err
	}
	return s.rdb.SCard(ctx, key).Result()
}

// RematchVoters lists who has voted so far.
func (s *Store) RematchVoters(ctx context.Context, matchID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyRematch(matchID)).Result()
}

// ClearRematch removes the vote set once a rematch is granted or the
// match is reopened.
func (s *Store) ClearRematch(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, s.keyRematch(matchID)).Err()
}
