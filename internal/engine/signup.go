package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// SignupInput carries the raw signup form. Contact details are
// plaintext here and encrypted before they touch the store.
type SignupInput struct {
	UserID      string
	Username    string
	DisplayName string
	RealName    string
	Tag         string
	Email       string
	Phone       string
}

// Signup registers a new player. The player cap counts everyone who has
// not withdrawn, so disqualified players keep their slot.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*league.Player, error) {
	in.Tag = strings.TrimSpace(in.Tag)
	in.RealName = strings.TrimSpace(in.RealName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if !pii.ValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if !pii.ValidPhone(in.Phone) {
		return nil, ErrInvalidPhone
	}
	if in.Tag == "" {
		in.Tag = in.DisplayName
	}

	realEnc, err := e.codec.Encrypt(in.RealName)
	if err != nil {
		return nil, err
	}
	emailEnc, err := e.codec.Encrypt(in.Email)
	if err != nil {
		return nil, err
	}
	phoneEnc, err := e.codec.Encrypt(in.Phone)
	if err != nil {
		return nil, err
	}

	p := &league.Player{
		UserID:              in.UserID,
		UsernameAtSignup:    in.Username,
		DisplayNameAtSignup: in.DisplayName,
		DisplayNameLastSeen: in.DisplayName,
		RealNameEnc:         realEnc,
		Tag:                 in.Tag,
		EmailEnc:            emailEnc,
		PhoneEnc:            phoneEnc,
		Status:              league.StatusActive,
		SignupAt:            e.now(),
	}

	err = e.store.Tx(ctx, func(s store.Store) error {
		ls, err := s.LeagueSettings(ctx)
		if err != nil {
			return err
		}
		count, err := s.CountPlayers(ctx)
		if err != nil {
			return err
		}
		if count >= ls.MaxPlayers {
			return ErrLeagueFull
		}
		if err := s.CreatePlayer(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrDuplicateSignup
			}
			return err
		}
		e.audit(ctx, s, in.UserID, "player_signup", map[string]any{"tag": in.Tag})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Withdraw removes a player from play. Their already-confirmed results
// stand; future fixtures stay in the table but the matchmaker only ever
// pairs active players.
func (e *Engine) Withdraw(ctx context.Context, userID string) error {
	return e.store.Tx(ctx, func(s store.Store) error {
		if _, err := s.PlayerByUserID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotRegistered
			}
			return err
		}
		if _, err := s.Dequeue(ctx, userID); err != nil {
			return err
		}
		if err := s.SetPlayerStatus(ctx, userID, league.StatusWithdrawn); err != nil {
			return err
		}
		e.audit(ctx, s, userID, "player_withdraw", nil)
		return nil
	})
}

// TouchPlayerNames refreshes the last-seen display name from an inbound
// event, best effort.
func (e *Engine) TouchPlayerNames(ctx context.Context, userID, username, displayName string) {
	_ = e.store.UpdatePlayerNames(ctx, userID, username, displayName)
}
