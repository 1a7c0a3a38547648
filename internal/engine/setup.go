package engine

import (
	"context"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// ApplySetup validates and applies a partial tournament-setup update,
// returning the merged settings. Slot count and slot starts are
// cross-checked against each other after the merge, so changing one
// without the other still has to stay consistent.
func (e *Engine) ApplySetup(ctx context.Context, adminID string, in league.SetupInput) (*league.LeagueSettings, error) {
	patch, err := league.ValidateSetup(in)
	if err != nil {
		return nil, err
	}

	var merged *league.LeagueSettings
	err = e.store.Tx(ctx, func(s store.Store) error {
		ls, err := s.LeagueSettings(ctx)
		if err != nil {
			return err
		}
		if patch.MaxPlayers != nil {
			ls.MaxPlayers = *patch.MaxPlayers
		}
		if patch.TimeslotCount != nil {
			ls.TimeslotCount = *patch.TimeslotCount
		}
		if patch.TimeslotDurationMinutes != nil {
			ls.TimeslotDurationMinutes = *patch.TimeslotDurationMinutes
		}
		if patch.TimeslotStarts != nil {
			ls.TimeslotStarts = *patch.TimeslotStarts
		}
		if patch.SeasonDays != nil {
			ls.SeasonDays = *patch.SeasonDays
		}
		if patch.EligibilityMinPercent != nil {
			ls.EligibilityMinPercent = *patch.EligibilityMinPercent
		}
		if patch.StartDate != nil {
			ls.StartDate = *patch.StartDate
		}
		if err := league.MergedSlotMismatch(ls.TimeslotCount, ls.TimeslotStarts); err != nil {
			return err
		}
		if err := s.SaveLeagueSettings(ctx, ls); err != nil {
			return err
		}
		merged = ls
		e.audit(ctx, s, adminID, "setup_updated", patch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// SetPointRules replaces the scoring scheme, normalizing out-of-range
// values to the defaults.
func (e *Engine) SetPointRules(ctx context.Context, adminID string, rules league.PointRules) (league.PointRules, error) {
	rules = rules.Normalize()
	err := e.store.Tx(ctx, func(s store.Store) error {
		ls, err := s.LeagueSettings(ctx)
		if err != nil {
			return err
		}
		ls.Rules = rules
		if err := s.SaveLeagueSettings(ctx, ls); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "point_rules_updated", rules)
		return nil
	})
	return rules, err
}

// UpdateGuildSettings saves one guild's channel bindings and options.
func (e *Engine) UpdateGuildSettings(ctx context.Context, adminID string, gs *league.GuildSettings) error {
	return e.store.Tx(ctx, func(s store.Store) error {
		if err := s.SaveGuildSettings(ctx, gs); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "guild_settings_updated", map[string]any{"guildId": gs.GuildID})
		return nil
	})
}

// GuildConfig exposes the guild's merged settings to the dispatch layer.
func (e *Engine) GuildConfig(ctx context.Context, guildID string) (*league.GuildSettings, error) {
	_, gs, err := e.settings(ctx, guildID)
	return gs, err
}

// LeagueConfig exposes the league-wide settings row.
func (e *Engine) LeagueConfig(ctx context.Context) (*league.LeagueSettings, error) {
	return e.store.LeagueSettings(ctx)
}

// AddAdminRole whitelists a role for admin commands. An empty guildID
// registers the role under the wildcard scope, granting it everywhere.
func (e *Engine) AddAdminRole(ctx context.Context, adminID, guildID, roleID string) error {
	return e.store.Tx(ctx, func(s store.Store) error {
		if err := s.AddAdminRole(ctx, guildID, roleID); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "admin_role_added", map[string]any{"roleId": roleID, "guildId": guildID})
		return nil
	})
}

// RemoveAdminRole drops a role from the admin whitelist.
func (e *Engine) RemoveAdminRole(ctx context.Context, adminID, guildID, roleID string) error {
	return e.store.Tx(ctx, func(s store.Store) error {
		if err := s.RemoveAdminRole(ctx, guildID, roleID); err != nil {
			return err
		}
		e.audit(ctx, s, adminID, "admin_role_removed", map[string]any{"roleId": roleID})
		return nil
	})
}

// IsAdmin reports whether the event sender may run admin commands:
// either the platform already flagged them, or they carry a
// whitelisted role.
func (e *Engine) IsAdmin(ctx context.Context, guildID string, platformAdmin bool, roleIDs []string) (bool, error) {
	if platformAdmin {
		return true, nil
	}
	allowed, err := e.store.AdminRoles(ctx, guildID)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	for _, r := range roleIDs {
		if _, ok := set[r]; ok {
			return true, nil
		}
	}
	return false, nil
}
