package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	GatewayBaseURL string
	GatewayWSURL   string
	BotToken       string

	RedisURL    string
	DatabaseURL string

	EncryptionKeyHex string

	LeagueName string

	// HomeGuildID scopes the matchmaker's announcements. Empty falls
	// back to the default guild settings row.
	HomeGuildID string

	// MatchmakerInterval is how often the pairing loop wakes. Values
	// under 5s are clamped up to keep the DB from being hammered.
	MatchmakerInterval time.Duration

	AuditLogLimit int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		MatchmakerInterval: 30 * time.Second,
		AuditLogLimit:      20,
	}

	cfg.GatewayBaseURL = strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL"))
	cfg.GatewayWSURL = strings.TrimSpace(os.Getenv("GATEWAY_WS_URL"))
	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.EncryptionKeyHex = strings.TrimSpace(os.Getenv("ENCRYPTION_KEY_HEX"))

	cfg.LeagueName = strings.TrimSpace(os.Getenv("LEAGUE_NAME"))
	cfg.HomeGuildID = strings.TrimSpace(os.Getenv("HOME_GUILD_ID"))

	if v := strings.TrimSpace(os.Getenv("MATCHMAKER_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			if n, nerr := strconv.Atoi(v); nerr == nil {
				d = time.Duration(n) * time.Second
			} else {
				return nil, errors.New("MATCHMAKER_INTERVAL must be a duration like 30s")
			}
		}
		cfg.MatchmakerInterval = d
	}
	if cfg.MatchmakerInterval < 5*time.Second {
		cfg.MatchmakerInterval = 5 * time.Second
	}

	if v := strings.TrimSpace(os.Getenv("AUDIT_LOG_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuditLogLimit = n
		}
	}

	if cfg.GatewayBaseURL == "" {
		return nil, errors.New("GATEWAY_BASE_URL is required")
	}
	if cfg.GatewayWSURL == "" {
		return nil, errors.New("GATEWAY_WS_URL is required")
	}
	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.EncryptionKeyHex == "" {
		return nil, errors.New("ENCRYPTION_KEY_HEX is required")
	}

	return cfg, nil
}
