package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/mohammedelhaj98-star/tekken-league-bot/internal/config"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/coord"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/dispatch"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/gateway"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/matchmaker"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/msgcat"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/pii"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgres(ctx, cfg.DatabaseURL, cfg.LeagueName)
	if err != nil {
		logger.Fatal("postgres init error", zap.Error(err))
	}
	defer st.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis url error", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connect error", zap.Error(err))
	}
	defer rdb.Close()
	co := coord.NewStore(rdb)

	codec, err := pii.NewCodec(cfg.EncryptionKeyHex)
	if err != nil {
		logger.Fatal("encryption key error", zap.Error(err))
	}

	cat, err := msgcat.New("")
	if err != nil {
		logger.Fatal("message catalog error", zap.Error(err))
	}

	client := gateway.NewClient(cfg.GatewayBaseURL, cfg.BotToken)
	notifier := dispatch.NewNotifier(client, cat)

	eng := engine.New(st, co, notifier, codec)

	mm := matchmaker.New(eng, st, cfg.HomeGuildID, cfg.MatchmakerInterval)
	go mm.Run(ctx)

	dispatcher := dispatch.New(eng, mm, cat, client, cfg.AuditLogLimit)

	sock := gateway.NewSocket(cfg.GatewayWSURL, cfg.BotToken, dispatcher.HandleEvent)

	logger.Info("league bot starting",
		zap.String("guild", cfg.HomeGuildID),
		zap.Duration("matchmaker_interval", cfg.MatchmakerInterval))

	if err := sock.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("gateway socket error", zap.Error(err))
	}
	logger.Info("league bot stopped")
}
