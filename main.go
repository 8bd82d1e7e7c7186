package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/cache"
	"github.com/vanguardbot/vanguard/vanguard/commands"
	"github.com/vanguardbot/vanguard/vanguard/database"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/leaderboard"
	"github.com/vanguardbot/vanguard/vanguard/logger"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
	"github.com/vanguardbot/vanguard/vanguard/presence"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"github.com/vanguardbot/vanguard/vanguard/scheduler"
)

const memoryCacheSize = 4096

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := vanguard.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	logger.LogSystem("Starting Vanguard",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(-1)
	}
	defer db.Close(context.Background())
	slog.Info("Database connected", slog.String("database", cfg.Mongo.Database))

	// Redis is optional. Without it the read-through cache runs on an
	// in-process LRU, which is fine for a single instance.
	var kv cache.Cache
	if cfg.Redis.URL != "" {
		redisClient, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Error("Redis connection failed", slog.Any("error", err))
			os.Exit(-1)
		}
		defer redisClient.Close()
		kv = cache.NewRedisCache(redisClient)
		slog.Info("Redis connected")
	} else {
		memCache, err := cache.NewMemoryCache(memoryCacheSize)
		if err != nil {
			slog.Error("Failed to build memory cache", slog.Any("error", err))
			os.Exit(-1)
		}
		kv = memCache
		slog.Info("No Redis configured, using in-process cache")
	}

	b := vanguard.New(*cfg, version, commit)
	b.DB = db
	b.FactionRepository = repositories.NewFactionRepository(db.Database())
	b.QuestRepository = repositories.NewQuestRepository(db.Database())
	b.CooldownRepository = repositories.NewCooldownRepository(db.Database())
	b.UserRepository = repositories.NewUserRepository(db.Database())

	h := handler.New()
	h.Command("/faction", commands.FactionHandler(b))
	h.Command("/deposit", commands.DepositHandler(b))
	h.Command("/quest", commands.QuestHandler(b))
	h.Command("/leaderboard", commands.LeaderboardHandler(b))
	h.Command("/balance", commands.BalanceHandler(b))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot", slog.Any("error", err))
		os.Exit(-1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	notify := notifier.NewDiscord(b.Client)
	b.EconomyService = economy.NewService(b.FactionRepository, b.UserRepository, notify, cfg.Economy)
	b.QuestService = quests.NewService(
		b.QuestRepository,
		b.FactionRepository,
		b.CooldownRepository,
		b.UserRepository,
		b.EconomyService,
		notify,
		cfg.Quests,
	)
	// Deposits feed treasury quests; wired late to keep the services acyclic.
	b.EconomyService.SetDepositListener(b.QuestService)

	b.LeaderboardService = leaderboard.NewService(b.FactionRepository, b.UserRepository, cache.NewReadThrough(kv))
	b.Presence = presence.NewTracker(b.FactionRepository, b.UserRepository, b.EconomyService, b.QuestService, cfg.Presence)
	b.Scheduler = scheduler.New(b.FactionRepository, b.EconomyService, b.QuestService, cfg.Scheduler)

	b.ProcessManager.StartProcess("scheduler", b.Scheduler.Run)
	b.ProcessManager.StartProcess("presence-flush", func(ctx context.Context) {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.Presence.Flush(ctx)
			}
		}
	})
	b.ProcessManager.StartProcess("db-health", func(ctx context.Context) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				start := time.Now()
				err := db.Ping(pingCtx)
				cancel()
				logger.LogQuery("ping", time.Since(start), err)
			}
		}
	})

	if *shouldSyncCommands {
		slog.Info("Syncing commands", slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands", slog.Any("error", err))
		}
	}

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway", slog.Any("error", err))
		os.Exit(-1)
	}

	logger.LogSystem("Vanguard is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	logger.LogSystem("Shutting down...")
	if err := b.ProcessManager.Shutdown(30 * time.Second); err != nil {
		slog.Warn("Background processes did not drain in time", slog.Any("error", err))
	}
}
