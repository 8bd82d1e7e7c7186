package vanguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	discache "github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/vanguardbot/vanguard/vanguard/database"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/leaderboard"
	"github.com/vanguardbot/vanguard/vanguard/presence"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"github.com/vanguardbot/vanguard/vanguard/scheduler"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:            cfg,
		Version:        version,
		Commit:         commit,
		ProcessManager: utils.NewBackgroundProcessManager(),
	}
}

type Bot struct {
	Cfg     Config
	Client  bot.Client
	Version string
	Commit  string

	DB                 *database.DB
	FactionRepository  repositories.FactionRepository
	QuestRepository    repositories.QuestRepository
	CooldownRepository repositories.CooldownRepository
	UserRepository     repositories.UserRepository

	EconomyService     *economy.Service
	QuestService       *quests.Service
	LeaderboardService *leaderboard.Service
	Scheduler          *scheduler.Scheduler
	Presence           *presence.Tracker

	ProcessManager *utils.BackgroundProcessManager
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentGuildVoiceStates,
		)),
		bot.WithCacheConfigOpts(discache.WithCaches(discache.FlagGuilds, discache.FlagVoiceStates)),
		bot.WithEventListeners(bot.NewListenerFunc(b.onVoiceStateUpdate)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Vanguard is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the treasury"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

// onVoiceStateUpdate feeds voice channel joins and leaves into the presence
// tracker. A channel hop counts as a leave plus a join and is handled by
// VoiceJoin's settle-on-reopen behavior.
func (b *Bot) onVoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	if b.Presence == nil || e.VoiceState.UserID == b.Client.ApplicationID() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if e.VoiceState.ChannelID != nil {
		b.Presence.VoiceJoin(ctx, e.VoiceState.UserID)
	} else {
		b.Presence.VoiceLeave(ctx, e.VoiceState.UserID)
	}
}
