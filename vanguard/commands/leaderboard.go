package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/logger"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func LeaderboardHandler(b *vanguard.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		sub := ""
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		start := time.Now()
		var err error
		switch sub {
		case "rich":
			err = leaderboardRich(ctx, b, e)
		case "factions":
			err = leaderboardFactions(ctx, b, e)
		default:
			return replyError(e, "Unknown subcommand.")
		}
		logger.LogCommand("leaderboard "+sub, time.Since(start), err)
		return err
	}
}

func leaderboardRich(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	entries, err := b.LeaderboardService.RichestUsers(ctx, 10)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "**%d.** <@%s> — %d 🪙\n", i+1, entry.UserID, entry.Balance)
	}
	if sb.Len() == 0 {
		sb.WriteString("Nobody has earned anything yet.")
	}
	return replyEmbed(e, discord.Embed{
		Title:       "💰 Richest Members",
		Description: sb.String(),
		Color:       utils.InfoColor,
	})
}

func leaderboardFactions(ctx context.Context, b *vanguard.Bot, e *handler.CommandEvent) error {
	if e.GuildID() == nil {
		return replyError(e, "Leaderboards are only available inside a server.")
	}
	entries, err := b.LeaderboardService.Factions(ctx, *e.GuildID(), 10)
	if err != nil {
		return replyError(e, friendlyError(err))
	}
	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "**%d.** %s — Lv.%d, %d XP, %d members\n",
			i+1, entry.Name, entry.Level, entry.XP, entry.Members)
	}
	if sb.Len() == 0 {
		sb.WriteString("No factions yet. Found one with `/faction create`.")
	}
	return replyEmbed(e, discord.Embed{
		Title:       "🏆 Faction Rankings",
		Description: sb.String(),
		Color:       utils.InfoColor,
	})
}
