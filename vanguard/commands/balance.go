package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/logger"
	"github.com/vanguardbot/vanguard/vanguard/utils"
)

func BalanceHandler(b *vanguard.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID, e.User().Username)
		logger.LogCommand("balance", time.Since(start), err)
		if err != nil {
			return replyError(e, friendlyError(err))
		}

		description := fmt.Sprintf("You have **%d** 🪙.", user.Balance)
		if user.FactionID != "" {
			if faction, ferr := b.FactionRepository.GetByID(ctx, user.FactionID); ferr == nil {
				description += fmt.Sprintf("\nFaction: **%s** (treasury %d 🪙)", faction.Name, faction.Treasury)
			}
		}

		now := time.Now()
		return replyEmbed(e, discord.Embed{
			Title:       "💰 Balance",
			Description: description,
			Color:       utils.SuccessColor,
			Footer: &discord.EmbedFooter{
				Text: fmt.Sprintf("Requested by %s", e.User().Username),
			},
			Timestamp: &now,
		})
	}
}
