package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/vanguardbot/vanguard/vanguard"
	"github.com/vanguardbot/vanguard/vanguard/logger"
)

func DepositHandler(b *vanguard.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		amount := int64(e.SlashCommandInteractionData().Int("amount"))

		faction, err := b.FactionRepository.GetByMember(ctx, e.User().ID)
		if err != nil {
			logger.LogCommand("deposit", time.Since(start), err)
			return replyError(e, friendlyError(err))
		}

		treasury, err := b.EconomyService.Deposit(ctx, faction.ID, e.User().ID, amount)
		logger.LogCommand("deposit", time.Since(start), err)
		if err != nil {
			return replyError(e, friendlyError(err))
		}

		return replySuccess(e, "💰 Deposit Complete",
			fmt.Sprintf("You deposited %d 🪙 into **%s**. Treasury now holds %d 🪙.",
				amount, faction.Name, treasury))
	}
}
