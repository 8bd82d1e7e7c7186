// Package commands is the thin slash-command surface. Handlers validate
// input, call one service method and render the result; no business rules
// live here.
package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Faction,
	Deposit,
	Quest,
	Leaderboard,
	Balance,
}

var Faction = discord.SlashCommandCreate{
	Name:        "faction",
	Description: "Manage your faction",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "create",
			Description: "Found a new faction",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "The faction name",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "join",
			Description: "Join an existing faction",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "The faction to join",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "leave",
			Description: "Leave your faction",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "promote",
			Description: "Promote a member to officer",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "member",
					Description: "The member to promote",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "disband",
			Description: "Disband your faction (owner only)",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "info",
			Description: "Show your faction's status",
		},
	},
}

var Deposit = discord.SlashCommandCreate{
	Name:        "deposit",
	Description: "💰 Deposit coins into your faction treasury",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many coins to deposit",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

var Quest = discord.SlashCommandCreate{
	Name:        "quest",
	Description: "Manage your faction's quest",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "accept",
			Description: "Accept the offered quest (officers only)",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reject",
			Description: "Reject the offered quest (officers only)",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "status",
			Description: "Show the current quest and its progress",
		},
	},
}

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Server rankings",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "factions",
			Description: "Factions ranked by XP",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "rich",
			Description: "Richest members",
		},
	},
}

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "💰 View your current balance",
}

func intPtr(v int) *int {
	return &v
}
