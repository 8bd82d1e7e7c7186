// Package notifier is the bridge to the chat platform. Everything here is
// fire-and-forget: failures are logged and never propagate into economy
// operations.
package notifier

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

type EmbedField struct {
	Name  string
	Value string
}

type Notifier interface {
	FactionMessage(ctx context.Context, channelID snowflake.ID, content string)
	FactionEmbed(ctx context.Context, channelID snowflake.ID, embed Embed)
	DirectMessage(ctx context.Context, userID snowflake.ID, content string)

	CreateFactionChannel(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error)
	DeleteFactionChannel(ctx context.Context, channelID snowflake.ID)
	CreateFactionRole(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error)
	DeleteFactionRole(ctx context.Context, guildID, roleID snowflake.ID)
	AssignRole(ctx context.Context, guildID, userID, roleID snowflake.ID)
	RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID)
}

// Nop discards every notification; used in tests and headless tooling.
type Nop struct{}

func (Nop) FactionMessage(context.Context, snowflake.ID, string) {}
func (Nop) FactionEmbed(context.Context, snowflake.ID, Embed)    {}
func (Nop) DirectMessage(context.Context, snowflake.ID, string)  {}
func (Nop) CreateFactionChannel(context.Context, snowflake.ID, string) (snowflake.ID, error) {
	return 0, nil
}
func (Nop) DeleteFactionChannel(context.Context, snowflake.ID) {}
func (Nop) CreateFactionRole(context.Context, snowflake.ID, string) (snowflake.ID, error) {
	return 0, nil
}
func (Nop) DeleteFactionRole(context.Context, snowflake.ID, snowflake.ID)        {}
func (Nop) AssignRole(context.Context, snowflake.ID, snowflake.ID, snowflake.ID) {}
func (Nop) RemoveRole(context.Context, snowflake.ID, snowflake.ID, snowflake.ID) {}
