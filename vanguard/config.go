package vanguard

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/vanguardbot/vanguard/vanguard/cache"
	"github.com/vanguardbot/vanguard/vanguard/database"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/presence"
	"github.com/vanguardbot/vanguard/vanguard/quests"
	"github.com/vanguardbot/vanguard/vanguard/scheduler"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log       LogConfig            `toml:"log"`
	Bot       BotConfig            `toml:"bot"`
	Mongo     database.MongoConfig `toml:"mongo"`
	Redis     cache.RedisConfig    `toml:"redis"`
	Economy   economy.Config       `toml:"economy"`
	Quests    quests.Config        `toml:"quests"`
	Scheduler scheduler.Config     `toml:"scheduler"`
	Presence  presence.Config      `toml:"presence"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}
