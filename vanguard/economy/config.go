package economy

import "time"

type Config struct {
	StartingTreasury int64 `toml:"starting_treasury"`
	UpkeepAmount     int64 `toml:"upkeep_amount"`
	UpkeepCycleHours int   `toml:"upkeep_cycle_hours"`
	// LowRunwayCycles is the runway threshold (treasury divided by upkeep,
	// floored) at or below which a low-treasury warning goes out.
	LowRunwayCycles int64 `toml:"low_runway_cycles"`
	MaxMembers      int   `toml:"max_members"`

	XPBase         float64 `toml:"xp_base"`
	XPRate         float64 `toml:"xp_rate"`
	MaxLevel       int     `toml:"max_level"`
	XPPerVoiceHour int64   `toml:"xp_per_voice_hour"`
}

func DefaultConfig() Config {
	return Config{
		StartingTreasury: 5000,
		UpkeepAmount:     1000,
		UpkeepCycleHours: 168, // weekly
		LowRunwayCycles:  3,
		MaxMembers:       25,
		XPBase:           1000,
		XPRate:           1.25,
		MaxLevel:         100,
		XPPerVoiceHour:   50,
	}
}

// WithDefaults fills zero fields so a partial TOML table still yields a
// usable configuration.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.StartingTreasury == 0 {
		c.StartingTreasury = def.StartingTreasury
	}
	if c.UpkeepAmount == 0 {
		c.UpkeepAmount = def.UpkeepAmount
	}
	if c.UpkeepCycleHours == 0 {
		c.UpkeepCycleHours = def.UpkeepCycleHours
	}
	if c.LowRunwayCycles == 0 {
		c.LowRunwayCycles = def.LowRunwayCycles
	}
	if c.MaxMembers == 0 {
		c.MaxMembers = def.MaxMembers
	}
	if c.XPBase == 0 {
		c.XPBase = def.XPBase
	}
	if c.XPRate == 0 {
		c.XPRate = def.XPRate
	}
	if c.MaxLevel == 0 {
		c.MaxLevel = def.MaxLevel
	}
	if c.XPPerVoiceHour == 0 {
		c.XPPerVoiceHour = def.XPPerVoiceHour
	}
	return c
}

func (c Config) UpkeepCycle() time.Duration {
	return time.Duration(c.UpkeepCycleHours) * time.Hour
}
