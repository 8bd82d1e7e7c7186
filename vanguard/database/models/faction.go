package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type DisbandReason string

const (
	DisbandReasonManual        DisbandReason = "manual"
	DisbandReasonUpkeepFailure DisbandReason = "upkeep_failure"
)

type EffectKind string

const (
	EffectCoinRate     EffectKind = "coin_rate"
	EffectUpkeepWaiver EffectKind = "upkeep_waiver"
)

// FactionEffect is a temporary bonus applied to a faction, usually granted
// as a quest reward. CoinRate effects carry a multiplier and an expiry,
// upkeep waivers are one-shot and consumed on the next upkeep cycle.
type FactionEffect struct {
	Kind       EffectKind `bson:"kind"`
	Multiplier float64    `bson:"multiplier,omitempty"`
	ExpiresAt  time.Time  `bson:"expires_at,omitempty"`
}

func (e *FactionEffect) ActiveAt(now time.Time) bool {
	if e == nil {
		return false
	}
	if e.Kind == EffectUpkeepWaiver {
		return true
	}
	return now.Before(e.ExpiresAt)
}

type LedgerEntryType string

const (
	LedgerEntryDeposit     LedgerEntryType = "deposit"
	LedgerEntryUpkeep      LedgerEntryType = "upkeep"
	LedgerEntryQuestBonus  LedgerEntryType = "quest_bonus"
	LedgerEntryQuestReward LedgerEntryType = "quest_reward"
)

// LedgerEntry is one record of the faction's bounded audit trail. Balance is
// the balance observed right after the transaction applied: the treasury for
// treasury-affecting entries, the member's personal balance for quest payouts.
type LedgerEntry struct {
	ID        string          `bson:"id"`
	ActorID   snowflake.ID    `bson:"actor_id"`
	Type      LedgerEntryType `bson:"type"`
	Amount    int64           `bson:"amount"`
	Balance   int64           `bson:"balance"`
	CreatedAt time.Time       `bson:"created_at"`
}

// LedgerCap bounds the per-faction ledger; the oldest entries are evicted on
// append ($push with $slice).
const LedgerCap = 100

// MemberRecord is an analytics record opened when a user joins a faction and
// finalized when they leave or the faction disbands. LeftAt stays zero while
// the membership is open.
type MemberRecord struct {
	UserID   snowflake.ID `bson:"user_id"`
	JoinedAt time.Time    `bson:"joined_at"`
	LeftAt   time.Time    `bson:"left_at,omitempty"`
	Reason   string       `bson:"reason,omitempty"`
}

type Faction struct {
	ID      string       `bson:"_id"`
	GuildID snowflake.ID `bson:"guild_id"`
	Name    string       `bson:"name"`

	OwnerID    snowflake.ID   `bson:"owner_id"`
	OfficerIDs []snowflake.ID `bson:"officer_ids"`
	MemberIDs  []snowflake.ID `bson:"member_ids"`

	Treasury     int64     `bson:"treasury"`
	UpkeepAmount int64     `bson:"upkeep_amount"`
	NextUpkeepAt time.Time `bson:"next_upkeep_at"`

	XP          int64 `bson:"xp"`
	PendingVCMs int64 `bson:"pending_vc_ms"`
	Level       int   `bson:"level"`

	ChannelID snowflake.ID `bson:"channel_id,omitempty"`
	RoleID    snowflake.ID `bson:"role_id,omitempty"`

	Effect *FactionEffect `bson:"effect,omitempty"`

	Ledger        []LedgerEntry  `bson:"ledger"`
	MemberHistory []MemberRecord `bson:"member_history"`

	Disbanded     bool          `bson:"disbanded"`
	DisbandReason DisbandReason `bson:"disband_reason,omitempty"`
	DisbandedAt   time.Time     `bson:"disbanded_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// AllMemberIDs returns every member of the faction: owner, officers and
// regular members. The three sets are disjoint by construction.
func (f *Faction) AllMemberIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(f.OfficerIDs)+len(f.MemberIDs)+1)
	ids = append(ids, f.OwnerID)
	ids = append(ids, f.OfficerIDs...)
	ids = append(ids, f.MemberIDs...)
	return ids
}

func (f *Faction) MemberCount() int {
	return 1 + len(f.OfficerIDs) + len(f.MemberIDs)
}

func (f *Faction) IsMember(id snowflake.ID) bool {
	if f.OwnerID == id {
		return true
	}
	for _, m := range f.OfficerIDs {
		if m == id {
			return true
		}
	}
	for _, m := range f.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// IsOfficer reports whether id may act for the faction (owner or officer).
func (f *Faction) IsOfficer(id snowflake.ID) bool {
	if f.OwnerID == id {
		return true
	}
	for _, m := range f.OfficerIDs {
		if m == id {
			return true
		}
	}
	return false
}

// RunwayCycles returns how many upkeep cycles the current treasury covers.
func (f *Faction) RunwayCycles() int64 {
	if f.UpkeepAmount <= 0 {
		return 0
	}
	return f.Treasury / f.UpkeepAmount
}
