package models

import (
	"time"
)

// QuestType is a closed enum; every type has an entry in the quest engine's
// strategy table, so adding a variant without wiring it fails loudly.
type QuestType string

const (
	QuestTypeVoiceTime       QuestType = "voice_time"
	QuestTypeTreasuryDeposit QuestType = "treasury_deposit"
	QuestTypeParticipation   QuestType = "participation"
)

func QuestTypes() []QuestType {
	return []QuestType{QuestTypeVoiceTime, QuestTypeTreasuryDeposit, QuestTypeParticipation}
}

type QuestStatus string

const (
	QuestStatusTemplate  QuestStatus = "template"
	QuestStatusOffered   QuestStatus = "offered"
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusFailed    QuestStatus = "failed"
	QuestStatusExpired   QuestStatus = "expired"
	QuestStatusRejected  QuestStatus = "rejected"
)

func (s QuestStatus) Terminal() bool {
	switch s {
	case QuestStatusCompleted, QuestStatusFailed, QuestStatusExpired, QuestStatusRejected:
		return true
	}
	return false
}

type QuestRewards struct {
	Treasury      int64 `bson:"treasury"`
	First         int64 `bson:"first"`
	Second        int64 `bson:"second"`
	Third         int64 `bson:"third"`
	Participation int64 `bson:"participation"`
	XP            int64 `bson:"xp"`

	// Optional bonus effect applied to the faction on completion.
	Effect           EffectKind    `bson:"effect,omitempty"`
	EffectMultiplier float64       `bson:"effect_multiplier,omitempty"`
	EffectDuration   time.Duration `bson:"effect_duration,omitempty"`
}

// Quest is both the admin-authored template (FactionID empty, status
// "template") and the per-faction instance snapshotted from it. Instances
// never read back through to their template, so template edits cannot alter
// an in-flight quest.
type Quest struct {
	ID         string `bson:"_id"`
	TemplateID string `bson:"template_id,omitempty"`
	FactionID  string `bson:"faction_id,omitempty"`

	Type        QuestType `bson:"type"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`

	Tier     int   `bson:"tier"`
	BaseGoal int64 `bson:"base_goal"`
	Goal     int64 `bson:"goal"`

	Duration     time.Duration `bson:"duration"`
	AcceptWindow time.Duration `bson:"accept_window"`

	Rewards QuestRewards `bson:"rewards"`

	Status         QuestStatus `bson:"status"`
	OfferedAt      time.Time   `bson:"offered_at,omitempty"`
	AcceptDeadline time.Time   `bson:"accept_deadline,omitempty"`
	AcceptedAt     time.Time   `bson:"accepted_at,omitempty"`
	Deadline       time.Time   `bson:"deadline,omitempty"`
	CompletedAt    time.Time   `bson:"completed_at,omitempty"`

	Progress int64 `bson:"progress"`
	// Contribution per user, keyed by the stringified snowflake (BSON map
	// keys must be strings).
	Contributions map[string]int64 `bson:"contributions,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (q *Quest) GoalReached() bool {
	return q.Progress >= q.Goal
}
