package quests

import (
	"fmt"
	"math"

	"github.com/vanguardbot/vanguard/vanguard/database/models"
)

// typeSpec is the per-quest-type strategy: how goals scale per difficulty
// tier and how goal/progress values are rendered. Keeping the behavior in
// one table instead of switch statements scattered across the engine makes
// an unwired quest type an immediate, visible failure.
type typeSpec struct {
	// multipliers scales the template's base goal by difficulty tier
	// (index tier-1). Tiers beyond the table reuse the last entry.
	multipliers []float64
	unit        string
	formatValue func(v int64) string
}

var typeSpecs = map[models.QuestType]typeSpec{
	models.QuestTypeVoiceTime: {
		multipliers: []float64{1, 1.75, 2.5},
		unit:        "voice hours",
		formatValue: func(v int64) string {
			return fmt.Sprintf("%.1fh", float64(v)/3_600_000)
		},
	},
	models.QuestTypeTreasuryDeposit: {
		multipliers: []float64{1, 2, 3.5},
		unit:        "coins",
		formatValue: func(v int64) string {
			return fmt.Sprintf("%d 🪙", v)
		},
	},
	models.QuestTypeParticipation: {
		multipliers: []float64{1, 1.5, 2},
		unit:        "participants",
		formatValue: func(v int64) string {
			return fmt.Sprintf("%d members", v)
		},
	},
}

func specFor(t models.QuestType) (typeSpec, bool) {
	spec, ok := typeSpecs[t]
	return spec, ok
}

// scaleGoal applies the type's tier multiplier to the template's base goal.
func (t typeSpec) scaleGoal(baseGoal int64, tier int) int64 {
	if tier < 1 {
		tier = 1
	}
	idx := tier - 1
	if idx >= len(t.multipliers) {
		idx = len(t.multipliers) - 1
	}
	scaled := int64(math.Round(float64(baseGoal) * t.multipliers[idx]))
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// FormatProgress renders "progress / goal" in the type's natural unit.
func FormatProgress(q *models.Quest) string {
	spec, ok := specFor(q.Type)
	if !ok {
		return fmt.Sprintf("%d / %d", q.Progress, q.Goal)
	}
	return fmt.Sprintf("%s / %s", spec.formatValue(q.Progress), spec.formatValue(q.Goal))
}
