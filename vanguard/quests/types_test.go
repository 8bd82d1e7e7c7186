package quests

import (
	"testing"

	"github.com/vanguardbot/vanguard/vanguard/database/models"
)

func TestScaleGoal(t *testing.T) {
	tests := []struct {
		name      string
		questType models.QuestType
		baseGoal  int64
		tier      int
		want      int64
	}{
		{name: "VoiceTier1", questType: models.QuestTypeVoiceTime, baseGoal: 3_600_000, tier: 1, want: 3_600_000},
		{name: "VoiceTier2", questType: models.QuestTypeVoiceTime, baseGoal: 3_600_000, tier: 2, want: 6_300_000},
		{name: "DepositTier3", questType: models.QuestTypeTreasuryDeposit, baseGoal: 1000, tier: 3, want: 3500},
		{name: "TierBeyondTableUsesLast", questType: models.QuestTypeParticipation, baseGoal: 4, tier: 9, want: 8},
		{name: "TierZeroClampsToOne", questType: models.QuestTypeTreasuryDeposit, baseGoal: 1000, tier: 0, want: 1000},
		{name: "NeverBelowOne", questType: models.QuestTypeParticipation, baseGoal: 0, tier: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := specFor(tt.questType)
			if !ok {
				t.Fatalf("no spec for %s", tt.questType)
			}
			if got := spec.scaleGoal(tt.baseGoal, tt.tier); got != tt.want {
				t.Errorf("scaleGoal(%d, %d) = %d, want %d", tt.baseGoal, tt.tier, got, tt.want)
			}
		})
	}
}

func TestEveryQuestTypeHasSpec(t *testing.T) {
	for _, questType := range models.QuestTypes() {
		if _, ok := specFor(questType); !ok {
			t.Errorf("quest type %s has no strategy entry", questType)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name  string
		quest *models.Quest
		want  string
	}{
		{
			name: "VoiceHours",
			quest: &models.Quest{
				Type:     models.QuestTypeVoiceTime,
				Progress: 5_400_000,
				Goal:     7_200_000,
			},
			want: "1.5h / 2.0h",
		},
		{
			name: "Coins",
			quest: &models.Quest{
				Type:     models.QuestTypeTreasuryDeposit,
				Progress: 250,
				Goal:     1000,
			},
			want: "250 🪙 / 1000 🪙",
		},
		{
			name: "UnknownTypeFallsBack",
			quest: &models.Quest{
				Type:     "mystery",
				Progress: 3,
				Goal:     9,
			},
			want: "3 / 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatProgress(tt.quest); got != tt.want {
				t.Errorf("FormatProgress() = %q, want %q", got, tt.want)
			}
		})
	}
}
