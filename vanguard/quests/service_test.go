package quests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories/mock"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
)

const (
	ownerID   snowflake.ID = 100
	officerID snowflake.ID = 150
	memberID  snowflake.ID = 200
	member2ID snowflake.ID = 201
	member3ID snowflake.ID = 202
)

type fixture struct {
	quests    *mock.Quests
	factions  *mock.Factions
	cooldowns *mock.Cooldowns
	users     *mock.Users
	economy   *economy.Service
	service   *Service
}

func newFixture(factions ...*models.Faction) *fixture {
	f := &fixture{
		quests:    mock.NewQuests(),
		factions:  mock.NewFactions(factions...),
		cooldowns: mock.NewCooldowns(),
		users:     mock.NewUsers(),
	}
	f.economy = economy.NewService(f.factions, f.users, notifier.Nop{}, economy.DefaultConfig())
	f.service = NewService(f.quests, f.factions, f.cooldowns, f.users, f.economy, notifier.Nop{}, DefaultConfig())
	f.economy.SetDepositListener(f.service)
	return f
}

func testFaction() *models.Faction {
	return &models.Faction{
		ID:           "f1",
		GuildID:      1,
		Name:         "Iron Pact",
		OwnerID:      ownerID,
		OfficerIDs:   []snowflake.ID{officerID},
		MemberIDs:    []snowflake.ID{memberID, member2ID, member3ID},
		Treasury:     5000,
		UpkeepAmount: 1000,
		NextUpkeepAt: time.Now().Add(24 * time.Hour),
		Level:        1,
	}
}

func depositTemplate() *models.Quest {
	return &models.Quest{
		ID:       "tmpl-deposit",
		Type:     models.QuestTypeTreasuryDeposit,
		Name:     "War Chest",
		BaseGoal: 1000,
		Duration: 48 * time.Hour,
		Rewards: models.QuestRewards{
			Treasury:      500,
			First:         300,
			Second:        200,
			Third:         100,
			Participation: 50,
			XP:            400,
		},
	}
}

func TestCreateTemplate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Quest)
		wantErr error
	}{
		{name: "Valid", mutate: func(*models.Quest) {}},
		{
			name:    "UnknownType",
			mutate:  func(q *models.Quest) { q.Type = "raid_boss" },
			wantErr: ErrUnknownQuestType,
		},
		{
			name:    "ZeroGoal",
			mutate:  func(q *models.Quest) { q.BaseGoal = 0 },
			wantErr: ErrInvalidTemplate,
		},
		{
			name:    "ZeroDuration",
			mutate:  func(q *models.Quest) { q.Duration = 0 },
			wantErr: ErrInvalidTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tmpl := depositTemplate()
			tt.mutate(tmpl)

			err := f.service.CreateTemplate(context.Background(), tmpl)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateTemplate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && tmpl.AcceptWindow != 24*time.Hour {
				t.Errorf("accept window = %v, want default 24h", tmpl.AcceptWindow)
			}
		})
	}
}

func TestOfferQuest(t *testing.T) {
	t.Run("ScalesGoalForTier", func(t *testing.T) {
		f := newFixture(testFaction()) // 5 members -> tier 1
		if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
			t.Fatal(err)
		}

		quest, err := f.service.OfferQuest(context.Background(), "f1", "")
		if err != nil {
			t.Fatalf("OfferQuest() error = %v", err)
		}
		if quest.Tier != 1 || quest.Goal != 1000 {
			t.Errorf("tier/goal = %d/%d, want 1/1000", quest.Tier, quest.Goal)
		}
		if quest.Status != models.QuestStatusOffered {
			t.Errorf("status = %s, want offered", quest.Status)
		}
	})

	t.Run("BusyFaction", func(t *testing.T) {
		f := newFixture(testFaction())
		if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
			t.Fatal(err)
		}
		if _, err := f.service.OfferQuest(context.Background(), "f1", ""); err != nil {
			t.Fatal(err)
		}
		if _, err := f.service.OfferQuest(context.Background(), "f1", ""); !errors.Is(err, ErrQuestInProgress) {
			t.Errorf("second offer error = %v, want ErrQuestInProgress", err)
		}
	})

	t.Run("OnCooldown", func(t *testing.T) {
		f := newFixture(testFaction())
		if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
			t.Fatal(err)
		}
		if err := f.cooldowns.Put(context.Background(), "f1", time.Now().Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
		if _, err := f.service.OfferQuest(context.Background(), "f1", ""); !errors.Is(err, ErrOnCooldown) {
			t.Errorf("offer error = %v, want ErrOnCooldown", err)
		}
	})

	t.Run("NoTemplates", func(t *testing.T) {
		f := newFixture(testFaction())
		if _, err := f.service.OfferQuest(context.Background(), "f1", ""); !errors.Is(err, ErrNoTemplates) {
			t.Errorf("offer error = %v, want ErrNoTemplates", err)
		}
	})

	t.Run("DisbandedFaction", func(t *testing.T) {
		faction := testFaction()
		faction.Disbanded = true
		f := newFixture(faction)
		if _, err := f.service.OfferQuest(context.Background(), "f1", ""); !errors.Is(err, economy.ErrFactionDisbanded) {
			t.Errorf("offer error = %v, want ErrFactionDisbanded", err)
		}
	})
}

func TestTierFor(t *testing.T) {
	f := newFixture()
	tests := []struct {
		members int
		want    int
	}{
		{members: 1, want: 1},
		{members: 5, want: 1},
		{members: 6, want: 2},
		{members: 12, want: 2},
		{members: 13, want: 3},
		{members: 25, want: 3},
	}
	for _, tt := range tests {
		if got := f.service.tierFor(tt.members); got != tt.want {
			t.Errorf("tierFor(%d) = %d, want %d", tt.members, got, tt.want)
		}
	}
}

func TestAccept(t *testing.T) {
	offer := func(t *testing.T, f *fixture) *models.Quest {
		t.Helper()
		if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
			t.Fatal(err)
		}
		quest, err := f.service.OfferQuest(context.Background(), "f1", "")
		if err != nil {
			t.Fatal(err)
		}
		return quest
	}

	t.Run("OfficerAccepts", func(t *testing.T) {
		f := newFixture(testFaction())
		offer(t, f)

		quest, err := f.service.Accept(context.Background(), "f1", officerID)
		if err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
		if quest.Status != models.QuestStatusActive {
			t.Errorf("status = %s, want active", quest.Status)
		}
		if got := f.quests.Snapshot(quest.ID); got.Status != models.QuestStatusActive || got.Deadline.IsZero() {
			t.Errorf("stored quest not activated: %+v", got)
		}
	})

	t.Run("RegularMemberCannot", func(t *testing.T) {
		f := newFixture(testFaction())
		offer(t, f)
		if _, err := f.service.Accept(context.Background(), "f1", memberID); !errors.Is(err, ErrNotAnOfficer) {
			t.Errorf("Accept() error = %v, want ErrNotAnOfficer", err)
		}
	})

	t.Run("NothingOffered", func(t *testing.T) {
		f := newFixture(testFaction())
		if _, err := f.service.Accept(context.Background(), "f1", ownerID); !errors.Is(err, ErrQuestNotOffered) {
			t.Errorf("Accept() error = %v, want ErrQuestNotOffered", err)
		}
	})

	t.Run("WindowClosed", func(t *testing.T) {
		f := newFixture(testFaction())
		quest := offer(t, f)
		// Force the deadline into the past.
		stored := f.quests.Snapshot(quest.ID)
		stored.AcceptDeadline = time.Now().Add(-time.Minute)
		if err := f.quests.Create(context.Background(), stored); err != nil {
			t.Fatal(err)
		}

		if _, err := f.service.Accept(context.Background(), "f1", ownerID); !errors.Is(err, ErrAcceptWindowClosed) {
			t.Errorf("Accept() error = %v, want ErrAcceptWindowClosed", err)
		}
	})
}

func TestReject(t *testing.T) {
	f := newFixture(testFaction())
	if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
		t.Fatal(err)
	}
	quest, err := f.service.OfferQuest(context.Background(), "f1", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.service.Reject(context.Background(), "f1", memberID); !errors.Is(err, ErrNotAnOfficer) {
		t.Fatalf("member Reject() error = %v, want ErrNotAnOfficer", err)
	}
	if err := f.service.Reject(context.Background(), "f1", officerID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusRejected {
		t.Errorf("status = %s, want rejected", got)
	}
	cd, err := f.cooldowns.Get(context.Background(), "f1")
	if err != nil || cd == nil {
		t.Fatalf("cooldown after rejection = %v, %v; want set", cd, err)
	}

	// A fresh offer is refused until the cooldown clears.
	if _, err := f.service.OfferQuest(context.Background(), "f1", ""); !errors.Is(err, ErrOnCooldown) {
		t.Errorf("offer after rejection error = %v, want ErrOnCooldown", err)
	}
	if err := f.service.ClearCooldown(context.Background(), "f1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.OfferQuest(context.Background(), "f1", ""); err != nil {
		t.Errorf("offer after cooldown clear error = %v", err)
	}
}

func TestExpireOverdueOffers(t *testing.T) {
	f := newFixture(testFaction())
	if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
		t.Fatal(err)
	}
	quest, err := f.service.OfferQuest(context.Background(), "f1", "")
	if err != nil {
		t.Fatal(err)
	}

	// Before the deadline the sweep must not touch the offer.
	if err := f.service.ExpireOverdueOffers(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusOffered {
		t.Fatalf("status after early sweep = %s, want offered", got)
	}

	after := quest.AcceptDeadline.Add(time.Minute)
	if err := f.service.ExpireOverdueOffers(context.Background(), after); err != nil {
		t.Fatal(err)
	}
	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusExpired {
		t.Errorf("status = %s, want expired", got)
	}
	if cd, _ := f.cooldowns.Get(context.Background(), "f1"); cd == nil {
		t.Error("expiry should put the faction on cooldown")
	}
}

func TestFailOverdueQuests(t *testing.T) {
	f := newFixture(testFaction())
	if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
		t.Fatal(err)
	}
	quest, err := f.service.OfferQuest(context.Background(), "f1", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.Accept(context.Background(), "f1", ownerID); err != nil {
		t.Fatal(err)
	}

	deadline := f.quests.Snapshot(quest.ID).Deadline
	if err := f.service.FailOverdueQuests(context.Background(), deadline.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	// Failure does not apply a cooldown; the faction can be offered a new
	// quest right away.
	if cd, _ := f.cooldowns.Get(context.Background(), "f1"); cd != nil {
		t.Errorf("cooldown after failure = %+v, want none", cd)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(testFaction())
	if err := f.service.CreateTemplate(context.Background(), depositTemplate()); err != nil {
		t.Fatal(err)
	}
	quest, err := f.service.OfferQuest(context.Background(), "f1", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.service.Cancel(context.Background(), quest.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusExpired {
		t.Errorf("status = %s, want expired", got)
	}
	if err := f.service.Cancel(context.Background(), quest.ID); !errors.Is(err, ErrQuestTerminal) {
		t.Errorf("repeat Cancel() error = %v, want ErrQuestTerminal", err)
	}
}
