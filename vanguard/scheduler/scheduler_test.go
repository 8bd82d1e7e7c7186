package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories/mock"
	"github.com/vanguardbot/vanguard/vanguard/economy"
	"github.com/vanguardbot/vanguard/vanguard/notifier"
	"github.com/vanguardbot/vanguard/vanguard/quests"
)

type fixture struct {
	scheduler *Scheduler
	factions  *mock.Factions
	quests    *mock.Quests
	cooldowns *mock.Cooldowns
	users     *mock.Users
}

func newFixture(factions ...*models.Faction) *fixture {
	factionRepo := mock.NewFactions(factions...)
	questRepo := mock.NewQuests()
	cooldownRepo := mock.NewCooldowns()
	userRepo := mock.NewUsers()

	econ := economy.NewService(factionRepo, userRepo, notifier.Nop{}, economy.DefaultConfig())
	questSvc := quests.NewService(questRepo, factionRepo, cooldownRepo, userRepo, econ, notifier.Nop{}, quests.DefaultConfig())

	return &fixture{
		scheduler: New(factionRepo, econ, questSvc, Config{}),
		factions:  factionRepo,
		quests:    questRepo,
		cooldowns: cooldownRepo,
		users:     userRepo,
	}
}

func solventFaction(id string, owner snowflake.ID) *models.Faction {
	return &models.Faction{
		ID:           id,
		GuildID:      1,
		Name:         "Faction " + id,
		OwnerID:      owner,
		MemberIDs:    []snowflake.ID{owner + 1},
		Treasury:     5000,
		UpkeepAmount: 1000,
		NextUpkeepAt: time.Now().Add(24 * time.Hour),
		Level:        1,
	}
}

func seedTemplate(t *testing.T, f *fixture) {
	t.Helper()
	err := f.quests.CreateTemplate(context.Background(), &models.Quest{
		ID:       "tmpl-1",
		Type:     models.QuestTypeTreasuryDeposit,
		Name:     "Fill the Coffers",
		BaseGoal: 1000,
		Duration: 48 * time.Hour,
		Rewards:  models.QuestRewards{Treasury: 500, XP: 400},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTickProcessesDueUpkeep(t *testing.T) {
	due := solventFaction("f-due", 100)
	due.NextUpkeepAt = time.Now().Add(-time.Hour)
	notDue := solventFaction("f-later", 200)
	f := newFixture(due, notDue)

	f.scheduler.Tick(context.Background())

	after := f.factions.Snapshot("f-due")
	if after.Treasury != 4000 {
		t.Errorf("due faction treasury = %d, want 4000", after.Treasury)
	}
	if !after.NextUpkeepAt.After(time.Now()) {
		t.Error("due faction upkeep cycle not advanced")
	}
	if got := f.factions.Snapshot("f-later").Treasury; got != 5000 {
		t.Errorf("not-due faction treasury = %d, want untouched 5000", got)
	}
}

func TestTickDisbandsInsolventFaction(t *testing.T) {
	broke := solventFaction("f-broke", 100)
	broke.Treasury = 200
	broke.NextUpkeepAt = time.Now().Add(-time.Hour)
	f := newFixture(broke)

	f.scheduler.Tick(context.Background())

	after := f.factions.Snapshot("f-broke")
	if !after.Disbanded {
		t.Fatal("insolvent faction should be disbanded")
	}
	if after.DisbandReason != models.DisbandReasonUpkeepFailure {
		t.Errorf("reason = %s, want upkeep_failure", after.DisbandReason)
	}
}

func TestTickSweepsPendingVoiceAndOffersQuest(t *testing.T) {
	faction := solventFaction("f-idle", 100)
	faction.PendingVCMs = int64(2 * time.Hour / time.Millisecond)
	f := newFixture(faction)
	seedTemplate(t, f)

	f.scheduler.Tick(context.Background())

	after := f.factions.Snapshot("f-idle")
	if after.XP != 100 {
		t.Errorf("xp = %d, want 100 (2 hours at 50/hour)", after.XP)
	}
	if after.PendingVCMs != 0 {
		t.Errorf("pending voice ms = %d, want drained", after.PendingVCMs)
	}

	offered, err := f.quests.GetCurrentForFaction(context.Background(), "f-idle")
	if err != nil {
		t.Fatal(err)
	}
	if offered == nil {
		t.Fatal("no quest offered to idle faction")
	}
	if offered.Status != models.QuestStatusOffered {
		t.Errorf("quest status = %s, want offered", offered.Status)
	}
	if offered.TemplateID != "tmpl-1" {
		t.Errorf("quest template = %s, want tmpl-1", offered.TemplateID)
	}
}

func TestTickExpiresOverdueOffer(t *testing.T) {
	f := newFixture(solventFaction("f1", 100))
	seedTemplate(t, f)

	stale := &models.Quest{
		ID:             "q-stale",
		FactionID:      "f1",
		Type:           models.QuestTypeTreasuryDeposit,
		Status:         models.QuestStatusOffered,
		Goal:           1000,
		AcceptDeadline: time.Now().Add(-time.Minute),
	}
	if err := f.quests.Create(context.Background(), stale); err != nil {
		t.Fatal(err)
	}

	f.scheduler.Tick(context.Background())

	if got := f.quests.Snapshot("q-stale").Status; got != models.QuestStatusExpired {
		t.Fatalf("stale offer status = %s, want expired", got)
	}

	// Expiry starts the offer cooldown, so the same tick's sweep must not
	// hand the faction a fresh quest.
	if current, _ := f.quests.GetCurrentForFaction(context.Background(), "f1"); current != nil {
		t.Errorf("faction on cooldown received a new offer: %s", current.ID)
	}
}

func TestTickFailsOverdueQuestThenReoffers(t *testing.T) {
	f := newFixture(solventFaction("f1", 100))
	seedTemplate(t, f)

	overdue := &models.Quest{
		ID:        "q-overdue",
		FactionID: "f1",
		Type:      models.QuestTypeTreasuryDeposit,
		Status:    models.QuestStatusActive,
		Goal:      1000,
		Deadline:  time.Now().Add(-time.Minute),
	}
	if err := f.quests.Create(context.Background(), overdue); err != nil {
		t.Fatal(err)
	}

	f.scheduler.Tick(context.Background())

	if got := f.quests.Snapshot("q-overdue").Status; got != models.QuestStatusFailed {
		t.Fatalf("overdue quest status = %s, want failed", got)
	}

	// Failure carries no cooldown; the sweep in the same tick offers anew.
	offered, err := f.quests.GetCurrentForFaction(context.Background(), "f1")
	if err != nil {
		t.Fatal(err)
	}
	if offered == nil {
		t.Fatal("expected a fresh offer after failure")
	}
	if offered.ID == "q-overdue" || offered.Status != models.QuestStatusOffered {
		t.Errorf("current quest = %s (%s), want a fresh offer", offered.ID, offered.Status)
	}
}

func TestTickSkipsDisbandedFactions(t *testing.T) {
	gone := solventFaction("f-gone", 100)
	gone.Disbanded = true
	gone.PendingVCMs = int64(5 * time.Hour / time.Millisecond)
	f := newFixture(gone)
	seedTemplate(t, f)

	f.scheduler.Tick(context.Background())

	if got := f.factions.Snapshot("f-gone").XP; got != 0 {
		t.Errorf("disbanded faction gained %d xp", got)
	}
	if current, _ := f.quests.GetCurrentForFaction(context.Background(), "f-gone"); current != nil {
		t.Errorf("disbanded faction received an offer: %s", current.ID)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
