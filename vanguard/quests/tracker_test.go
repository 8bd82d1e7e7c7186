package quests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
)

func activeQuest(t *testing.T, f *fixture, tmpl *models.Quest) *models.Quest {
	t.Helper()
	if err := f.service.CreateTemplate(context.Background(), tmpl); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.OfferQuest(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}
	quest, err := f.service.Accept(context.Background(), "f1", ownerID)
	if err != nil {
		t.Fatal(err)
	}
	return quest
}

func TestDepositContributionCompletesQuest(t *testing.T) {
	f := newFixture(testFaction())
	quest := activeQuest(t, f, depositTemplate())
	seedBalances(f, 10_000)

	// 600 + 500 crosses the 1000 goal on the second deposit.
	if _, err := f.economy.Deposit(context.Background(), "f1", memberID, 600); err != nil {
		t.Fatal(err)
	}
	if got := f.quests.Snapshot(quest.ID); got.Status != models.QuestStatusActive || got.Progress != 600 {
		t.Fatalf("after first deposit: status %s progress %d", got.Status, got.Progress)
	}

	if _, err := f.economy.Deposit(context.Background(), "f1", member2ID, 500); err != nil {
		t.Fatal(err)
	}
	after := f.quests.Snapshot(quest.ID)
	if after.Status != models.QuestStatusCompleted {
		t.Fatalf("status = %s, want completed", after.Status)
	}
	if after.Progress != 1100 {
		t.Errorf("progress = %d, want 1100", after.Progress)
	}
}

func seedBalances(f *fixture, balance int64) {
	ctx := context.Background()
	for _, id := range []snowflake.ID{ownerID, officerID, memberID, member2ID, member3ID} {
		f.users.GetOrCreate(ctx, id, "")
		f.users.AdjustBalance(ctx, id, balance)
	}
}

func TestRewardDistribution(t *testing.T) {
	f := newFixture(testFaction())
	quest := activeQuest(t, f, depositTemplate())
	seedBalances(f, 10_000)

	deposits := []struct {
		user   snowflake.ID
		amount int64
	}{
		{memberID, 300},  // 3rd: 300
		{ownerID, 600},   // 1st: 600
		{member2ID, 400}, // 2nd: 400
	}
	for _, d := range deposits {
		if _, err := f.economy.Deposit(context.Background(), "f1", d.user, d.amount); err != nil {
			t.Fatal(err)
		}
	}

	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}

	// Each depositor: 10000 - deposit + placement reward.
	wantBalances := map[snowflake.ID]int64{
		ownerID:   10_000 - 600 + 300, // first place
		member2ID: 10_000 - 400 + 200, // second place
		memberID:  10_000 - 300 + 100, // third place
		member3ID: 10_000,             // did not contribute, no payout
	}
	for id, want := range wantBalances {
		if got := f.users.Snapshot(id).Balance; got != want {
			t.Errorf("balance[%d] = %d, want %d", id, got, want)
		}
	}

	faction := f.factions.Snapshot("f1")
	// 5000 start + 1300 deposited + 500 completion bonus.
	if faction.Treasury != 6800 {
		t.Errorf("treasury = %d, want 6800", faction.Treasury)
	}
	if faction.XP != 400 {
		t.Errorf("xp = %d, want 400", faction.XP)
	}
}

func TestParticipationQuestCountsEachMemberOnce(t *testing.T) {
	f := newFixture(testFaction())
	tmpl := depositTemplate()
	tmpl.ID = "tmpl-part"
	tmpl.Type = models.QuestTypeParticipation
	tmpl.BaseGoal = 3
	quest := activeQuest(t, f, tmpl)

	ctx := context.Background()
	f.service.TrackParticipation(ctx, "f1", memberID)
	f.service.TrackParticipation(ctx, "f1", memberID)
	f.service.TrackParticipation(ctx, "f1", memberID)

	if got := f.quests.Snapshot(quest.ID).Progress; got != 1 {
		t.Fatalf("progress after repeats = %d, want 1", got)
	}

	f.service.TrackParticipation(ctx, "f1", member2ID)
	f.service.TrackParticipation(ctx, "f1", member3ID)

	after := f.quests.Snapshot(quest.ID)
	if after.Progress != 3 {
		t.Errorf("progress = %d, want 3", after.Progress)
	}
	if after.Status != models.QuestStatusCompleted {
		t.Errorf("status = %s, want completed", after.Status)
	}
}

func TestVoiceTrackingIgnoresOtherQuestTypes(t *testing.T) {
	f := newFixture(testFaction())
	quest := activeQuest(t, f, depositTemplate())

	f.service.TrackVoiceTime(context.Background(), "f1", memberID, 3_600_000)
	if got := f.quests.Snapshot(quest.ID).Progress; got != 0 {
		t.Errorf("progress = %d, want 0 (type mismatch)", got)
	}
}

// Concurrent contributions crossing the goal must complete the quest exactly
// once: one winner distributes rewards, everyone else observes the CAS loss.
func TestConcurrentCompletionDistributesOnce(t *testing.T) {
	f := newFixture(testFaction())
	tmpl := depositTemplate()
	tmpl.BaseGoal = 100
	quest := activeQuest(t, f, tmpl)
	seedBalances(f, 100_000)

	contributors := []snowflake.ID{ownerID, officerID, memberID, member2ID, member3ID}
	var wg sync.WaitGroup
	for _, id := range contributors {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every single deposit reaches the goal on its own.
			if _, err := f.economy.Deposit(context.Background(), "f1", id, 200); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	after := f.quests.Snapshot(quest.ID)
	if after.Status != models.QuestStatusCompleted {
		t.Fatalf("status = %s, want completed", after.Status)
	}

	faction := f.factions.Snapshot("f1")
	// XP reward granted exactly once.
	if faction.XP != 400 {
		t.Errorf("xp = %d, want 400 (single distribution)", faction.XP)
	}
	// All five deposits credited plus exactly one completion bonus.
	if faction.Treasury != 5000+5*200+500 {
		t.Errorf("treasury = %d, want %d", faction.Treasury, 5000+5*200+500)
	}

	// Deposits racing the completion may or may not be recorded before the
	// status flips, but every contributor on the final document is paid the
	// full schedule amount for their rank, exactly once.
	schedule := []int64{300, 200, 100, 50, 50}
	rewards := make(map[snowflake.ID]int64)
	for i, c := range rankContributors(after.Contributions) {
		rewards[c.UserID] = schedule[i]
	}
	if len(rewards) == 0 {
		t.Fatal("winner's contribution missing from the completed quest")
	}
	for _, id := range contributors {
		want := 100_000 - 200 + rewards[id]
		if got := f.users.Snapshot(id).Balance; got != want {
			t.Errorf("balance[%d] = %d, want %d", id, got, want)
		}
	}
}

// A contribution that lands after another contributor's completion check is
// still recorded on the document when the status flips; distribution must
// pay it, not just the contributions the winner happened to see.
func TestRewardsCoverContributionsPastSnapshot(t *testing.T) {
	f := newFixture(testFaction())
	quest := activeQuest(t, f, depositTemplate())
	seedBalances(f, 10_000)
	ctx := context.Background()

	snapshot, err := f.quests.AddContribution(ctx, quest.ID, memberID, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.quests.AddContribution(ctx, quest.ID, member2ID, 500); err != nil {
		t.Fatal(err)
	}

	// Complete using the first contributor's stale view of the document.
	f.service.maybeComplete(ctx, snapshot)

	if got := f.quests.Snapshot(quest.ID).Status; got != models.QuestStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	if got := f.users.Snapshot(memberID).Balance; got != 10_000+300 {
		t.Errorf("first place balance = %d, want %d", got, 10_000+300)
	}
	if got := f.users.Snapshot(member2ID).Balance; got != 10_000+200 {
		t.Errorf("late contributor balance = %d, want %d", got, 10_000+200)
	}
}

func TestRankContributors(t *testing.T) {
	ranked := rankContributors(map[string]int64{
		"300": 2000,
		"100": 6000,
		"200": 3000,
		"bad": 99, // unparseable keys are skipped
	})

	want := []rankedContributor{
		{UserID: 100, Amount: 6000},
		{UserID: 200, Amount: 3000},
		{UserID: 300, Amount: 2000},
	}
	if len(ranked) != len(want) {
		t.Fatalf("ranked %d contributors, want %d", len(ranked), len(want))
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("ranked[%d] = %+v, want %+v", i, ranked[i], want[i])
		}
	}
}

func TestRankContributorsTieBreak(t *testing.T) {
	ranked := rankContributors(map[string]int64{
		"200": 1000,
		"100": 1000,
	})
	if ranked[0].UserID != 100 || ranked[1].UserID != 200 {
		t.Errorf("tie not broken by ID: %+v", ranked)
	}
}

func TestCompletionAppliesEffect(t *testing.T) {
	f := newFixture(testFaction())
	tmpl := depositTemplate()
	tmpl.Rewards.Effect = models.EffectCoinRate
	tmpl.Rewards.EffectMultiplier = 2.0
	tmpl.Rewards.EffectDuration = 24 * time.Hour
	activeQuest(t, f, tmpl)
	seedBalances(f, 10_000)

	if _, err := f.economy.Deposit(context.Background(), "f1", memberID, 1000); err != nil {
		t.Fatal(err)
	}

	effect := f.factions.Snapshot("f1").Effect
	if effect == nil || effect.Kind != models.EffectCoinRate || effect.Multiplier != 2.0 {
		t.Fatalf("effect = %+v, want 2x coin rate", effect)
	}
	if !effect.ActiveAt(time.Now()) {
		t.Error("effect should be active immediately after completion")
	}
}
