package presence

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

const (
	ownerID  = snowflake.ID(100)
	memberID = snowflake.ID(200)
	soloID   = snowflake.ID(300)
)

func testFaction() *models.Faction {
	return &models.Faction{
		ID:           "f1",
		GuildID:      1,
		Name:         "Iron Pact",
		OwnerID:      ownerID,
		MemberIDs:    []snowflake.ID{memberID},
		Treasury:     5000,
		UpkeepAmount: 1000,
		NextUpkeepAt: time.Now().Add(24 * time.Hour),
		Level:        1,
	}
}

type fixture struct {
	tracker  *Tracker
	factions *mock.Factions
	users    *mock.Users
	quests   *mock.Quests
}

func newFixture(factions ...*models.Faction) *fixture {
	factionRepo := mock.NewFactions(factions...)
	userRepo := mock.NewUsers()
	questRepo := mock.NewQuests()

	econ := economy.NewService(factionRepo, userRepo, notifier.Nop{}, economy.DefaultConfig())
	questSvc := quests.NewService(questRepo, factionRepo, mock.NewCooldowns(), userRepo, econ, notifier.Nop{}, quests.DefaultConfig())

	return &fixture{
		tracker:  NewTracker(factionRepo, userRepo, econ, questSvc, Config{CoinsPerVoiceHour: 60}),
		factions: factionRepo,
		users:    userRepo,
		quests:   questRepo,
	}
}

func TestReportElapsedTime(t *testing.T) {
	f := newFixture(testFaction())
	f.users.GetOrCreate(context.Background(), memberID, "member")

	// Two hours at 60/hour.
	if err := f.tracker.ReportElapsedTime(context.Background(), memberID, 2*msPerHour); err != nil {
		t.Fatalf("ReportElapsedTime() error = %v", err)
	}

	if got := f.users.Snapshot(memberID).Balance; got != 120 {
		t.Errorf("balance = %d, want 120", got)
	}
	if got := f.factions.Snapshot("f1").PendingVCMs; got != 2*msPerHour {
		t.Errorf("banked voice ms = %d, want %d", got, 2*msPerHour)
	}
}

func TestReportElapsedTimeFloorsSubCoinSpans(t *testing.T) {
	f := newFixture(testFaction())
	f.users.GetOrCreate(context.Background(), memberID, "member")

	// 90 seconds at 60/hour is 1.5 coins; the fraction is dropped.
	if err := f.tracker.ReportElapsedTime(context.Background(), memberID, 90_000); err != nil {
		t.Fatalf("ReportElapsedTime() error = %v", err)
	}
	if got := f.users.Snapshot(memberID).Balance; got != 1 {
		t.Errorf("balance = %d, want 1", got)
	}

	if err := f.tracker.ReportElapsedTime(context.Background(), memberID, 0); err != nil {
		t.Fatalf("ReportElapsedTime(0) error = %v", err)
	}
	if got := f.users.Snapshot(memberID).Balance; got != 1 {
		t.Errorf("balance after zero span = %d, want unchanged", got)
	}
}

func TestReportElapsedTimeWithoutFaction(t *testing.T) {
	f := newFixture() // no factions at all

	// Unseen user: the tracker creates the record and credits coins, and
	// nothing faction-related happens.
	if err := f.tracker.ReportElapsedTime(context.Background(), soloID, msPerHour); err != nil {
		t.Fatalf("ReportElapsedTime() error = %v", err)
	}
	if got := f.users.Snapshot(soloID).Balance; got != 60 {
		t.Errorf("balance = %d, want 60", got)
	}
}

func TestCoinAccrualEffectMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		effect *models.FactionEffect
		want   int64
	}{
		{name: "NoEffect", effect: nil, want: 60},
		{
			name: "ActiveCoinRate",
			effect: &models.FactionEffect{
				Kind:       models.EffectCoinRate,
				Multiplier: 2.0,
				ExpiresAt:  time.Now().Add(time.Hour),
			},
			want: 120,
		},
		{
			name: "ExpiredCoinRate",
			effect: &models.FactionEffect{
				Kind:       models.EffectCoinRate,
				Multiplier: 2.0,
				ExpiresAt:  time.Now().Add(-time.Hour),
			},
			want: 60,
		},
		{
			name:   "UpkeepWaiverDoesNotBoostCoins",
			effect: &models.FactionEffect{Kind: models.EffectUpkeepWaiver},
			want:   60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			faction := testFaction()
			faction.Effect = tt.effect
			if got := f.tracker.coinAccrual(msPerHour, faction); got != tt.want {
				t.Errorf("coinAccrual(1h) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVoiceTimeFeedsActiveQuest(t *testing.T) {
	f := newFixture(testFaction())
	f.users.GetOrCreate(context.Background(), memberID, "member")

	quest := &models.Quest{
		ID:        "q1",
		FactionID: "f1",
		Type:      models.QuestTypeVoiceTime,
		Status:    models.QuestStatusActive,
		Goal:      10 * msPerHour,
		Deadline:  time.Now().Add(24 * time.Hour),
	}
	if err := f.quests.Create(context.Background(), quest); err != nil {
		t.Fatal(err)
	}

	if err := f.tracker.ReportElapsedTime(context.Background(), memberID, 3*msPerHour); err != nil {
		t.Fatalf("ReportElapsedTime() error = %v", err)
	}
	if got := f.quests.Snapshot("q1").Progress; got != 3*msPerHour {
		t.Errorf("quest progress = %d, want %d", got, 3*msPerHour)
	}
}

func TestVoiceSessionLifecycle(t *testing.T) {
	f := newFixture(testFaction())
	ctx := context.Background()
	f.users.GetOrCreate(ctx, memberID, "member")

	f.tracker.VoiceJoin(ctx, memberID)
	f.tracker.mu.Lock()
	started, open := f.tracker.sessions[memberID]
	f.tracker.mu.Unlock()
	if !open {
		t.Fatal("join should open a session")
	}

	// Backdate the session so the settled span is a known two hours.
	f.tracker.mu.Lock()
	f.tracker.sessions[memberID] = started.Add(-2 * time.Hour)
	f.tracker.mu.Unlock()

	f.tracker.VoiceLeave(ctx, memberID)
	f.tracker.mu.Lock()
	_, stillOpen := f.tracker.sessions[memberID]
	f.tracker.mu.Unlock()
	if stillOpen {
		t.Error("leave should close the session")
	}
	if got := f.users.Snapshot(memberID).Balance; got != 120 {
		t.Errorf("balance = %d, want 120", got)
	}

	// Leaving without a session is a no-op.
	f.tracker.VoiceLeave(ctx, memberID)
	if got := f.users.Snapshot(memberID).Balance; got != 120 {
		t.Errorf("balance after spurious leave = %d, want 120", got)
	}
}

func TestFlushRestartsSpans(t *testing.T) {
	f := newFixture(testFaction())
	ctx := context.Background()
	f.users.GetOrCreate(ctx, memberID, "member")

	f.tracker.VoiceJoin(ctx, memberID)
	f.tracker.mu.Lock()
	f.tracker.sessions[memberID] = time.Now().Add(-time.Hour)
	f.tracker.mu.Unlock()

	f.tracker.Flush(ctx)
	if got := f.users.Snapshot(memberID).Balance; got != 60 {
		t.Errorf("balance after flush = %d, want 60", got)
	}

	// The session stays open with a fresh start, so an immediate second
	// flush credits nothing new.
	f.tracker.Flush(ctx)
	if got := f.users.Snapshot(memberID).Balance; got != 60 {
		t.Errorf("balance after second flush = %d, want 60", got)
	}

	f.tracker.mu.Lock()
	_, open := f.tracker.sessions[memberID]
	f.tracker.mu.Unlock()
	if !open {
		t.Error("flush must not close the session")
	}
}

func TestChannelHopSettlesOldSpan(t *testing.T) {
	f := newFixture(testFaction())
	ctx := context.Background()
	f.users.GetOrCreate(ctx, memberID, "member")

	f.tracker.VoiceJoin(ctx, memberID)
	f.tracker.mu.Lock()
	f.tracker.sessions[memberID] = time.Now().Add(-time.Hour)
	f.tracker.mu.Unlock()

	// A second join while a session is open settles the old span.
	f.tracker.VoiceJoin(ctx, memberID)
	if got := f.users.Snapshot(memberID).Balance; got != 60 {
		t.Errorf("balance after hop = %d, want 60", got)
	}
}
