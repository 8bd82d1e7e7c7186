package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/vanguardbot/vanguard/vanguard/cache"
	"github.com/vanguardbot/vanguard/vanguard/database/models"
	"github.com/vanguardbot/vanguard/vanguard/database/repositories/mock"
)

func newTestService(t *testing.T, factions *mock.Factions, users *mock.Users) *Service {
	t.Helper()
	mem, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(factions, users, cache.NewReadThrough(mem))
}

func guildFactions() *mock.Factions {
	return mock.NewFactions(
		&models.Faction{ID: "f-bronze", GuildID: 1, Name: "Bronze", OwnerID: 10, XP: 100, Level: 1, Treasury: 500},
		&models.Faction{ID: "f-gold", GuildID: 1, Name: "Gold", OwnerID: 20, XP: 9000, Level: 4, Treasury: 12000},
		&models.Faction{ID: "f-silver", GuildID: 1, Name: "Silver", OwnerID: 30, XP: 3000, Level: 2, Treasury: 4000},
		&models.Faction{ID: "f-gone", GuildID: 1, Name: "Gone", OwnerID: 40, XP: 99999, Disbanded: true},
		&models.Faction{ID: "f-other", GuildID: 2, Name: "Elsewhere", OwnerID: 50, XP: 7777},
	)
}

func TestFactionsRanking(t *testing.T) {
	s := newTestService(t, guildFactions(), mock.NewUsers())

	entries, err := s.Factions(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Factions() error = %v", err)
	}

	wantOrder := []string{"f-gold", "f-silver", "f-bronze"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d (disbanded and foreign factions excluded)", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].FactionID != want {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].FactionID, want)
		}
	}
	if entries[0].Members != 1 || entries[0].Treasury != 12000 {
		t.Errorf("top entry not populated: %+v", entries[0])
	}
}

func TestFactionsTieBreakAndLimit(t *testing.T) {
	factions := mock.NewFactions(
		&models.Faction{ID: "f-b", GuildID: 1, Name: "B", OwnerID: 10, XP: 1000},
		&models.Faction{ID: "f-a", GuildID: 1, Name: "A", OwnerID: 20, XP: 1000},
		&models.Faction{ID: "f-c", GuildID: 1, Name: "C", OwnerID: 30, XP: 500},
	)
	s := newTestService(t, factions, mock.NewUsers())

	entries, err := s.Factions(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Factions() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want limit of 2", len(entries))
	}
	// Equal XP falls back to ID order.
	if entries[0].FactionID != "f-a" || entries[1].FactionID != "f-b" {
		t.Errorf("tie not broken by ID: %s, %s", entries[0].FactionID, entries[1].FactionID)
	}
}

func TestFactionsServedFromCache(t *testing.T) {
	factions := guildFactions()
	s := newTestService(t, factions, mock.NewUsers())
	ctx := context.Background()

	if _, err := s.Factions(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}

	// A write after the snapshot is invisible until the TTL lapses.
	if _, err := factions.IncrementXP(ctx, "f-bronze", 1_000_000); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Factions(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].FactionID != "f-gold" {
		t.Errorf("cached snapshot should be served, got leader %s", entries[0].FactionID)
	}
}

func TestRichestUsers(t *testing.T) {
	users := mock.NewUsers(
		&models.User{ID: 1, Username: "pauper", Balance: 10},
		&models.User{ID: 2, Username: "magnate", Balance: 50_000},
		&models.User{ID: 3, Username: "trader", Balance: 7000},
	)
	s := newTestService(t, mock.NewFactions(), users)

	entries, err := s.RichestUsers(context.Background(), 2)
	if err != nil {
		t.Fatalf("RichestUsers() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].UserID != 2 || entries[1].UserID != 3 {
		t.Errorf("order = %d, %d; want 2, 3", entries[0].UserID, entries[1].UserID)
	}
	if entries[0].Username != "magnate" || entries[0].Balance != 50_000 {
		t.Errorf("top entry not populated: %+v", entries[0])
	}
}

func TestCoinRateMultiplier(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		effect *models.FactionEffect
		want   float64
	}{
		{name: "NoEffect", effect: nil, want: 1.0},
		{
			name:   "Active",
			effect: &models.FactionEffect{Kind: models.EffectCoinRate, Multiplier: 1.5, ExpiresAt: now.Add(time.Hour)},
			want:   1.5,
		},
		{
			name:   "Expired",
			effect: &models.FactionEffect{Kind: models.EffectCoinRate, Multiplier: 1.5, ExpiresAt: now.Add(-time.Hour)},
			want:   1.0,
		},
		{
			name:   "WrongKind",
			effect: &models.FactionEffect{Kind: models.EffectUpkeepWaiver},
			want:   1.0,
		},
		{
			name:   "ZeroMultiplier",
			effect: &models.FactionEffect{Kind: models.EffectCoinRate, Multiplier: 0, ExpiresAt: now.Add(time.Hour)},
			want:   1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &models.Faction{Effect: tt.effect}
			if got := CoinRateMultiplier(f, now); got != tt.want {
				t.Errorf("CoinRateMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}
