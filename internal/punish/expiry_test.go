package punish

import (
	"context"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWatcher(e *strategyEnv, cfg *models.GuildConfig, locks *LockRegistry) *Watcher {
	return NewWatcher(e.deps, &fakeConfigs{cfg: cfg}, locks, 20*time.Millisecond)
}

func TestSweepLiftsExpiredBans(t *testing.T) {
	e := newStrategyEnv()
	past := testNow.Add(-time.Minute).Unix()
	e.store.add(models.Punishment{ID: "old", Kind: models.KindBan, GuildID: "g", UserID: "a", DateExpires: past, Visible: true})
	e.store.add(models.Punishment{ID: "future", Kind: models.KindBan, GuildID: "g", UserID: "b", DateExpires: testNow.Add(time.Hour).Unix(), Visible: true})
	e.store.add(models.Punishment{ID: "perm", Kind: models.KindBan, GuildID: "g", UserID: "c", DateExpires: models.ExpiresNever, Visible: true})
	e.platform.banned["a"] = true

	locks := NewLockRegistry(nil)
	w := newTestWatcher(e, nil, locks)
	if n := w.Sweep(context.Background()); n != 1 {
		t.Fatalf("Sweep lifted %d bans, want 1", n)
	}

	if diff := cmp.Diff([]string{"unban:a"}, e.platform.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	cases := e.store.all()
	if !cases[0].IsRevoked() || !cases[0].Visible {
		t.Errorf("expired case = %+v, want revoked and visible", cases[0])
	}
	if cases[1].IsRevoked() || cases[2].IsRevoked() {
		t.Error("sweep touched an active ban")
	}
	if diff := cmp.Diff([]published{{EventExpired, models.KindBan, "a"}}, e.notifier.all(), cmp.AllowUnexported(published{})); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(e.metrics.ExpiredTotal.WithLabelValues("ban")); got != 1 {
		t.Errorf("expired metric = %v", got)
	}
	if locks.Len() != 0 {
		t.Errorf("sweep left %d locks", locks.Len())
	}

	// a second sweep has nothing left to do
	if n := w.Sweep(context.Background()); n != 0 {
		t.Errorf("second Sweep lifted %d", n)
	}
}

func TestSweepUnbannedByHand(t *testing.T) {
	e := newStrategyEnv()
	e.store.add(models.Punishment{Kind: models.KindBan, GuildID: "g", UserID: "a", DateExpires: testNow.Unix(), Visible: true})

	if n := newTestWatcher(e, nil, NewLockRegistry(nil)).Sweep(context.Background()); n != 1 {
		t.Fatalf("Sweep = %d", n)
	}
	if calls := e.platform.Calls(); len(calls) != 0 {
		t.Errorf("unban called for a user who is not banned: %v", calls)
	}
	if !e.store.all()[0].IsRevoked() {
		t.Error("case not expired")
	}
}

func TestSweepSkipsLockedTargets(t *testing.T) {
	e := newStrategyEnv()
	e.store.add(models.Punishment{Kind: models.KindBan, GuildID: "g", UserID: "a", DateExpires: testNow.Unix() - 1, Visible: true})
	e.platform.banned["a"] = true

	locks := NewLockRegistry(nil)
	if err := locks.TryAcquire("g", "a"); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(e, nil, locks)
	if n := w.Sweep(context.Background()); n != 0 {
		t.Fatalf("Sweep lifted %d bans on a locked target", n)
	}
	if e.store.all()[0].IsRevoked() {
		t.Error("locked case was expired")
	}

	if err := locks.Release("g", "a"); err != nil {
		t.Fatal(err)
	}
	if n := w.Sweep(context.Background()); n != 1 {
		t.Errorf("Sweep after release = %d, want 1", n)
	}
}

func TestWatcherRunStops(t *testing.T) {
	e := newStrategyEnv()
	w := newTestWatcher(e, nil, NewLockRegistry(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestHandleMemberJoin(t *testing.T) {
	cfg := &models.GuildConfig{GuildID: "g", JailRole: "jail"}
	member := &discordgo.Member{User: &discordgo.User{ID: "a"}}

	e := newStrategyEnv()
	w := newTestWatcher(e, cfg, NewLockRegistry(nil))
	if err := w.HandleMemberJoin(context.Background(), "g", member); err != nil {
		t.Fatal(err)
	}
	if calls := e.platform.Calls(); len(calls) != 0 {
		t.Errorf("member without a case was jailed: %v", calls)
	}

	e.store.add(models.Punishment{Kind: models.KindJail, GuildID: "g", UserID: "a", DateExpires: models.ExpiresNever, Visible: true})
	if err := w.HandleMemberJoin(context.Background(), "g", member); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"addrole:a:jail"}, e.platform.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestHandleUnban(t *testing.T) {
	e := newStrategyEnv()
	e.store.add(models.Punishment{Kind: models.KindBan, GuildID: "g", UserID: "a", DateExpires: models.ExpiresNever, Visible: true})
	locks := NewLockRegistry(nil)
	w := newTestWatcher(e, nil, locks)

	// unbans issued by an open flow are left to the flow
	if err := locks.TryAcquire("g", "a"); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleUnban(context.Background(), "g", "a"); err != nil {
		t.Fatal(err)
	}
	if e.store.all()[0].IsRevoked() {
		t.Fatal("locked unban expired the case")
	}
	if err := locks.Release("g", "a"); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleUnban(context.Background(), "g", "a"); err != nil {
		t.Fatal(err)
	}
	if !e.store.all()[0].IsRevoked() {
		t.Error("manual unban did not expire the case")
	}
}

func TestHandleRolesChanged(t *testing.T) {
	cfg := &models.GuildConfig{GuildID: "g", JailRole: "jail"}
	user := &discordgo.User{ID: "a"}

	tests := []struct {
		name    string
		before  *discordgo.Member
		after   *discordgo.Member
		revoked bool
	}{
		{"role removed", &discordgo.Member{User: user, Roles: []string{"jail"}}, &discordgo.Member{User: user}, true},
		{"uncached before", nil, &discordgo.Member{User: user}, true},
		{"role kept", &discordgo.Member{User: user, Roles: []string{"jail"}}, &discordgo.Member{User: user, Roles: []string{"jail", "x"}}, false},
		{"never had role", &discordgo.Member{User: user}, &discordgo.Member{User: user, Roles: []string{"x"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newStrategyEnv()
			e.store.add(models.Punishment{Kind: models.KindJail, GuildID: "g", UserID: "a", DateExpires: models.ExpiresNever, Visible: true})
			w := newTestWatcher(e, cfg, NewLockRegistry(nil))

			if err := w.HandleRolesChanged(context.Background(), "g", tt.before, tt.after); err != nil {
				t.Fatal(err)
			}
			if got := e.store.all()[0].IsRevoked(); got != tt.revoked {
				t.Errorf("revoked = %v, want %v", got, tt.revoked)
			}
		})
	}
}
