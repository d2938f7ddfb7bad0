package mod

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

type fakeCases struct {
	cases       map[string]*models.Punishment
	updated     map[string]string
	invalidated []string
	err         error
}

func newFakeCases(ps ...models.Punishment) *fakeCases {
	f := &fakeCases{cases: make(map[string]*models.Punishment), updated: make(map[string]string)}
	for i := range ps {
		p := ps[i]
		f.cases[p.ID] = &p
	}
	return f
}

func (f *fakeCases) FindCase(_ context.Context, guildID, caseID string) (*models.Punishment, error) {
	p, ok := f.cases[caseID]
	if !ok || p.GuildID != guildID {
		return nil, database.ErrCaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCases) ListCases(context.Context, string, string) ([]models.Punishment, error) {
	return nil, f.err
}

func (f *fakeCases) ListWarnings(context.Context, string, string, bool, int64) ([]models.Punishment, error) {
	return nil, f.err
}

func (f *fakeCases) UpdateReason(_ context.Context, guildID, caseID, reason string) error {
	if f.err != nil {
		return f.err
	}
	p, ok := f.cases[caseID]
	if !ok || p.GuildID != guildID {
		return database.ErrCaseNotFound
	}
	p.Reason = reason
	f.updated[caseID] = reason
	return nil
}

func (f *fakeCases) Invalidate(_ context.Context, guildID, caseID string, hide bool) error {
	if f.err != nil {
		return f.err
	}
	p := f.cases[caseID]
	p.DateExpires = models.ExpiresRevoked
	p.Visible = !hide
	f.invalidated = append(f.invalidated, caseID)
	return nil
}

func (f *fakeCases) Statistics(context.Context, string, string) (*models.ModerationStats, error) {
	return &models.ModerationStats{}, f.err
}

type fakeConfigs struct {
	cfg    models.GuildConfig
	err    error
	resets int
}

func (f *fakeConfigs) Get(guildID string) (*models.GuildConfig, error) {
	cp := f.cfg
	return &cp, f.err
}

func (f *fakeConfigs) SetJailRole(_, id string) error    { f.cfg.JailRole = id; return f.err }
func (f *fakeConfigs) SetJailChannel(_, id string) error { f.cfg.JailChannel = id; return f.err }
func (f *fakeConfigs) SetLogChannel(_, id string) error  { f.cfg.LogChannel = id; return f.err }
func (f *fakeConfigs) SetKidnapEnabled(_ string, on bool) error {
	f.cfg.KidnapEnabled = on
	return f.err
}

func (f *fakeConfigs) Reset(guildID string) error {
	f.resets++
	f.cfg = models.GuildConfig{GuildID: guildID}
	return f.err
}

func warning(id, user string, expires int64) models.Punishment {
	return models.Punishment{
		ID: id, Kind: models.KindWarning, GuildID: "g1", UserID: user,
		Reason: "spam", DateIssued: testNow.Add(-time.Hour).Unix(), DateExpires: expires, Visible: true,
	}
}

func TestExpiryText(t *testing.T) {
	now := testNow.Unix()
	tests := []struct {
		name    string
		expires int64
		want    string
	}{
		{"revoked", models.ExpiresRevoked, "Revocada"},
		{"permanent", models.ExpiresNever, "Permanente"},
		{"past", now - 60, "Expiró"},
		{"future", now + 60, "Expira <t:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expiryText(&models.Punishment{DateExpires: tt.expires}, now)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("expiryText = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestCaseLineHidesModerator(t *testing.T) {
	p := warning("abc123", "u1", models.ExpiresNever)
	p.ModeratorID = "m1"

	if got := caseLine(&p, false, testNow.Unix()); strings.Contains(got, "m1") || !strings.Contains(got, "Oculto") {
		t.Errorf("hidden line = %q", got)
	}
	if got := caseLine(&p, true, testNow.Unix()); !strings.Contains(got, "<@m1>") {
		t.Errorf("visible line = %q", got)
	}
}

func TestJoinLimited(t *testing.T) {
	lines := []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)}

	if got := joinLimited(lines, 1000); got != strings.Join(lines, "\n") {
		t.Errorf("joinLimited without cut = %q", got)
	}
	got := joinLimited(lines, 60)
	if len(got) > 60 || !strings.Contains(got, "y 2 más") {
		t.Errorf("joinLimited with cut = %q (%d)", got, len(got))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("corto", 10); got != "corto" {
		t.Errorf("truncate = %q", got)
	}
	got := truncate(strings.Repeat("ñ", 120), maxChoiceName)
	if n := len([]rune(got)); n != maxChoiceName || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate length = %d, %q", n, got)
	}
}

func TestCanViewOthers(t *testing.T) {
	tests := []struct {
		level punish.ModLevel
		self  bool
		want  bool
	}{
		{punish.LevelNone, true, true},
		{punish.LevelNone, false, false},
		{punish.LevelJunior, false, true},
		{punish.LevelAdmin, false, true},
	}
	for _, tt := range tests {
		if got := canViewOthers(tt.level, tt.self); got != tt.want {
			t.Errorf("canViewOthers(%v, %v) = %v, want %v", tt.level, tt.self, got, tt.want)
		}
	}
}

func TestUpdateCase(t *testing.T) {
	cases := newFakeCases(warning("abc123", "u1", models.ExpiresNever))
	ctx := context.Background()

	p, err := updateCase(ctx, cases, "g1", "abc123", "  ")
	if err != nil || p.Reason != "spam" || len(cases.updated) != 0 {
		t.Fatalf("lookup only: %+v, %v, %v", p, err, cases.updated)
	}

	p, err = updateCase(ctx, cases, "g1", "abc123", " flood ")
	if err != nil || p.Reason != "flood" {
		t.Fatalf("update: %+v, %v", p, err)
	}

	if _, err := updateCase(ctx, cases, "g2", "abc123", "x"); !errors.Is(err, database.ErrCaseNotFound) {
		t.Errorf("other guild: err = %v", err)
	}
}

func TestInvalidateWarning(t *testing.T) {
	ban := warning("ban001", "u1", models.ExpiresNever)
	ban.Kind = models.KindBan
	hidden := warning("hid001", "u1", models.ExpiresRevoked)
	hidden.Visible = false

	tests := []struct {
		name    string
		userID  string
		caseID  string
		wantErr error
	}{
		{"valid", "u1", "war001", nil},
		{"other user", "u2", "war001", errNotUserWarning},
		{"not a warning", "u1", "ban001", errNotUserWarning},
		{"already hidden", "u1", "hid001", errNotUserWarning},
		{"missing", "u1", "nope00", database.ErrCaseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases := newFakeCases(warning("war001", "u1", testNow.Add(time.Hour).Unix()), ban, hidden)
			p, err := invalidateWarning(context.Background(), cases, "g1", tt.userID, tt.caseID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(cases.invalidated) != 0 {
					t.Errorf("invalidated %v on error", cases.invalidated)
				}
				return
			}
			stored := cases.cases[tt.caseID]
			if p.ID != tt.caseID || stored.Visible || !stored.IsRevoked() {
				t.Errorf("stored = %+v", stored)
			}
		})
	}
}

func TestWarningChoices(t *testing.T) {
	var ws []models.Punishment
	for i := 0; i < 30; i++ {
		w := warning(string(rune('a'+i%26))+"x", "u1", models.ExpiresNever)
		w.Reason = strings.Repeat("r", 150)
		ws = append(ws, w)
	}

	choices := warningChoices(ws)
	if len(choices) != maxChoices {
		t.Fatalf("len = %d, want %d", len(choices), maxChoices)
	}
	for _, c := range choices {
		if len([]rune(c.Name)) > maxChoiceName {
			t.Errorf("choice name too long: %d", len([]rune(c.Name)))
		}
	}
	if choices[0].Value != "ax" {
		t.Errorf("first value = %v", choices[0].Value)
	}
	if got := warningChoices(nil); len(got) != 0 {
		t.Errorf("empty list gave %d choices", len(got))
	}
}

func TestApplySetup(t *testing.T) {
	on := true
	store := &fakeConfigs{}

	changes, err := applySetup(store, "g1", setupInput{JailRole: "r1", LogChannel: "c1", Kidnap: &on})
	if err != nil {
		t.Fatal(err)
	}
	want := models.GuildConfig{JailRole: "r1", LogChannel: "c1", KidnapEnabled: true}
	if diff := cmp.Diff(want, store.cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if len(changes) != 3 {
		t.Errorf("changes = %v", changes)
	}

	if !(setupInput{}).empty() {
		t.Error("zero input should be empty")
	}

	failing := &fakeConfigs{err: database.ErrGuildConfigNotInitialized}
	if _, err := applySetup(failing, "g1", setupInput{JailChannel: "c2"}); !errors.Is(err, database.ErrGuildConfigNotInitialized) {
		t.Errorf("err = %v", err)
	}
}

func TestApplySetupReset(t *testing.T) {
	store := &fakeConfigs{cfg: models.GuildConfig{GuildID: "g1", JailRole: "old", LogChannel: "logs", KidnapEnabled: true}}

	in := setupInput{Reset: true, JailRole: "r2"}
	if in.empty() {
		t.Fatal("a reset is not an empty input")
	}
	changes, err := applySetup(store, "g1", in)
	if err != nil {
		t.Fatal(err)
	}
	if store.resets != 1 {
		t.Errorf("resets = %d, want 1", store.resets)
	}
	want := models.GuildConfig{GuildID: "g1", JailRole: "r2"}
	if diff := cmp.Diff(want, store.cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if len(changes) != 2 || !strings.Contains(changes[0], "restablecida") {
		t.Errorf("changes = %v", changes)
	}
}

func TestConfigEmbed(t *testing.T) {
	e := configEmbed(&models.GuildConfig{JailRole: "r1"})
	if e.Fields[0].Value != "<@&r1>" || e.Fields[1].Value != "Sin configurar" || e.Fields[3].Value != "desactivado" {
		t.Errorf("fields = %v %v %v", e.Fields[0].Value, e.Fields[1].Value, e.Fields[3].Value)
	}
}

func TestCaseListEmbed(t *testing.T) {
	empty := caseListEmbed("t", nil, true, testNow)
	if empty.Color != colorSuccess || !strings.Contains(empty.Description, "No se han encontrado") {
		t.Errorf("empty embed = %+v", empty)
	}

	ws := []models.Punishment{warning("a1", "u1", models.ExpiresNever), warning("a2", "u1", models.ExpiresRevoked)}
	list := caseListEmbed("t", ws, false, testNow)
	if list.Color != colorWarn || !strings.Contains(list.Description, "**Cantidad:** 2") {
		t.Errorf("list embed = %q", list.Description)
	}
}

func TestStatsEmbed(t *testing.T) {
	e := statsEmbed("mod", &models.ModerationStats{Bans: 3, GuildTotal: 10})
	if e.Fields[0].Value != "3" || e.Fields[len(e.Fields)-1].Value != "10" {
		t.Errorf("fields = %+v", e.Fields)
	}
}

func TestCaseEmbedColor(t *testing.T) {
	active := warning("a1", "u1", testNow.Add(time.Hour).Unix())
	if caseEmbed(&active, testNow).Color != colorWarn {
		t.Error("active case should use the warning color")
	}
	revoked := warning("a2", "u1", models.ExpiresRevoked)
	if caseEmbed(&revoked, testNow).Color != colorInfo {
		t.Error("revoked case should use the info color")
	}
}
