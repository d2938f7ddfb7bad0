package punish

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

var testNow = time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// waitFor polls cond until it holds or the test times out
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type fakeStore struct {
	mu     sync.Mutex
	cases  []models.Punishment
	nextID int
	err    error
}

func (s *fakeStore) Create(_ context.Context, p *models.Punishment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.nextID++
	p.ID = fmt.Sprintf("case%d", s.nextID)
	s.cases = append(s.cases, *p)
	return p.ID, nil
}

// newest returns the index of the newest active case, or -1
func (s *fakeStore) newest(guildID, userID string, kind models.PunishmentKind, now int64) int {
	idx := -1
	for i, c := range s.cases {
		if c.GuildID != guildID || c.UserID != userID || c.Kind != kind || !c.IsActive(now) {
			continue
		}
		if idx < 0 || c.DateIssued >= s.cases[idx].DateIssued {
			idx = i
		}
	}
	return idx
}

func (s *fakeStore) FindActive(_ context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (*models.Punishment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	i := s.newest(guildID, userID, kind, now)
	if i < 0 {
		return nil, nil
	}
	p := s.cases[i]
	return &p, nil
}

func (s *fakeStore) RevokeActive(_ context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	i := s.newest(guildID, userID, kind, now)
	if i < 0 {
		return false, nil
	}
	s.cases[i].DateExpires = models.ExpiresRevoked
	return true, nil
}

func (s *fakeStore) ListExpired(_ context.Context, kind models.PunishmentKind, now int64) ([]models.Punishment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Punishment
	for _, c := range s.cases {
		if c.Kind == kind && c.Visible && c.DateExpires > 0 && c.DateExpires <= now {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) Invalidate(_ context.Context, guildID, caseID string, hide bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cases {
		if s.cases[i].GuildID == guildID && s.cases[i].ID == caseID {
			s.cases[i].DateExpires = models.ExpiresRevoked
			if hide {
				s.cases[i].Visible = false
			}
			return nil
		}
	}
	return errors.New("case not found")
}

func (s *fakeStore) add(p models.Punishment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		s.nextID++
		p.ID = fmt.Sprintf("case%d", s.nextID)
	}
	s.cases = append(s.cases, p)
}

func (s *fakeStore) all() []models.Punishment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Punishment(nil), s.cases...)
}

type fakeConfigs struct {
	cfg *models.GuildConfig
	err error
}

func (c *fakeConfigs) Get(guildID string) (*models.GuildConfig, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.cfg == nil {
		return &models.GuildConfig{GuildID: guildID}, nil
	}
	cfg := *c.cfg
	return &cfg, nil
}

type published struct {
	event string
	kind  models.PunishmentKind
	user  string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *fakeNotifier) PublishPunishment(event string, p *models.Punishment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event, p.Kind, p.UserID})
	return nil
}

func (n *fakeNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}

type fakePlatform struct {
	mu        sync.Mutex
	botID     string
	members   map[string]*discordgo.Member
	authority map[string]Authority
	banned    map[string]bool
	calls     []string
	fail      map[string]error
}

func newFakePlatform(botID string) *fakePlatform {
	return &fakePlatform{
		botID:     botID,
		members:   make(map[string]*discordgo.Member),
		authority: make(map[string]Authority),
		banned:    make(map[string]bool),
		fail:      make(map[string]error),
	}
}

func (p *fakePlatform) addMember(u *discordgo.User, a Authority, roles ...string) *discordgo.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := &discordgo.Member{User: u, Roles: roles}
	p.members[u.ID] = m
	p.authority[u.ID] = a
	return m
}

func (p *fakePlatform) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	name := call
	for i := range call {
		if call[i] == ':' {
			name = call[:i]
			break
		}
	}
	return p.fail[name]
}

func (p *fakePlatform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlatform) BotID() string           { return p.botID }
func (p *fakePlatform) GuildName(string) string { return "Servidor de pruebas" }

func (p *fakePlatform) Member(_ context.Context, _, userID string) (*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members[userID], nil
}

func (p *fakePlatform) Authority(_ context.Context, _ string, m *discordgo.Member) (Authority, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authority[m.User.ID], nil
}

func (p *fakePlatform) IsBanned(_ context.Context, _, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.banned[userID], nil
}

func (p *fakePlatform) Ban(_ context.Context, _, userID, _ string) error {
	if err := p.record("ban:" + userID); err != nil {
		return err
	}
	p.mu.Lock()
	p.banned[userID] = true
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) Unban(_ context.Context, _, userID, _ string) error {
	if err := p.record("unban:" + userID); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.banned, userID)
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) Kick(_ context.Context, _, userID, _ string) error {
	return p.record("kick:" + userID)
}

func (p *fakePlatform) AddRole(_ context.Context, _, userID, roleID, _ string) error {
	return p.record("addrole:" + userID + ":" + roleID)
}

func (p *fakePlatform) RemoveRole(_ context.Context, _, userID, roleID, _ string) error {
	return p.record("removerole:" + userID + ":" + roleID)
}

func (p *fakePlatform) Timeout(_ context.Context, _, userID string, until *time.Time, _ string) error {
	if until == nil {
		return p.record("untimeout:" + userID)
	}
	return p.record("timeout:" + userID)
}

func (p *fakePlatform) DirectMessage(_ context.Context, userID string, _ *discordgo.MessageEmbed) error {
	return p.record("dm:" + userID)
}

func (p *fakePlatform) SendEmbed(_ context.Context, channelID string, _ *discordgo.MessageEmbed) error {
	return p.record("send:" + channelID)
}

type fakeResponder struct {
	mu       sync.Mutex
	views    []View
	dialogs  []Dialog
	notices  []string
	deferred int
	showErr  error
	// hold, when set, blocks Show until it is closed
	hold chan struct{}
}

func (r *fakeResponder) Show(_ context.Context, v View) error {
	if r.hold != nil {
		<-r.hold
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showErr != nil {
		return r.showErr
	}
	r.views = append(r.views, v)
	return nil
}

func (r *fakeResponder) Prompt(_ context.Context, d Dialog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs = append(r.dialogs, d)
	return nil
}

func (r *fakeResponder) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
	return nil
}

func (r *fakeResponder) Defer(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred++
	return nil
}

func (r *fakeResponder) viewCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *fakeResponder) lastView() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return View{}
	}
	return r.views[len(r.views)-1]
}

func (r *fakeResponder) lastDialog() (Dialog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dialogs) == 0 {
		return Dialog{}, false
	}
	return r.dialogs[len(r.dialogs)-1], true
}

func (r *fakeResponder) hasNotice(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n == text {
			return true
		}
	}
	return false
}

// footer returns the footer text of the last view, "" when there is none
func (r *fakeResponder) footer() string {
	v := r.lastView()
	if v.Embed == nil || v.Embed.Footer == nil {
		return ""
	}
	return v.Embed.Footer.Text
}

// customIDs lists every button id of v
func customIDs(v View) []string {
	var ids []string
	for _, c := range v.Components {
		row, ok := c.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, b := range row.Components {
			if btn, ok := b.(discordgo.Button); ok {
				ids = append(ids, btn.CustomID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
