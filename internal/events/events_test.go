package events

import (
	"context"
	"errors"
	"testing"

	"github.com/PancyStudios/PancyMod/internal/punish"
	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

type nopResponder struct{}

func (nopResponder) Show(context.Context, punish.View) error     { return nil }
func (nopResponder) Prompt(context.Context, punish.Dialog) error { return nil }
func (nopResponder) Notify(context.Context, string) error        { return nil }
func (nopResponder) Defer(context.Context) error                 { return nil }

type fakeRouter struct {
	calls []string
}

func (f *fakeRouter) HandleComponent(_ context.Context, userID, customID string, _ punish.Responder) error {
	f.calls = append(f.calls, "component:"+userID+":"+customID)
	return nil
}

func (f *fakeRouter) HandleDialog(_ context.Context, userID, customID, value string, _ punish.Responder) error {
	f.calls = append(f.calls, "dialog:"+userID+":"+customID+":"+value)
	return nil
}

type fakeWatcher struct {
	calls []string
	err   error
}

func (f *fakeWatcher) HandleMemberJoin(_ context.Context, guildID string, m *discordgo.Member) error {
	f.calls = append(f.calls, "join:"+guildID+":"+m.User.ID)
	return f.err
}

func (f *fakeWatcher) HandleUnban(_ context.Context, guildID, userID string) error {
	f.calls = append(f.calls, "unban:"+guildID+":"+userID)
	return f.err
}

func (f *fakeWatcher) HandleRolesChanged(_ context.Context, guildID string, before, m *discordgo.Member) error {
	had := "nil"
	if before != nil {
		had = "cached"
	}
	f.calls = append(f.calls, "roles:"+guildID+":"+m.User.ID+":"+had)
	return f.err
}

func modalRow(id, value string) discordgo.MessageComponent {
	return &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		&discordgo.TextInput{CustomID: id, Value: value},
	}}
}

func TestFlowHandler(t *testing.T) {
	router := &fakeRouter{}
	handle := flowHandler(router, func(*discordgo.Session, *discordgo.Interaction) punish.Responder { return nopResponder{} })

	member := &discordgo.Member{User: &discordgo.User{ID: "mod"}}
	handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: member,
		Data:   discordgo.MessageComponentInteractionData{CustomID: "punish:f1:type:ban"},
	}})
	handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionModalSubmit,
		Member: member,
		Data: discordgo.ModalSubmitInteractionData{
			CustomID:   "punish:f1:dialog:tok",
			Components: []discordgo.MessageComponent{modalRow(punish.DialogInputID, "2d 3h")},
		},
	}})
	handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: "punish:f1:cancel"},
	}})

	want := []string{
		"component:mod:punish:f1:type:ban",
		"dialog:mod:punish:f1:dialog:tok:2d 3h",
	}
	if diff := cmp.Diff(want, router.calls); diff != "" {
		t.Errorf("routed calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDialogValue(t *testing.T) {
	tests := []struct {
		name       string
		components []discordgo.MessageComponent
		want       string
	}{
		{"pointer row", []discordgo.MessageComponent{modalRow(punish.DialogInputID, "spam")}, "spam"},
		{
			"value row",
			[]discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{CustomID: punish.DialogInputID, Value: "1w"},
			}}},
			"1w",
		},
		{"other input", []discordgo.MessageComponent{modalRow("otro", "x")}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dialogValue(discordgo.ModalSubmitInteractionData{Components: tt.components})
			if got != tt.want {
				t.Errorf("dialogValue = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemberHandlers(t *testing.T) {
	w := &fakeWatcher{}
	user := &discordgo.User{ID: "u1"}

	onMemberAdd(w)(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g1", User: user}})
	onMemberUpdate(w)(nil, &discordgo.GuildMemberUpdate{Member: &discordgo.Member{GuildID: "g1", User: user}})
	onMemberUpdate(w)(nil, &discordgo.GuildMemberUpdate{
		Member:       &discordgo.Member{GuildID: "g1", User: user},
		BeforeUpdate: &discordgo.Member{GuildID: "g1", User: user},
	})
	onMemberUpdate(w)(nil, &discordgo.GuildMemberUpdate{})
	onBanRemove(w)(nil, &discordgo.GuildBanRemove{GuildID: "g1", User: user})
	onBanRemove(w)(nil, &discordgo.GuildBanRemove{GuildID: "g1"})

	want := []string{
		"join:g1:u1",
		"roles:g1:u1:nil",
		"roles:g1:u1:cached",
		"unban:g1:u1",
	}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("watcher calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberHandlerErrorsAreContained(t *testing.T) {
	w := &fakeWatcher{err: errors.New("mongo caído")}
	onBanRemove(w)(nil, &discordgo.GuildBanRemove{GuildID: "g1", User: &discordgo.User{ID: "u1"}})
	if len(w.calls) != 1 {
		t.Fatalf("calls = %v", w.calls)
	}
}

func TestWelcomeEmbed(t *testing.T) {
	e := welcomeEmbed()
	if len(e.Fields) != 2 || e.Footer == nil {
		t.Errorf("welcome embed = %+v", e)
	}
}
