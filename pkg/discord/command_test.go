package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func noop(*CommandContext) error { return nil }

func TestCommandCreation(t *testing.T) {
	cmd := NewCommand("punish", "Abre el menú de sanciones", "mod", noop)

	if cmd.Name != "punish" || cmd.Description != "Abre el menú de sanciones" || cmd.Category != "mod" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if cmd.Run == nil {
		t.Error("Run function is nil")
	}
}

func TestToApplicationCommand(t *testing.T) {
	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Usuario",
		Required:    true,
	}

	plain := NewCommand("ping", "Ping", "util", noop).WithOptions(option).ToApplicationCommand()
	if len(plain.Options) != 1 || plain.DMPermission != nil || plain.DefaultMemberPermissions != nil {
		t.Errorf("plain command = %+v", plain)
	}

	guarded := NewCommand("setup", "Configura", "mod", noop).
		InGuild().
		WithUserPermissions(discordgo.PermissionManageGuild).
		ToApplicationCommand()
	if guarded.DMPermission == nil || *guarded.DMPermission {
		t.Error("guild only command should be hidden in DMs")
	}
	if guarded.DefaultMemberPermissions == nil || *guarded.DefaultMemberPermissions != discordgo.PermissionManageGuild {
		t.Errorf("DefaultMemberPermissions = %v", guarded.DefaultMemberPermissions)
	}
}

func TestBuildCommandGroup(t *testing.T) {
	c := &ExtendedClient{Commands: NewCommandCollection()}
	ch := NewCommandHandler(c)

	group := ch.BuildCommandGroup("mod", "Moderación",
		NewCommand("punish", "a", "mod", noop).InGuild(),
		NewCommand("case", "b", "mod", noop).InGuild(),
	)

	if len(group.Options) != 2 || group.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		t.Fatalf("options = %+v", group.Options)
	}
	if group.DMPermission == nil || *group.DMPermission {
		t.Error("group of guild only commands should be hidden in DMs")
	}
	if _, ok := c.Commands.Get("mod.case"); !ok {
		t.Error("subcommand mod.case not registered")
	}
	if c.Commands.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Commands.Size())
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{"top level", discordgo.ApplicationCommandInteractionData{Name: "ping"}, "ping"},
		{
			"subcommand",
			discordgo.ApplicationCommandInteractionData{
				Name:    "mod",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "punish", Type: discordgo.ApplicationCommandOptionSubCommand}},
			},
			"mod.punish",
		},
		{
			"subcommand group",
			discordgo.ApplicationCommandInteractionData{
				Name: "mod",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name:    "config",
					Type:    discordgo.ApplicationCommandOptionSubCommandGroup,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "jail"}},
				}},
			},
			"mod.config.jail",
		},
		{
			"plain option",
			discordgo.ApplicationCommandInteractionData{
				Name:    "ping",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "x", Type: discordgo.ApplicationCommandOptionString}},
			},
			"ping",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandName(tt.data); got != tt.want {
				t.Errorf("commandName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardCommand(t *testing.T) {
	member := func(perms int64) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: "u"}, Permissions: perms}
	}
	mod := NewCommand("case", "", "mod", noop).InGuild().
		WithUserPermissions(discordgo.PermissionManageMessages).
		RequiresDatabase()

	tests := []struct {
		name     string
		guildID  string
		member   *discordgo.Member
		dbOnline bool
		want     error
	}{
		{"allowed", "g", member(discordgo.PermissionManageMessages), true, nil},
		{"administrator", "g", member(discordgo.PermissionAdministrator), true, nil},
		{"direct message", "", nil, true, ErrGuildOnly},
		{"missing permission", "g", member(discordgo.PermissionSendMessages), true, ErrMissingPermissions},
		{"database offline", "g", member(discordgo.PermissionManageMessages), false, ErrDatabaseOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guardCommand(mod, tt.guildID, tt.member, tt.dbOnline)
			if !errors.Is(err, tt.want) {
				t.Errorf("guardCommand = %v, want %v", err, tt.want)
			}
			if err != nil && GuardMessage(err) == "" {
				t.Error("empty guard message")
			}
		})
	}
}

func TestComponentRouting(t *testing.T) {
	c := &ExtendedClient{components: make(map[string]ComponentFunc)}
	called := false
	c.OnComponent("punish", func(*discordgo.Session, *discordgo.InteractionCreate) { called = true })

	fn, ok := c.component("punish:abc:type:ban")
	if !ok {
		t.Fatal("punish component not routed")
	}
	fn(nil, nil)
	if !called {
		t.Error("handler not called")
	}

	for _, id := range []string{"punishment", "other:1", ""} {
		if _, ok := c.component(id); ok {
			t.Errorf("%q should not be routed", id)
		}
	}
}

func TestGetMemberOption(t *testing.T) {
	ic := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "mod",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "suspend",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "usuario", Type: discordgo.ApplicationCommandOptionUser, Value: "u1"},
					{Name: "otro", Type: discordgo.ApplicationCommandOptionUser, Value: "u2"},
				},
			}},
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users:   map[string]*discordgo.User{"u1": {ID: "u1"}, "u2": {ID: "u2"}},
				Members: map[string]*discordgo.Member{"u1": {Roles: []string{"r1"}}},
			},
		},
	}}
	ctx := &CommandContext{Interaction: ic}

	m := ctx.GetMemberOption("usuario")
	if m == nil || m.User == nil || m.User.ID != "u1" || m.GuildID != "g1" || len(m.Roles) != 1 {
		t.Fatalf("member = %+v", m)
	}
	if ctx.GetMemberOption("otro") != nil {
		t.Error("non member resolved as member")
	}
	if ctx.GetMemberOption("missing") != nil {
		t.Error("missing option resolved")
	}
}
