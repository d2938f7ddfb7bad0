package punish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// SessionPlatform implements Platform over a discordgo session, preferring
// the state cache and falling back to REST
type SessionPlatform struct {
	s *discordgo.Session
}

func NewSessionPlatform(s *discordgo.Session) *SessionPlatform {
	return &SessionPlatform{s: s}
}

func restCode(err error, code int) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == code
}

func (p *SessionPlatform) BotID() string {
	if p.s.State == nil || p.s.State.User == nil {
		return ""
	}
	return p.s.State.User.ID
}

func (p *SessionPlatform) GuildName(guildID string) string {
	if g, err := p.s.State.Guild(guildID); err == nil {
		return g.Name
	}
	return ""
}

func (p *SessionPlatform) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := p.s.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if restCode(err, discordgo.ErrCodeUnknownMember) || restCode(err, discordgo.ErrCodeUnknownUser) {
		return nil, nil
	}
	return m, err
}

func (p *SessionPlatform) guild(ctx context.Context, guildID string) (*discordgo.Guild, []*discordgo.Role, error) {
	if g, err := p.s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g, g.Roles, nil
	}
	g, err := p.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	roles := g.Roles
	if len(roles) == 0 {
		if roles, err = p.s.GuildRoles(guildID, discordgo.WithContext(ctx)); err != nil {
			return nil, nil, err
		}
	}
	return g, roles, nil
}

// Authority uses the permissions resolved by the interaction when present,
// otherwise @everyone plus the member's roles
func (p *SessionPlatform) Authority(ctx context.Context, guildID string, m *discordgo.Member) (Authority, error) {
	g, roles, err := p.guild(ctx, guildID)
	if err != nil {
		return Authority{}, err
	}
	owner := m.User != nil && g.OwnerID == m.User.ID
	perms, top := memberRank(guildID, m, roles)
	if m.Permissions != 0 {
		perms = m.Permissions
	}
	return NewAuthority(perms, top, owner), nil
}

// memberRank folds the member's roles into a permission set and the
// position of the highest role
func memberRank(guildID string, m *discordgo.Member, roles []*discordgo.Role) (int64, int) {
	held := make(map[string]bool, len(m.Roles))
	for _, id := range m.Roles {
		held[id] = true
	}

	var perms int64
	top := 0
	for _, r := range roles {
		switch {
		case r.ID == guildID:
			perms |= r.Permissions
		case held[r.ID]:
			perms |= r.Permissions
			if r.Position > top {
				top = r.Position
			}
		}
	}
	return perms, top
}

func (p *SessionPlatform) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := p.s.GuildBan(guildID, userID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	if restCode(err, discordgo.ErrCodeUnknownBan) {
		return false, nil
	}
	return false, err
}

func (p *SessionPlatform) Ban(ctx context.Context, guildID, userID, reason string) error {
	return p.s.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (p *SessionPlatform) Unban(ctx context.Context, guildID, userID, reason string) error {
	err := p.s.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if restCode(err, discordgo.ErrCodeUnknownBan) {
		return nil
	}
	return err
}

func (p *SessionPlatform) Kick(ctx context.Context, guildID, userID, reason string) error {
	return p.s.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (p *SessionPlatform) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *SessionPlatform) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *SessionPlatform) Timeout(ctx context.Context, guildID, userID string, until *time.Time, reason string) error {
	return p.s.GuildMemberTimeout(guildID, userID, until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *SessionPlatform) DirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.s.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *SessionPlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

// InteractionResponder answers one interaction. The first call responds and
// later calls edit that response or send followups.
type InteractionResponder struct {
	s *discordgo.Session
	i *discordgo.Interaction

	mu        sync.Mutex
	responded bool
	// update is set for buttons and modals: their message is the menu itself
	update bool
}

var errAlreadyResponded = errors.New("interaction already answered")

func NewInteractionResponder(s *discordgo.Session, i *discordgo.Interaction) *InteractionResponder {
	return &InteractionResponder{
		s:      s,
		i:      i,
		update: i.Type == discordgo.InteractionMessageComponent || i.Type == discordgo.InteractionModalSubmit,
	}
}

func (r *InteractionResponder) Show(ctx context.Context, v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	embeds := []*discordgo.MessageEmbed{v.Embed}
	components := v.Components
	if !r.responded {
		typ := discordgo.InteractionResponseChannelMessageWithSource
		if r.update {
			typ = discordgo.InteractionResponseUpdateMessage
		}
		err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: typ,
			Data: &discordgo.InteractionResponseData{Embeds: embeds, Components: components},
		}, discordgo.WithContext(ctx))
		if err == nil {
			r.responded = true
		}
		return err
	}

	_, err := r.s.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

func (r *InteractionResponder) Prompt(ctx context.Context, d Dialog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responded {
		return errAlreadyResponded
	}
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: d.Modal(),
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.responded = true
	}
	return err
}

func (r *InteractionResponder) Notify(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.responded {
		err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "❌ " + text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}, discordgo.WithContext(ctx))
		if err == nil {
			r.responded = true
		}
		return err
	}

	_, err := r.s.FollowupMessageCreate(r.i, false, &discordgo.WebhookParams{
		Content: "❌ " + text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	return err
}

func (r *InteractionResponder) Defer(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responded {
		return nil
	}
	typ := discordgo.InteractionResponseDeferredChannelMessageWithSource
	if r.update {
		typ = discordgo.InteractionResponseDeferredMessageUpdate
	}
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{Type: typ}, discordgo.WithContext(ctx))
	if err == nil {
		r.responded = true
	}
	return err
}
