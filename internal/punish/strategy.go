package punish

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/metrics"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Event names published through the Notifier
const (
	EventIssued  = "issued"
	EventRevoked = "revoked"
)

const (
	colorBan     = 0xED4245
	colorKick    = 0xE67E22
	colorJail    = 0x95A5A6
	colorTimeout = 0xFEE75C
	colorWarning = 0xF1C40F
	colorRevoke  = 0x57F287
)

// Notice is what a strategy produced: the public announcement, the private
// message for the target and the stored case, when there is one
type Notice struct {
	Public  *discordgo.MessageEmbed
	Private *discordgo.MessageEmbed
	Case    *models.Punishment
}

// Deps are the collaborators shared by every strategy
type Deps struct {
	Store           Store
	Platform        Platform
	Notifier        Notifier
	Metrics         *metrics.Metrics
	Now             func() time.Time
	WarningLifetime time.Duration
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Target describes who is punished, by whom and where
type Target struct {
	GuildID    string
	ChannelID  string
	Issuer     *discordgo.User
	User       *discordgo.User
	IsMember   bool
	JailRole   string
	LogChannel string
}

// Strategy is the kind-specific enforcement of a punishment
type Strategy interface {
	Kind() models.PunishmentKind
	// SetLength is ignored by kinds without a duration
	SetLength(l *Length)
	SetReason(reason string)
	// Issue enforces, persists, then notifies. Notification failures are
	// logged and swallowed.
	Issue(ctx context.Context) (*Notice, error)
	// Revoke lifts the punishment and expires the newest active case. With no
	// active case it still succeeds and changes nothing.
	Revoke(ctx context.Context, reason string) (*Notice, error)
}

// NewStrategy builds the strategy behind an action
func NewStrategy(a Action, d *Deps, t Target) Strategy {
	b := base{deps: d, target: t}
	switch a.Kind() {
	case models.KindBan:
		return &banStrategy{base: b}
	case models.KindKick:
		return &kickStrategy{base: b}
	case models.KindJail:
		return &jailStrategy{base: b, kidnap: a == ActionKidnap}
	case models.KindTimeout:
		return &timeoutStrategy{base: b}
	default:
		return &warningStrategy{base: b}
	}
}

type base struct {
	deps   *Deps
	target Target
	reason string
	length *Length
}

func (b *base) SetReason(reason string) { b.reason = reason }

// record builds the case for the current selections
func (b *base) record(kind models.PunishmentKind, now time.Time, expires int64) *models.Punishment {
	return &models.Punishment{
		Kind:          kind,
		GuildID:       b.target.GuildID,
		UserID:        b.target.User.ID,
		UserName:      b.target.User.Username,
		ModeratorID:   b.target.Issuer.ID,
		ModeratorName: b.target.Issuer.Username,
		Reason:        b.reason,
		DateIssued:    now.Unix(),
		DateExpires:   expires,
		Visible:       true,
	}
}

func (b *base) persist(ctx context.Context, p *models.Punishment) error {
	if _, err := b.deps.Store.Create(ctx, p); err != nil {
		return fmt.Errorf("persist %s case: %w", p.Kind, err)
	}
	return nil
}

func (b *base) requireReason() error {
	if b.reason == "" {
		return ErrEmptyReason
	}
	return nil
}

// dm sends the private notice. Closed DMs are common, so failures only log.
func (b *base) dm(ctx context.Context, embed *discordgo.MessageEmbed) {
	if embed == nil {
		return
	}
	if err := b.deps.Platform.DirectMessage(ctx, b.target.User.ID, embed); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo enviar MD a %s: %v", b.target.User.ID, err), "Punish")
	}
}

// announce runs the best-effort side effects after a successful action
func (b *base) announce(ctx context.Context, event string, n *Notice, p *models.Punishment) {
	if b.target.LogChannel != "" && n.Public != nil {
		if err := b.deps.Platform.SendEmbed(ctx, b.target.LogChannel, n.Public); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo publicar en el canal de registros %s: %v", b.target.LogChannel, err), "Punish")
		}
	}
	if p == nil {
		return
	}
	if b.deps.Notifier != nil {
		if err := b.deps.Notifier.PublishPunishment(event, p); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo publicar el evento %s: %v", event, err), "Punish")
		}
	}
	if event == EventIssued {
		b.deps.Metrics.PunishmentIssued(string(p.Kind))
	} else {
		b.deps.Metrics.PunishmentRevoked(string(p.Kind))
	}
}

// revoked is the event payload for a lifted punishment, nil when no active
// case was found
func (b *base) revoked(found bool, kind models.PunishmentKind, now time.Time) *models.Punishment {
	if !found {
		return nil
	}
	return b.record(kind, now, models.ExpiresRevoked)
}

func (b *base) publicEmbed(title, description string, color int, p *models.Punishment, length string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Usuario", Value: describeTarget(b.target.User), Inline: true},
		{Name: "Moderador", Value: escapeMarkdown(b.target.Issuer.Username), Inline: true},
	}
	if length != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Duración", Value: length, Inline: true})
	}
	if b.reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Razón", Value: b.reason})
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   b.deps.now().Format(time.RFC3339),
	}
	if p != nil && p.ID != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Caso #" + p.ID}
	}
	return embed
}

func (b *base) privateEmbed(title, action string, color int, length string) *discordgo.MessageEmbed {
	guild := b.deps.Platform.GuildName(b.target.GuildID)
	if guild == "" {
		guild = "el servidor"
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("Has sido %s en **%s**.", action, escapeMarkdown(guild)),
		Color:       color,
	}
	if length != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duración", Value: length, Inline: true})
	}
	if b.reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Razón", Value: b.reason})
	}
	return embed
}

func (b *base) lengthLabel() string {
	if b.length == nil {
		return ""
	}
	return b.length.String()
}

type banStrategy struct{ base }

func (s *banStrategy) Kind() models.PunishmentKind { return models.KindBan }
func (s *banStrategy) SetLength(l *Length)         { s.length = l }

func (s *banStrategy) Issue(ctx context.Context) (*Notice, error) {
	if err := s.requireReason(); err != nil {
		return nil, err
	}
	if s.length == nil {
		l := PermanentLength()
		s.length = &l
	}
	now := s.deps.now()

	// the target can no longer be messaged once banned
	private := s.privateEmbed("🔨 Baneo", "baneado", colorBan, s.lengthLabel())
	s.dm(ctx, private)

	if err := s.deps.Platform.Ban(ctx, s.target.GuildID, s.target.User.ID, s.reason); err != nil {
		return nil, fmt.Errorf("ban %s: %w", s.target.User.ID, err)
	}

	p := s.record(models.KindBan, now, s.length.ExpiresAt(now))
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	n := &Notice{
		Public:  s.publicEmbed("🔨 Baneo", fmt.Sprintf("**%s** ha sido baneado.", escapeMarkdown(s.target.User.Username)), colorBan, p, s.lengthLabel()),
		Private: private,
		Case:    p,
	}
	s.announce(ctx, EventIssued, n, p)
	return n, nil
}

func (s *banStrategy) Revoke(ctx context.Context, reason string) (*Notice, error) {
	s.reason = reason
	now := s.deps.now()

	banned, err := s.deps.Platform.IsBanned(ctx, s.target.GuildID, s.target.User.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch ban %s: %w", s.target.User.ID, err)
	}
	if banned {
		if err := s.deps.Platform.Unban(ctx, s.target.GuildID, s.target.User.ID, reason); err != nil {
			return nil, fmt.Errorf("unban %s: %w", s.target.User.ID, err)
		}
	}
	revoked, err := s.deps.Store.RevokeActive(ctx, s.target.GuildID, s.target.User.ID, models.KindBan, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("revoke ban case: %w", err)
	}

	n := &Notice{
		Public: s.publicEmbed("🔓 Desbaneo", fmt.Sprintf("**%s** ha sido desbaneado.", escapeMarkdown(s.target.User.Username)), colorRevoke, nil, ""),
	}
	s.announce(ctx, EventRevoked, n, s.revoked(revoked, models.KindBan, now))
	return n, nil
}

type kickStrategy struct{ base }

func (s *kickStrategy) Kind() models.PunishmentKind { return models.KindKick }
func (s *kickStrategy) SetLength(*Length)           {}

func (s *kickStrategy) Issue(ctx context.Context) (*Notice, error) {
	if err := s.requireReason(); err != nil {
		return nil, err
	}
	if !s.target.IsMember {
		return nil, ErrNotMember
	}
	now := s.deps.now()

	private := s.privateEmbed("👢 Expulsión", "expulsado", colorKick, "")
	s.dm(ctx, private)

	if err := s.deps.Platform.Kick(ctx, s.target.GuildID, s.target.User.ID, s.reason); err != nil {
		return nil, fmt.Errorf("kick %s: %w", s.target.User.ID, err)
	}

	p := s.record(models.KindKick, now, models.ExpiresNever)
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	n := &Notice{
		Public:  s.publicEmbed("👢 Expulsión", fmt.Sprintf("**%s** ha sido expulsado.", escapeMarkdown(s.target.User.Username)), colorKick, p, ""),
		Private: private,
		Case:    p,
	}
	s.announce(ctx, EventIssued, n, p)
	return n, nil
}

func (s *kickStrategy) Revoke(context.Context, string) (*Notice, error) {
	return nil, ErrNotRevocable
}

type jailStrategy struct {
	base
	kidnap bool
}

func (s *jailStrategy) Kind() models.PunishmentKind { return models.KindJail }
func (s *jailStrategy) SetLength(*Length)           {}

func (s *jailStrategy) Issue(ctx context.Context) (*Notice, error) {
	if s.target.JailRole == "" {
		return nil, ErrJailRoleMissing
	}
	if err := s.requireReason(); err != nil {
		return nil, err
	}
	if !s.target.IsMember {
		return nil, ErrNotMember
	}
	now := s.deps.now()

	if err := s.deps.Platform.AddRole(ctx, s.target.GuildID, s.target.User.ID, s.target.JailRole, s.reason); err != nil {
		return nil, fmt.Errorf("jail %s: %w", s.target.User.ID, err)
	}

	p := s.record(models.KindJail, now, models.ExpiresNever)
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	title, verb := "⛓️ Encarcelamiento", "encarcelado"
	public := fmt.Sprintf("**%s** ha sido encarcelado.", escapeMarkdown(s.target.User.Username))
	if s.kidnap {
		title, verb = "🚐 Secuestro", "secuestrado"
		public = fmt.Sprintf("**%s** ha sido secuestrado. Nadie sabe dónde está.", escapeMarkdown(s.target.User.Username))
	}

	n := &Notice{
		Public:  s.publicEmbed(title, public, colorJail, p, ""),
		Private: s.privateEmbed(title, verb, colorJail, ""),
		Case:    p,
	}
	s.dm(ctx, n.Private)
	s.announce(ctx, EventIssued, n, p)
	return n, nil
}

func (s *jailStrategy) Revoke(ctx context.Context, reason string) (*Notice, error) {
	s.reason = reason
	now := s.deps.now()

	if s.target.JailRole != "" && s.target.IsMember {
		if err := s.deps.Platform.RemoveRole(ctx, s.target.GuildID, s.target.User.ID, s.target.JailRole, reason); err != nil {
			return nil, fmt.Errorf("release %s: %w", s.target.User.ID, err)
		}
	}
	revoked, err := s.deps.Store.RevokeActive(ctx, s.target.GuildID, s.target.User.ID, models.KindJail, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("revoke jail case: %w", err)
	}

	n := &Notice{
		Public:  s.publicEmbed("🕊️ Liberación", fmt.Sprintf("**%s** ha sido liberado.", escapeMarkdown(s.target.User.Username)), colorRevoke, nil, ""),
		Private: s.privateEmbed("🕊️ Liberación", "liberado", colorRevoke, ""),
	}
	s.dm(ctx, n.Private)
	s.announce(ctx, EventRevoked, n, s.revoked(revoked, models.KindJail, now))
	return n, nil
}

type timeoutStrategy struct{ base }

func (s *timeoutStrategy) Kind() models.PunishmentKind { return models.KindTimeout }
func (s *timeoutStrategy) SetLength(l *Length)         { s.length = l }

func (s *timeoutStrategy) Issue(ctx context.Context) (*Notice, error) {
	if s.length == nil || s.length.Permanent || s.length.Duration > MaxTimeoutLength {
		return nil, ErrTimeoutTooLong
	}
	if err := s.requireReason(); err != nil {
		return nil, err
	}
	if !s.target.IsMember {
		return nil, ErrNotMember
	}
	now := s.deps.now()
	until := now.Add(s.length.Duration)

	if err := s.deps.Platform.Timeout(ctx, s.target.GuildID, s.target.User.ID, &until, s.reason); err != nil {
		return nil, fmt.Errorf("timeout %s: %w", s.target.User.ID, err)
	}

	p := s.record(models.KindTimeout, now, until.Unix())
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	n := &Notice{
		Public:  s.publicEmbed("🔇 Aislamiento", fmt.Sprintf("**%s** ha sido aislado.", escapeMarkdown(s.target.User.Username)), colorTimeout, p, s.lengthLabel()),
		Private: s.privateEmbed("🔇 Aislamiento", "aislado", colorTimeout, s.lengthLabel()),
		Case:    p,
	}
	s.dm(ctx, n.Private)
	s.announce(ctx, EventIssued, n, p)
	return n, nil
}

func (s *timeoutStrategy) Revoke(ctx context.Context, reason string) (*Notice, error) {
	s.reason = reason
	now := s.deps.now()

	if s.target.IsMember {
		if err := s.deps.Platform.Timeout(ctx, s.target.GuildID, s.target.User.ID, nil, reason); err != nil {
			return nil, fmt.Errorf("clear timeout %s: %w", s.target.User.ID, err)
		}
	}
	revoked, err := s.deps.Store.RevokeActive(ctx, s.target.GuildID, s.target.User.ID, models.KindTimeout, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("revoke timeout case: %w", err)
	}

	n := &Notice{
		Public:  s.publicEmbed("🔊 Aislamiento retirado", fmt.Sprintf("**%s** ya puede hablar de nuevo.", escapeMarkdown(s.target.User.Username)), colorRevoke, nil, ""),
		Private: s.privateEmbed("🔊 Aislamiento retirado", "liberado del aislamiento", colorRevoke, ""),
	}
	s.dm(ctx, n.Private)
	s.announce(ctx, EventRevoked, n, s.revoked(revoked, models.KindTimeout, now))
	return n, nil
}

type warningStrategy struct{ base }

func (s *warningStrategy) Kind() models.PunishmentKind { return models.KindWarning }
func (s *warningStrategy) SetLength(*Length)           {}

func (s *warningStrategy) Issue(ctx context.Context) (*Notice, error) {
	if err := s.requireReason(); err != nil {
		return nil, err
	}
	now := s.deps.now()

	expires := models.ExpiresNever
	if s.deps.WarningLifetime > 0 {
		expires = now.Add(s.deps.WarningLifetime).Unix()
	}
	p := s.record(models.KindWarning, now, expires)
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	n := &Notice{
		Public:  s.publicEmbed("⚠️ Advertencia", fmt.Sprintf("**%s** ha sido advertido.", escapeMarkdown(s.target.User.Username)), colorWarning, p, ""),
		Private: s.privateEmbed("⚠️ Advertencia", "advertido", colorWarning, ""),
		Case:    p,
	}
	s.dm(ctx, n.Private)
	s.announce(ctx, EventIssued, n, p)
	return n, nil
}

func (s *warningStrategy) Revoke(context.Context, string) (*Notice, error) {
	return nil, ErrNotRevocable
}
