package punish

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// EventExpired is published when the watcher lifts a temporary ban
const EventExpired = "expired"

// DefaultExpiryInterval is how often expired bans are looked for
const DefaultExpiryInterval = 5 * time.Second

// Watcher keeps the platform in sync with stored cases: it lifts expired
// bans and reacts to changes made outside the bot
type Watcher struct {
	deps     *Deps
	configs  GuildConfigs
	locks    *LockRegistry
	interval time.Duration
}

// NewWatcher shares locks with the Manager so it never touches a target that
// has a flow open
func NewWatcher(deps *Deps, configs GuildConfigs, locks *LockRegistry, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultExpiryInterval
	}
	return &Watcher{deps: deps, configs: configs, locks: locks, interval: interval}
}

// Run sweeps every interval until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.System(fmt.Sprintf("Vigilante de sanciones iniciado (cada %s)", w.interval), "Expiry")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep lifts every ban whose expiry passed and returns how many it lifted.
// A target locked by a flow is retried on the next sweep.
func (w *Watcher) Sweep(ctx context.Context) int {
	now := w.deps.now()
	expired, err := w.deps.Store.ListExpired(ctx, models.KindBan, now.Unix())
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudieron listar los baneos expirados: %v", err), "Expiry")
		return 0
	}

	lifted := 0
	for i := range expired {
		p := &expired[i]
		wait, cancel := context.WithTimeout(ctx, w.interval)
		err := w.locks.Acquire(wait, p.GuildID, p.UserID)
		cancel()
		if err != nil {
			logger.Debug(fmt.Sprintf("Baneo %s pospuesto: el usuario tiene un menú abierto", p.ID), "Expiry")
			continue
		}

		if err := w.liftBan(ctx, p); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo levantar el baneo %s: %v", p.ID, err), "Expiry")
		} else {
			lifted++
		}

		if err := w.locks.Release(p.GuildID, p.UserID); err != nil {
			logger.Error(fmt.Sprintf("Liberación inválida del bloqueo %s/%s: %v", p.GuildID, p.UserID, err), "PunishLock")
		}
	}
	return lifted
}

func (w *Watcher) liftBan(ctx context.Context, p *models.Punishment) error {
	banned, err := w.deps.Platform.IsBanned(ctx, p.GuildID, p.UserID)
	if err != nil {
		return err
	}
	if banned {
		if err := w.deps.Platform.Unban(ctx, p.GuildID, p.UserID, "Baneo temporal expirado"); err != nil {
			return err
		}
	}
	if err := w.deps.Store.Invalidate(ctx, p.GuildID, p.ID, false); err != nil {
		return err
	}

	w.deps.Metrics.PunishmentExpired(string(p.Kind))
	if w.deps.Notifier != nil {
		p.DateExpires = models.ExpiresRevoked
		if err := w.deps.Notifier.PublishPunishment(EventExpired, p); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo publicar el evento %s: %v", EventExpired, err), "Expiry")
		}
	}
	logger.Info(fmt.Sprintf("Baneo %s de %s expirado en %s", p.ID, p.UserID, p.GuildID), "Expiry")
	return nil
}

// HandleMemberJoin puts the jail role back on members who left while jailed
func (w *Watcher) HandleMemberJoin(ctx context.Context, guildID string, member *discordgo.Member) error {
	if member == nil || member.User == nil {
		return nil
	}
	cfg, err := w.configs.Get(guildID)
	if err != nil || cfg.JailRole == "" {
		return err
	}

	active, err := w.deps.Store.FindActive(ctx, guildID, member.User.ID, models.KindJail, w.deps.now().Unix())
	if err != nil || active == nil {
		return err
	}
	if err := w.deps.Platform.AddRole(ctx, guildID, member.User.ID, cfg.JailRole, "Evasión de cárcel"); err != nil {
		return fmt.Errorf("re-jail %s: %w", member.User.ID, err)
	}
	logger.Info(fmt.Sprintf("%s volvió a %s estando encarcelado (caso %s)", member.User.ID, guildID, active.ID), "Expiry")
	return nil
}

// HandleUnban expires the ban case of a user unbanned by hand. Unbans made
// while the target is locked come from the bot itself and are ignored.
func (w *Watcher) HandleUnban(ctx context.Context, guildID, userID string) error {
	if w.locks.IsLocked(guildID, userID) {
		return nil
	}
	revoked, err := w.deps.Store.RevokeActive(ctx, guildID, userID, models.KindBan, w.deps.now().Unix())
	if err != nil {
		return err
	}
	if revoked {
		w.deps.Metrics.PunishmentRevoked(string(models.KindBan))
		logger.Info(fmt.Sprintf("Baneo de %s en %s revocado manualmente", userID, guildID), "Expiry")
	}
	return nil
}

// HandleRolesChanged expires the jail case when the jail role was removed by
// hand. before may be nil when the member was not cached.
func (w *Watcher) HandleRolesChanged(ctx context.Context, guildID string, before, member *discordgo.Member) error {
	if member == nil || member.User == nil || w.locks.IsLocked(guildID, member.User.ID) {
		return nil
	}
	cfg, err := w.configs.Get(guildID)
	if err != nil || cfg.JailRole == "" || hasRole(member, cfg.JailRole) {
		return err
	}
	if before != nil && !hasRole(before, cfg.JailRole) {
		return nil
	}

	revoked, err := w.deps.Store.RevokeActive(ctx, guildID, member.User.ID, models.KindJail, w.deps.now().Unix())
	if err != nil {
		return err
	}
	if revoked {
		w.deps.Metrics.PunishmentRevoked(string(models.KindJail))
		logger.Info(fmt.Sprintf("Cárcel de %s en %s revocada manualmente", member.User.ID, guildID), "Expiry")
	}
	return nil
}
