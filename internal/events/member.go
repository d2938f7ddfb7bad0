package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/discord"
	apperrors "github.com/PancyStudios/PancyMod/pkg/errors"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const memberTimeout = 15 * time.Second

// RegisterMemberEvents keeps jail and ban records in sync with the guild
func RegisterMemberEvents(client *discord.ExtendedClient, w MemberWatcher) {
	client.EventHandler.OnGuildMemberAdd(onMemberAdd(w))
	client.EventHandler.OnGuildMemberUpdate(onMemberUpdate(w))
	client.EventHandler.OnGuildBanRemove(onBanRemove(w))
}

func withTimeout(prefix string, fn func(ctx context.Context) error) {
	defer apperrors.RecoverMiddleware()()

	ctx, cancel := context.WithTimeout(context.Background(), memberTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error(err.Error(), prefix)
	}
}

// onMemberAdd re-applies the jail role to members that rejoin while jailed
func onMemberAdd(w MemberWatcher) func(*discordgo.Session, *discordgo.GuildMemberAdd) {
	return func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		withTimeout("Member", func(ctx context.Context) error {
			if err := w.HandleMemberJoin(ctx, m.GuildID, m.Member); err != nil {
				return fmt.Errorf("error comprobando la cárcel al entrar: %w", err)
			}
			return nil
		})
	}
}

// onMemberUpdate revokes the jail record when the role is removed by hand
func onMemberUpdate(w MemberWatcher) func(*discordgo.Session, *discordgo.GuildMemberUpdate) {
	return func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		if m.Member == nil {
			return
		}
		withTimeout("Member", func(ctx context.Context) error {
			if err := w.HandleRolesChanged(ctx, m.GuildID, m.BeforeUpdate, m.Member); err != nil {
				return fmt.Errorf("error sincronizando roles: %w", err)
			}
			return nil
		})
	}
}

// onBanRemove revokes the ban record of a user unbanned from the client
func onBanRemove(w MemberWatcher) func(*discordgo.Session, *discordgo.GuildBanRemove) {
	return func(s *discordgo.Session, b *discordgo.GuildBanRemove) {
		if b.User == nil {
			return
		}
		withTimeout("Member", func(ctx context.Context) error {
			if err := w.HandleUnban(ctx, b.GuildID, b.User.ID); err != nil {
				return fmt.Errorf("error sincronizando desbaneo: %w", err)
			}
			return nil
		})
	}
}
