package database

import (
	"context"
	"errors"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// GuildConfigsCollection stores per-guild moderation settings
const GuildConfigsCollection = "Guild_configurations"

const configTimeout = 5 * time.Second

var ErrGuildConfigNotInitialized = errors.New("guild config data manager not initialized")

// GlobalGuildConfigDM is the shared cached accessor for guild settings
var GlobalGuildConfigDM *DataManager[models.GuildConfig]

// InitGlobalDataManagers initializes shared DataManager instances
func InitGlobalDataManagers(db *Database) {
	GlobalGuildConfigDM = NewDataManager[models.GuildConfig](db, GuildConfigsCollection, "guild_id", DefaultMaxCached)
}

// GuildConfigService reads and writes guild settings through the DataManager cache
type GuildConfigService struct {
	dm *DataManager[models.GuildConfig]
}

// NewGuildConfigService wraps a DataManager; nil uses GlobalGuildConfigDM
func NewGuildConfigService(dm *DataManager[models.GuildConfig]) *GuildConfigService {
	if dm == nil {
		dm = GlobalGuildConfigDM
	}
	return &GuildConfigService{dm: dm}
}

// Get returns the settings of a guild. Guilds never configured get an empty
// config, not an error.
func (s *GuildConfigService) Get(guildID string) (*models.GuildConfig, error) {
	if s.dm == nil {
		return nil, ErrGuildConfigNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), configTimeout)
	defer cancel()

	cfg, err := s.dm.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &models.GuildConfig{GuildID: guildID}, nil
	}
	return cfg, nil
}

func (s *GuildConfigService) set(guildID string, fields bson.M) error {
	if s.dm == nil {
		return ErrGuildConfigNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), configTimeout)
	defer cancel()
	_, err := s.dm.Set(ctx, guildID, fields)
	return err
}

// SetJailRole stores the role used by jail and kidnap
func (s *GuildConfigService) SetJailRole(guildID, roleID string) error {
	return s.set(guildID, bson.M{"jail_role": roleID})
}

// SetJailChannel stores the channel jailed members can still see
func (s *GuildConfigService) SetJailChannel(guildID, channelID string) error {
	return s.set(guildID, bson.M{"jail_channel": channelID})
}

// SetLogChannel stores the channel that receives moderation notices
func (s *GuildConfigService) SetLogChannel(guildID, channelID string) error {
	return s.set(guildID, bson.M{"log_channel": channelID})
}

// SetKidnapEnabled toggles the kidnap variant of jail
func (s *GuildConfigService) SetKidnapEnabled(guildID string, enabled bool) error {
	return s.set(guildID, bson.M{"kidnap_enabled": enabled})
}

// Reset forgets every setting of a guild
func (s *GuildConfigService) Reset(guildID string) error {
	if s.dm == nil {
		return ErrGuildConfigNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), configTimeout)
	defer cancel()
	return s.dm.Delete(ctx, guildID)
}

// CachedGuilds returns how many guild configurations are held in memory
func (s *GuildConfigService) CachedGuilds() int {
	if s.dm == nil {
		return 0
	}
	return s.dm.CacheSize()
}
