package models

// GuildConfig representa el documento de "Guild_configurations"
type GuildConfig struct {
	GuildID       string `bson:"guild_id" json:"guild_id"`
	JailRole      string `bson:"jail_role,omitempty" json:"jail_role,omitempty"`
	JailChannel   string `bson:"jail_channel,omitempty" json:"jail_channel,omitempty"`
	LogChannel    string `bson:"log_channel,omitempty" json:"log_channel,omitempty"`
	KidnapEnabled bool   `bson:"kidnap_enabled" json:"kidnap_enabled"`
}
