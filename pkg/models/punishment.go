package models

// PunishmentKind identifica el tipo de sanción persistida
type PunishmentKind string

const (
	KindBan     PunishmentKind = "ban"
	KindKick    PunishmentKind = "kick"
	KindJail    PunishmentKind = "jail"
	KindTimeout PunishmentKind = "timeout"
	KindWarning PunishmentKind = "warning"
)

// Valores especiales de DateExpires
const (
	ExpiresNever   int64 = -1
	ExpiresRevoked int64 = 0
)

// Punishment representa un caso en la colección "Punishments"
type Punishment struct {
	ID            string         `bson:"id" json:"id"`
	Kind          PunishmentKind `bson:"type" json:"type"`
	GuildID       string         `bson:"guild_id" json:"guild_id"`
	UserID        string         `bson:"user_id" json:"user_id"`
	UserName      string         `bson:"user_name" json:"user_name"`
	ModeratorID   string         `bson:"moderator_id" json:"moderator_id"`
	ModeratorName string         `bson:"moderator_name" json:"moderator_name"`
	Reason        string         `bson:"reason" json:"reason"`
	DateIssued    int64          `bson:"date_issued" json:"date_issued"`
	DateExpires   int64          `bson:"date_expires" json:"date_expires"`
	Visible       bool           `bson:"visible" json:"visible"`
}

// IsPermanent indica si la sanción no expira nunca
func (p *Punishment) IsPermanent() bool {
	return p.DateExpires == ExpiresNever
}

// IsRevoked indica si la sanción fue revocada o invalidada
func (p *Punishment) IsRevoked() bool {
	return p.DateExpires == ExpiresRevoked
}

// IsActive indica si la sanción sigue vigente en el instante now (epoch en segundos)
func (p *Punishment) IsActive(now int64) bool {
	if !p.Visible {
		return false
	}
	return p.IsPermanent() || p.DateExpires > now
}

// ModerationStats agrupa los contadores de /mod modstats
type ModerationStats struct {
	Bans       int64 `json:"bans"`
	Kicks      int64 `json:"kicks"`
	Jails      int64 `json:"jails"`
	Timeouts   int64 `json:"timeouts"`
	Warnings   int64 `json:"warnings"`
	UserTotal  int64 `json:"user_total"`
	GuildTotal int64 `json:"guild_total"`
}
