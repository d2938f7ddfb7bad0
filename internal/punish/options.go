package punish

import (
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Action is a button of the type selector
type Action string

const (
	ActionBan       Action = "ban"
	ActionUnban     Action = "unban"
	ActionKick      Action = "kick"
	ActionJail      Action = "jail"
	ActionKidnap    Action = "kidnap"
	ActionUnjail    Action = "unjail"
	ActionTimeout   Action = "timeout"
	ActionUntimeout Action = "untimeout"
	ActionWarn      Action = "warn"
)

type actionInfo struct {
	kind   models.PunishmentKind
	label  string
	emoji  string
	style  discordgo.ButtonStyle
	revoke bool
}

var actions = map[Action]actionInfo{
	ActionBan:       {models.KindBan, "Banear", "🔨", discordgo.DangerButton, false},
	ActionUnban:     {models.KindBan, "Desbanear", "🔓", discordgo.SuccessButton, true},
	ActionKick:      {models.KindKick, "Expulsar", "👢", discordgo.DangerButton, false},
	ActionJail:      {models.KindJail, "Encarcelar", "⛓️", discordgo.SecondaryButton, false},
	ActionKidnap:    {models.KindJail, "Secuestrar", "🚐", discordgo.SecondaryButton, false},
	ActionUnjail:    {models.KindJail, "Liberar", "🕊️", discordgo.SuccessButton, true},
	ActionTimeout:   {models.KindTimeout, "Aislar", "🔇", discordgo.SecondaryButton, false},
	ActionUntimeout: {models.KindTimeout, "Quitar aislamiento", "🔊", discordgo.SuccessButton, true},
	ActionWarn:      {models.KindWarning, "Advertir", "⚠️", discordgo.PrimaryButton, false},
}

// ParseAction validates an action coming back from a button id
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := actions[a]
	return a, ok
}

// Kind is the record kind the action creates or revokes
func (a Action) Kind() models.PunishmentKind { return actions[a].kind }

// IsRevoke reports whether the action lifts an existing punishment
func (a Action) IsRevoke() bool { return actions[a].revoke }

func (a Action) Label() string { return actions[a].label }

// ModLevel is the moderator tier derived from guild permissions
type ModLevel int

const (
	LevelNone ModLevel = iota
	LevelJunior
	LevelNormal
	LevelSenior
	LevelAdmin
)

func (l ModLevel) String() string {
	switch l {
	case LevelJunior:
		return "Moderador junior"
	case LevelNormal:
		return "Moderador"
	case LevelSenior:
		return "Moderador senior"
	case LevelAdmin:
		return "Administrador"
	default:
		return "Sin rango"
	}
}

// LevelFromPermissions maps a permission bitset to a moderator tier
func LevelFromPermissions(perms int64) ModLevel {
	switch {
	case perms&discordgo.PermissionAdministrator != 0:
		return LevelAdmin
	case perms&discordgo.PermissionManageGuild != 0:
		return LevelSenior
	case perms&discordgo.PermissionBanMembers != 0:
		return LevelNormal
	case perms&(discordgo.PermissionKickMembers|discordgo.PermissionModerateMembers|discordgo.PermissionManageMessages) != 0:
		return LevelJunior
	default:
		return LevelNone
	}
}

// Authority is what a member may do in a guild and where they sit in the
// role hierarchy. The owner ranks above every role.
type Authority struct {
	Level       ModLevel
	Permissions int64
	TopRole     int
	Owner       bool
}

// NewAuthority derives the level from perms
func NewAuthority(perms int64, topRole int, owner bool) Authority {
	if owner {
		perms |= discordgo.PermissionAdministrator
	}
	return Authority{
		Level:       LevelFromPermissions(perms),
		Permissions: perms,
		TopRole:     topRole,
		Owner:       owner,
	}
}

// Has reports whether every bit of perm is granted
func (a Authority) Has(perm int64) bool {
	if a.Owner || a.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return a.Permissions&perm == perm
}

// Outranks reports whether a sits strictly above o
func (a Authority) Outranks(o Authority) bool {
	if a.Owner || o.Owner {
		return a.Owner && !o.Owner
	}
	return a.TopRole > o.TopRole
}

// TargetState is the target's current standing in the guild
type TargetState struct {
	IsMember bool
	Banned   bool
	Jailed   bool
	TimedOut bool
}

// OptionContext is everything the type selector depends on
type OptionContext struct {
	Issuer        Authority
	Bot           Authority
	Target        TargetState
	JailRoleSet   bool
	KidnapEnabled bool
}

// TypeOption is one button of the type selector
type TypeOption struct {
	Action  Action
	Enabled bool
}

// TypeOptions lists the type selector buttons. Disabled buttons are still
// shown so moderators can see what they lack.
func TypeOptions(c OptionContext) []TypeOption {
	canBan := c.Issuer.Level >= LevelNormal && c.Issuer.Has(discordgo.PermissionBanMembers) &&
		c.Bot.Has(discordgo.PermissionBanMembers)
	canUnban := c.Issuer.Level >= LevelSenior && c.Issuer.Has(discordgo.PermissionBanMembers) &&
		c.Bot.Has(discordgo.PermissionBanMembers)
	canKick := c.Issuer.Level >= LevelJunior && c.Issuer.Has(discordgo.PermissionKickMembers) &&
		c.Bot.Has(discordgo.PermissionKickMembers)
	canTimeout := c.Bot.Has(discordgo.PermissionModerateMembers)
	canJail := c.Bot.Has(discordgo.PermissionManageRoles)
	member := c.Target.IsMember

	opts := make([]TypeOption, 0, 6)
	if c.Target.Banned {
		opts = append(opts, TypeOption{ActionUnban, canUnban})
	} else {
		opts = append(opts, TypeOption{ActionBan, canBan})
	}

	opts = append(opts, TypeOption{ActionKick, member && canKick})

	if c.Target.Jailed {
		opts = append(opts, TypeOption{ActionUnjail, canJail})
	} else {
		opts = append(opts, TypeOption{ActionJail, member && c.JailRoleSet && canJail})
		if c.KidnapEnabled {
			opts = append(opts, TypeOption{ActionKidnap, member && c.JailRoleSet && canJail})
		}
	}

	if c.Target.TimedOut {
		opts = append(opts, TypeOption{ActionUntimeout, canTimeout})
	} else {
		opts = append(opts, TypeOption{ActionTimeout, member && canTimeout})
	}

	opts = append(opts, TypeOption{ActionWarn, member})
	return opts
}

// LengthOption is one button of the length selector
type LengthOption struct {
	Label  string
	Length Length
	Custom bool
}

// ReasonOption is one button of the reason selector. Reason is the text
// stored in the case.
type ReasonOption struct {
	Label  string
	Reason string
	Custom bool
}

var customLength = LengthOption{Label: "Personalizada", Custom: true}
var customReason = ReasonOption{Label: "Personalizada", Custom: true}

var lengthMenus = map[Action][]LengthOption{
	ActionTimeout: {
		{Label: "30 minutos", Length: Length{Duration: 30 * time.Minute}},
		{Label: "Una hora", Length: Length{Duration: time.Hour}},
		{Label: "2 horas", Length: Length{Duration: 2 * time.Hour}},
		{Label: "12 horas", Length: Length{Duration: 12 * time.Hour}},
		{Label: "Un día", Length: Length{Duration: 24 * time.Hour}},
		{Label: "Una semana", Length: Length{Duration: 7 * 24 * time.Hour}},
		{Label: "4 semanas (máx)", Length: Length{Duration: MaxTimeoutLength}},
		customLength,
	},
	ActionBan: {
		{Label: "24 horas", Length: Length{Duration: 24 * time.Hour}},
		{Label: "Una semana", Length: Length{Duration: 7 * 24 * time.Hour}},
		{Label: "2 semanas", Length: Length{Duration: 14 * 24 * time.Hour}},
		{Label: "Un mes", Length: Length{Duration: 30 * 24 * time.Hour}},
		{Label: "Permanente", Length: PermanentLength()},
		customLength,
	},
}

var jailReasons = []ReasonOption{
	{Label: "Investigación pendiente", Reason: "Investigación pendiente."},
	{Label: "Interrogatorio", Reason: "Interrogatorio."},
	customReason,
}

var reasonMenus = map[Action][]ReasonOption{
	ActionBan: {
		{Label: "Ignorar a los moderadores", Reason: "Ignorar las órdenes de los moderadores."},
		{Label: "Contenido hackeado", Reason: "Compartir contenido hackeado."},
		{Label: "Contenido ofensivo", Reason: "Publicar contenido ofensivo o discurso de odio."},
		{Label: "Menor de edad", Reason: "Estás por debajo de la edad permitida por los Términos de Servicio de Discord."},
		{Label: "Acoso a miembros", Reason: "Acosar a otros miembros."},
		{Label: "Estafa o phishing", Reason: "Compartir estafas o contenido de phishing."},
		{Label: "Reincidencia", Reason: "Infracciones continuas o repetidas."},
		customReason,
	},
	ActionKick: {
		{Label: "Menor de edad", Reason: "Estás por debajo de la edad permitida por los Términos de Servicio de Discord. Vuelve cuando seas mayor."},
		{Label: "Cuenta alternativa", Reason: "No se permiten cuentas alternativas."},
		customReason,
	},
	ActionJail:   jailReasons,
	ActionKidnap: jailReasons,
	ActionTimeout: {
		{Label: "Alterado o molesto", Reason: "Estar alterado o molesto."},
		{Label: "Spam", Reason: "Spam."},
		{Label: "Interrumpir el chat", Reason: "Interrumpir el chat."},
		customReason,
	},
	ActionWarn: {
		{Label: "Spam", Reason: "Spam."},
		{Label: "Desobedecer órdenes", Reason: "No seguir las órdenes."},
		{Label: "Ignorar advertencia verbal", Reason: "No cumplir con una advertencia verbal."},
		{Label: "Contenido de odio", Reason: "Compartir contenido de odio."},
		{Label: "Canales equivocados", Reason: "Uso repetido de canales equivocados."},
		{Label: "Contenido NSFW", Reason: "Compartir contenido NSFW."},
		{Label: "Política", Reason: "Política o contenido político."},
		customReason,
	},
}

// LengthOptions returns the length menu of an action, empty when it takes none
func LengthOptions(a Action) []LengthOption { return lengthMenus[a] }

// ReasonOptions returns the reason menu of an action, empty when it takes none
func ReasonOptions(a Action) []ReasonOption { return reasonMenus[a] }
