package punish

import (
	"errors"

	"github.com/PancyStudios/PancyMod/pkg/database"
)

// Errores que rechazan /mod punish antes de abrir un menú
var (
	ErrNoTarget            = errors.New("punish: no target")
	ErrTargetIsBot         = errors.New("punish: target is a bot")
	ErrNotModerator        = errors.New("punish: issuer is not a moderator")
	ErrTargetAboveBot      = errors.New("punish: target ranks above the bot")
	ErrTargetSharesBotRole = errors.New("punish: target shares the bot's top role")
	ErrTargetAboveIssuer   = errors.New("punish: target ranks at or above the issuer")
	ErrTargetIsModerator   = errors.New("punish: target is a moderator")
	ErrSelfPunishment      = errors.New("punish: issuer targeted themselves")
	ErrFlowInProgress      = errors.New("punish: a flow is already open for this target")
)

// Errores de validación dentro de un menú abierto. El paso actual no cambia.
var (
	ErrEmptyDuration    = errors.New("punish: empty duration")
	ErrInvalidDuration  = errors.New("punish: invalid duration")
	ErrDurationTooShort = errors.New("punish: duration below the minimum")
	ErrTimeoutTooLong   = errors.New("punish: timeout above the maximum")
	ErrEmptyReason      = errors.New("punish: empty reason")
	ErrWrongStep        = errors.New("punish: input does not belong to the current step")
	ErrOptionDisabled   = errors.New("punish: option is not available")
	ErrFlowFinished     = errors.New("punish: flow already finished")
	ErrNotIssuer        = errors.New("punish: only the issuer may drive the flow")
	ErrDialogExpired    = errors.New("punish: dialog expired")
	ErrFlowBusy         = errors.New("punish: flow is still handling the previous input")
)

var (
	ErrJailRoleMissing = errors.New("punish: no jail role configured")
	ErrNotRevocable    = errors.New("punish: kind cannot be revoked")
	ErrNotMember       = errors.New("punish: target is not a member")

	// ErrLockNotHeld signals a release without a matching acquire. It is a
	// programming error, never shown to users.
	ErrLockNotHeld = errors.New("punish: lock not held")
)

// GenericFailure is the notice shown for unexpected errors
const GenericFailure = "Ocurrió un error desconocido, lo siento."

var userMessages = []struct {
	err error
	msg string
}{
	{ErrNoTarget, "Especifica el miembro o usuario que quieres sancionar."},
	{ErrTargetIsBot, "No puedes sancionar a un bot."},
	{ErrNotModerator, "Necesitas ser moderador para usar este comando."},
	{ErrTargetAboveBot, "El miembro especificado está por encima de mí."},
	{ErrTargetSharesBotRole, "El miembro especificado comparte mi rol más alto, no puedo sancionarlo."},
	{ErrTargetAboveIssuer, "El miembro especificado está por encima o comparte rol contigo."},
	{ErrTargetIsModerator, "No puedes sancionar a un moderador."},
	{ErrSelfPunishment, "No puedes sancionarte a ti mismo."},
	{ErrFlowInProgress, "Ya hay un menú de sanción abierto para este usuario."},
	{ErrEmptyDuration, "La duración no puede estar vacía."},
	{ErrInvalidDuration, "La duración no es válida. Ejemplos: 45m, 2h, 1d12h, 1w."},
	{ErrDurationTooShort, "La duración mínima es de 5 minutos."},
	{ErrTimeoutTooLong, "Un aislamiento no puede durar más de 4 semanas."},
	{ErrEmptyReason, "La razón no puede estar vacía."},
	{ErrWrongStep, "Ese botón ya no es válido."},
	{ErrOptionDisabled, "Esa opción no está disponible."},
	{ErrFlowFinished, "Este menú ya terminó."},
	{ErrNotIssuer, "Este menú no puede ser controlado por ti, lo siento!"},
	{ErrDialogExpired, "El formulario ha expirado."},
	{ErrFlowBusy, "El menú aún está procesando la acción anterior, inténtalo de nuevo."},
	{ErrJailRoleMissing, "No hay un rol de cárcel configurado. Usa /mod setup."},
	{ErrNotMember, "El usuario no es miembro del servidor."},
	{database.ErrCaseIDExhausted, "No se pudo generar un identificador de caso. Inténtalo de nuevo."},
}

// UserMessage returns the Spanish notice for err, or GenericFailure
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return GenericFailure
}

// IsValidation reports whether err should re-prompt instead of ending the flow
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyDuration, ErrInvalidDuration, ErrDurationTooShort, ErrTimeoutTooLong,
		ErrEmptyReason, ErrWrongStep, ErrOptionDisabled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
