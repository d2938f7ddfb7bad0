package punish

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CustomIDPrefix marks components and dialogs that belong to a punish flow
const CustomIDPrefix = "punish"

const (
	idType    = "type"
	idLength  = "length"
	idReason  = "reason"
	idConfirm = "confirm"
	idCancel  = "cancel"
	idDialog  = "dialog"

	// DialogInputID is the text input of every custom dialog
	DialogInputID = "value"
)

const (
	colorPending = 0x5865F2
	colorFailed  = 0xED4245
	maxPerRow    = 5
)

// ComponentID is a parsed "punish:<flow>:<kind>[:<value>]" custom id
type ComponentID struct {
	FlowID string
	Kind   string
	Value  string
}

func (c ComponentID) String() string {
	if c.Value == "" {
		return strings.Join([]string{CustomIDPrefix, c.FlowID, c.Kind}, ":")
	}
	return strings.Join([]string{CustomIDPrefix, c.FlowID, c.Kind, c.Value}, ":")
}

// ParseComponentID splits a custom id produced by this package
func ParseComponentID(id string) (ComponentID, bool) {
	parts := strings.SplitN(id, ":", 4)
	if len(parts) < 3 || parts[0] != CustomIDPrefix || parts[1] == "" {
		return ComponentID{}, false
	}
	c := ComponentID{FlowID: parts[1], Kind: parts[2]}
	if len(parts) == 4 {
		c.Value = parts[3]
	}
	switch c.Kind {
	case idCancel, idConfirm:
		return c, true
	case idType, idLength, idReason, idDialog:
		return c, c.Value != ""
	default:
		return ComponentID{}, false
	}
}

// IsFlowCustomID reports whether id should be routed to the Manager
func IsFlowCustomID(id string) bool {
	return strings.HasPrefix(id, CustomIDPrefix+":")
}

// View is a rendered menu message
type View struct {
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Dialog is a single text input modal
type Dialog struct {
	CustomID    string
	Title       string
	Label       string
	Placeholder string
	MaxLength   int
}

type dialogField int

const (
	fieldLength dialogField = iota
	fieldReason
)

func newDialog(flowID, token string, field dialogField) Dialog {
	id := ComponentID{FlowID: flowID, Kind: idDialog, Value: token}.String()
	if field == fieldLength {
		return Dialog{
			CustomID:    id,
			Title:       "Duración personalizada",
			Label:       "Duración",
			Placeholder: "Por ejemplo: 45m, 2h, 1d12h, 2w",
			MaxLength:   32,
		}
	}
	return Dialog{
		CustomID:    id,
		Title:       "Razón personalizada",
		Label:       "Razón",
		Placeholder: "Escribe la razón de la sanción",
		MaxLength:   400,
	}
}

// Modal converts the dialog into a modal response
func (d Dialog) Modal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: d.CustomID,
		Title:    d.Title,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    DialogInputID,
					Label:       d.Label,
					Style:       discordgo.TextInputShort,
					Placeholder: d.Placeholder,
					Required:    true,
					MaxLength:   d.MaxLength,
				},
			}},
		},
	}
}

var stepFooters = map[Step]string{
	StepTypeSelect:   "Selecciona el tipo de sanción",
	StepLengthSelect: "Selecciona la duración de la sanción",
	StepReasonSelect: "Selecciona la razón de la sanción",
	StepConfirm:      "Confirma o cancela la sanción",
	StepCancelled:    "La creación de la sanción ha sido cancelada",
	StepTimedOut:     "La creación de la sanción ha expirado",
	StepErrored:      "La creación de la sanción ha fallado",
}

// summary lists the selections made so far
func summary(f *Flow) string {
	if f.action == "" {
		return ""
	}
	lines := []string{"**Tipo:** " + f.action.Label()}
	if l, ok := f.Length(); ok {
		lines = append(lines, "**Duración:** "+l.String())
	}
	if r, ok := f.Reason(); ok {
		lines = append(lines, "**Razón:** "+r)
	}
	return strings.Join(lines, "\n")
}

// Render draws the current step. Terminal steps carry no components so the
// buttons disappear from the message.
func Render(f *Flow) View {
	if f.step == StepIssued && f.result != nil && f.result.Public != nil {
		return View{Embed: f.result.Public, Components: []discordgo.MessageComponent{}}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Sancionar a " + escapeMarkdown(f.Target.Username),
		Description: summary(f),
		Color:       colorPending,
		Footer:      &discordgo.MessageEmbedFooter{Text: stepFooters[f.step]},
	}
	if f.step.Terminal() {
		embed.Color = colorFailed
		if f.failure != "" {
			embed.Description = strings.TrimSpace(embed.Description + "\n\n" + f.failure)
		}
		return View{Embed: embed, Components: []discordgo.MessageComponent{}}
	}

	return View{Embed: embed, Components: rows(buttons(f))}
}

func buttons(f *Flow) []discordgo.Button {
	var out []discordgo.Button
	switch f.step {
	case StepTypeSelect:
		for _, opt := range f.types {
			info := actions[opt.Action]
			out = append(out, discordgo.Button{
				Label:    info.label,
				Style:    info.style,
				Disabled: !opt.Enabled,
				Emoji:    &discordgo.ComponentEmoji{Name: info.emoji},
				CustomID: ComponentID{FlowID: f.ID, Kind: idType, Value: string(opt.Action)}.String(),
			})
		}
	case StepLengthSelect:
		for i, opt := range LengthOptions(f.action) {
			out = append(out, optionButton(f.ID, idLength, i, opt.Label, opt.Custom))
		}
	case StepReasonSelect:
		for i, opt := range ReasonOptions(f.action) {
			out = append(out, optionButton(f.ID, idReason, i, opt.Label, opt.Custom))
		}
	case StepConfirm:
		out = append(out, discordgo.Button{
			Label:    "Confirmar",
			Style:    discordgo.SuccessButton,
			CustomID: ComponentID{FlowID: f.ID, Kind: idConfirm}.String(),
		})
	}
	return append(out, discordgo.Button{
		Label:    "Cancelar",
		Style:    discordgo.DangerButton,
		CustomID: ComponentID{FlowID: f.ID, Kind: idCancel}.String(),
	})
}

func optionButton(flowID, kind string, i int, label string, custom bool) discordgo.Button {
	style := discordgo.SecondaryButton
	if custom {
		style = discordgo.PrimaryButton
		label = "✏️ " + label
	}
	return discordgo.Button{
		Label:    label,
		Style:    style,
		CustomID: ComponentID{FlowID: flowID, Kind: kind, Value: strconv.Itoa(i)}.String(),
	}
}

func rows(btns []discordgo.Button) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, (len(btns)+maxPerRow-1)/maxPerRow)
	for start := 0; start < len(btns); start += maxPerRow {
		end := min(start+maxPerRow, len(btns))
		row := make([]discordgo.MessageComponent, 0, end-start)
		for _, b := range btns[start:end] {
			row = append(row, b)
		}
		out = append(out, discordgo.ActionsRow{Components: row})
	}
	return out
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\", "*", "\\*", "_", "\\_", "~", "\\~", "`", "\\`", "|", "\\|", ">", "\\>",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// describeTarget is used in notices, e.g. "usuario (123)"
func describeTarget(u *discordgo.User) string {
	return fmt.Sprintf("%s (%s)", escapeMarkdown(u.Username), u.ID)
}
