package punish

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Step is the state of a Flow
type Step int

const (
	StepTypeSelect Step = iota
	StepLengthSelect
	StepReasonSelect
	StepConfirm
	StepIssued
	StepCancelled
	StepTimedOut
	StepErrored
)

func (s Step) String() string {
	switch s {
	case StepTypeSelect:
		return "type_select"
	case StepLengthSelect:
		return "length_select"
	case StepReasonSelect:
		return "reason_select"
	case StepConfirm:
		return "confirm"
	case StepIssued:
		return "issued"
	case StepCancelled:
		return "cancelled"
	case StepTimedOut:
		return "timed_out"
	case StepErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further input is accepted
func (s Step) Terminal() bool {
	return s >= StepIssued
}

// FlowParams describes a new flow
type FlowParams struct {
	ID        string
	GuildID   string
	ChannelID string
	Issuer    *discordgo.User
	Target    *discordgo.User
	Types     []TypeOption
	Created   time.Time
	Timeout   time.Duration
}

// Flow is the punishment menu state machine. It performs no I/O: the Manager
// feeds it input and renders it. Steps only move forward and a selection is
// never overwritten once made.
type Flow struct {
	ID        string
	GuildID   string
	ChannelID string
	Issuer    *discordgo.User
	Target    *discordgo.User
	Created   time.Time
	Deadline  time.Time

	step      Step
	types     []TypeOption
	action    Action
	length    *Length
	reason    string
	reasonSet bool
	result    *Notice
	failure   string
}

// NewFlow starts a flow at the type selector. The deadline is fixed here and
// never extended by activity.
func NewFlow(p FlowParams) *Flow {
	return &Flow{
		ID:        p.ID,
		GuildID:   p.GuildID,
		ChannelID: p.ChannelID,
		Issuer:    p.Issuer,
		Target:    p.Target,
		Created:   p.Created,
		Deadline:  p.Created.Add(p.Timeout),
		step:      StepTypeSelect,
		types:     p.Types,
	}
}

func (f *Flow) Step() Step          { return f.step }
func (f *Flow) Action() Action      { return f.action }
func (f *Flow) Types() []TypeOption { return f.types }
func (f *Flow) Result() *Notice     { return f.result }
func (f *Flow) Failure() string     { return f.failure }

// Length returns the selected length, if any
func (f *Flow) Length() (Length, bool) {
	if f.length == nil {
		return Length{}, false
	}
	return *f.length, true
}

// Reason returns the selected reason, if any
func (f *Flow) Reason() (string, bool) {
	return f.reason, f.reasonSet
}

// Expired reports whether the whole-flow deadline passed at now
func (f *Flow) Expired(now time.Time) bool {
	return !now.Before(f.Deadline)
}

// Expect fails unless the flow is currently at step
func (f *Flow) Expect(step Step) error {
	if f.step.Terminal() {
		return ErrFlowFinished
	}
	if f.step != step {
		return ErrWrongStep
	}
	return nil
}

// advance moves to the next step that has something to ask. Steps whose menu
// is empty for the chosen action are skipped.
func (f *Flow) advance() {
	switch {
	case f.step < StepLengthSelect && f.length == nil && len(LengthOptions(f.action)) > 0:
		f.step = StepLengthSelect
	case f.step < StepReasonSelect && !f.reasonSet && len(ReasonOptions(f.action)) > 0:
		f.step = StepReasonSelect
	default:
		f.step = StepConfirm
	}
}

// ChooseType selects the punishment type. Revoke actions go straight to
// StepConfirm, where the Manager runs them without asking.
func (f *Flow) ChooseType(a Action) error {
	if err := f.Expect(StepTypeSelect); err != nil {
		return err
	}
	for _, opt := range f.types {
		if opt.Action == a && opt.Enabled {
			f.action = a
			f.advance()
			return nil
		}
	}
	return ErrOptionDisabled
}

// ChooseLength picks a preset. custom is true when the option asks for the
// custom dialog; the step does not change in that case.
func (f *Flow) ChooseLength(i int) (custom bool, err error) {
	if err := f.Expect(StepLengthSelect); err != nil {
		return false, err
	}
	opts := LengthOptions(f.action)
	if i < 0 || i >= len(opts) {
		return false, ErrOptionDisabled
	}
	if opts[i].Custom {
		return true, nil
	}
	l := opts[i].Length
	f.length = &l
	f.advance()
	return false, nil
}

// ApplyCustomLength parses raw, then checks the minimum, then the timeout cap.
// Any failure leaves the flow where it was.
func (f *Flow) ApplyCustomLength(raw string, now time.Time) error {
	if err := f.Expect(StepLengthSelect); err != nil {
		return err
	}
	span, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	l := Length{Duration: span.From(now)}
	if err := ValidateCustomLength(f.action, l); err != nil {
		return err
	}
	f.length = &l
	f.advance()
	return nil
}

// ChooseReason picks a canned reason, or reports that the custom dialog is needed
func (f *Flow) ChooseReason(i int) (custom bool, err error) {
	if err := f.Expect(StepReasonSelect); err != nil {
		return false, err
	}
	opts := ReasonOptions(f.action)
	if i < 0 || i >= len(opts) {
		return false, ErrOptionDisabled
	}
	if opts[i].Custom {
		return true, nil
	}
	f.reason = opts[i].Reason
	f.reasonSet = true
	f.advance()
	return false, nil
}

// ApplyCustomReason stores a free-text reason
func (f *Flow) ApplyCustomReason(raw string) error {
	if err := f.Expect(StepReasonSelect); err != nil {
		return err
	}
	reason := strings.TrimSpace(raw)
	if reason == "" {
		return ErrEmptyReason
	}
	f.reason = reason
	f.reasonSet = true
	f.advance()
	return nil
}

// Complete ends the flow after the strategy ran
func (f *Flow) Complete(n *Notice) error {
	if err := f.Expect(StepConfirm); err != nil {
		return err
	}
	f.result = n
	f.step = StepIssued
	return nil
}

func (f *Flow) end(step Step) bool {
	if f.step.Terminal() {
		return false
	}
	f.step = step
	return true
}

// Cancel ends the flow at any non-terminal step
func (f *Flow) Cancel() bool { return f.end(StepCancelled) }

// Expire ends the flow because its deadline passed
func (f *Flow) Expire() bool { return f.end(StepTimedOut) }

// Fail ends the flow after an unrecoverable error
func (f *Flow) Fail(msg string) bool {
	if !f.end(StepErrored) {
		return false
	}
	f.failure = msg
	return true
}
