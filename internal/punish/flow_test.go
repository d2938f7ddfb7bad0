package punish

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func newTestFlow(types ...TypeOption) *Flow {
	if len(types) == 0 {
		types = []TypeOption{
			{ActionBan, true}, {ActionKick, true}, {ActionJail, false},
			{ActionTimeout, true}, {ActionWarn, true}, {ActionUnban, true},
		}
	}
	return NewFlow(FlowParams{
		ID:      "f1",
		GuildID: "g",
		Issuer:  &discordgo.User{ID: "mod", Username: "mod"},
		Target:  &discordgo.User{ID: "target", Username: "target"},
		Types:   types,
		Created: testNow,
		Timeout: DefaultFlowTimeout,
	})
}

func TestFlowStepsPerAction(t *testing.T) {
	tests := []struct {
		action Action
		want   Step
	}{
		{ActionBan, StepLengthSelect},
		{ActionTimeout, StepLengthSelect},
		{ActionKick, StepReasonSelect},
		{ActionWarn, StepReasonSelect},
		{ActionUnban, StepConfirm},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			f := newTestFlow()
			if err := f.ChooseType(tt.action); err != nil {
				t.Fatalf("ChooseType: %v", err)
			}
			if f.Step() != tt.want {
				t.Errorf("step = %v, want %v", f.Step(), tt.want)
			}
		})
	}
}

func TestFlowDisabledType(t *testing.T) {
	f := newTestFlow()
	if err := f.ChooseType(ActionJail); !errors.Is(err, ErrOptionDisabled) {
		t.Fatalf("err = %v, want ErrOptionDisabled", err)
	}
	if err := f.ChooseType(ActionKidnap); !errors.Is(err, ErrOptionDisabled) {
		t.Fatalf("unlisted action err = %v, want ErrOptionDisabled", err)
	}
	if f.Step() != StepTypeSelect || f.Action() != "" {
		t.Errorf("flow changed after a rejected input: step=%v action=%q", f.Step(), f.Action())
	}
}

func TestFlowFullBan(t *testing.T) {
	f := newTestFlow()
	if err := f.ChooseType(ActionBan); err != nil {
		t.Fatal(err)
	}
	if custom, err := f.ChooseLength(4); err != nil || custom {
		t.Fatalf("ChooseLength(permanent) = %v, %v", custom, err)
	}
	if l, _ := f.Length(); !l.Permanent {
		t.Errorf("length = %+v, want permanent", l)
	}
	if custom, err := f.ChooseReason(1); err != nil || custom {
		t.Fatalf("ChooseReason = %v, %v", custom, err)
	}
	if r, ok := f.Reason(); !ok || r != "Compartir contenido hackeado." {
		t.Errorf("reason = %q, %v", r, ok)
	}
	if f.Step() != StepConfirm {
		t.Fatalf("step = %v, want confirm", f.Step())
	}

	// a finished selection step rejects late input
	if _, err := f.ChooseLength(0); !errors.Is(err, ErrWrongStep) {
		t.Errorf("late ChooseLength err = %v, want ErrWrongStep", err)
	}

	n := &Notice{}
	if err := f.Complete(n); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if f.Step() != StepIssued || f.Result() != n {
		t.Errorf("step = %v result = %v", f.Step(), f.Result())
	}
	if f.Cancel() {
		t.Error("Cancel succeeded on an issued flow")
	}
	if _, err := f.ChooseReason(0); !errors.Is(err, ErrFlowFinished) {
		t.Errorf("err after issue = %v, want ErrFlowFinished", err)
	}
}

func TestFlowCustomLength(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		raw    string
		want   error
		length time.Duration
	}{
		{"valid", ActionBan, "2h", nil, 2 * time.Hour},
		{"mixed units", ActionTimeout, "1d12h", nil, 36 * time.Hour},
		{"too short", ActionBan, "3m", ErrDurationTooShort, 0},
		{"empty", ActionBan, "  ", ErrEmptyDuration, 0},
		{"garbage", ActionBan, "mañana", ErrInvalidDuration, 0},
		{"timeout cap", ActionTimeout, "5w", ErrTimeoutTooLong, 0},
		{"short beats cap", ActionTimeout, "1m", ErrDurationTooShort, 0},
		{"ban has no cap", ActionBan, "5w", nil, 35 * 24 * time.Hour},
		{"hours past a century", ActionTimeout, "5124096h", ErrInvalidDuration, 0},
		{"minutes past a century", ActionTimeout, "307445760m", ErrInvalidDuration, 0},
		{"ban past a century", ActionBan, "307445760m", ErrInvalidDuration, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFlow()
			if err := f.ChooseType(tt.action); err != nil {
				t.Fatal(err)
			}
			custom, err := f.ChooseLength(len(LengthOptions(tt.action)) - 1)
			if err != nil || !custom {
				t.Fatalf("custom option = %v, %v", custom, err)
			}
			if f.Step() != StepLengthSelect {
				t.Fatalf("custom option moved the flow to %v", f.Step())
			}

			err = f.ApplyCustomLength(tt.raw, testNow)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ApplyCustomLength(%q) err = %v, want %v", tt.raw, err, tt.want)
			}
			if tt.want != nil {
				if f.Step() != StepLengthSelect {
					t.Errorf("step = %v after invalid input", f.Step())
				}
				return
			}
			if l, ok := f.Length(); !ok || l.Duration != tt.length {
				t.Errorf("length = %v, want %v", l.Duration, tt.length)
			}
			if f.Step() != StepReasonSelect {
				t.Errorf("step = %v, want reason_select", f.Step())
			}
		})
	}
}

func TestFlowCustomReason(t *testing.T) {
	f := newTestFlow()
	if err := f.ChooseType(ActionWarn); err != nil {
		t.Fatal(err)
	}
	if err := f.ApplyCustomReason("   "); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("blank reason err = %v", err)
	}
	if err := f.ApplyCustomReason("  Insultos en el chat  "); err != nil {
		t.Fatal(err)
	}
	if r, _ := f.Reason(); r != "Insultos en el chat" {
		t.Errorf("reason = %q", r)
	}
	if f.Step() != StepConfirm {
		t.Errorf("step = %v, want confirm", f.Step())
	}
}

func TestFlowTerminalTransitions(t *testing.T) {
	f := newTestFlow()
	if !f.Fail("algo salió mal") {
		t.Fatal("Fail on an open flow returned false")
	}
	if f.Step() != StepErrored || f.Failure() != "algo salió mal" {
		t.Errorf("step = %v failure = %q", f.Step(), f.Failure())
	}
	if f.Expire() || f.Cancel() || f.Fail("otra") {
		t.Error("terminal flow accepted another transition")
	}
	if f.Failure() != "algo salió mal" {
		t.Errorf("failure overwritten: %q", f.Failure())
	}
}

func TestFlowExpired(t *testing.T) {
	f := newTestFlow()
	if f.Expired(testNow.Add(DefaultFlowTimeout - time.Second)) {
		t.Error("expired before the deadline")
	}
	if !f.Expired(testNow.Add(DefaultFlowTimeout)) {
		t.Error("not expired at the deadline")
	}
}
