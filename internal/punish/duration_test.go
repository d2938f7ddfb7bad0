package punish

import (
	"errors"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
)

func TestParseDuration(t *testing.T) {
	base := time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"45m", 45 * time.Minute},
		{"3m", 3 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d12h", 36 * time.Hour},
		{"1d 12h 30m", 36*time.Hour + 30*time.Minute},
		{"1w", 7 * 24 * time.Hour},
		{"2 semanas", 14 * 24 * time.Hour},
		{"3 días", 72 * time.Hour},
		{"90s", 90 * time.Second},
		{"5 min", 5 * time.Minute},
		{"1 hora 15 minutos", 75 * time.Minute},
		{"1H", time.Hour},
		// February 2024 has 29 days
		{"1mo", 29 * 24 * time.Hour},
		{"1y", 366 * 24 * time.Hour},
		{"3155760000s", 3155760000 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			span, err := ParseDuration(tt.in)
			if err != nil {
				t.Fatalf("ParseDuration(%q): %v", tt.in, err)
			}
			if got := span.From(base); got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDurationErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrEmptyDuration},
		{"   ", ErrEmptyDuration},
		{"abc", ErrInvalidDuration},
		{"10", ErrInvalidDuration},
		{"5m 1h", ErrInvalidDuration},
		{"-5m", ErrInvalidDuration},
		{"1x", ErrInvalidDuration},
		{"5124096h", ErrInvalidDuration},
		{"307445760m", ErrInvalidDuration},
		{"101y", ErrInvalidDuration},
		{"99y 24mo", ErrInvalidDuration},
		{"99999999999999999999s", ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if _, err := ParseDuration(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ParseDuration(%q) err = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestValidateCustomLength(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		length Length
		want   error
	}{
		{"below floor ban", ActionBan, Length{Duration: 4 * time.Minute}, ErrDurationTooShort},
		{"below floor timeout", ActionTimeout, Length{Duration: 3 * time.Minute}, ErrDurationTooShort},
		{"floor", ActionTimeout, Length{Duration: 5 * time.Minute}, nil},
		{"timeout cap", ActionTimeout, Length{Duration: MaxTimeoutLength}, nil},
		{"timeout above cap", ActionTimeout, Length{Duration: MaxTimeoutLength + time.Second}, ErrTimeoutTooLong},
		{"ban has no cap", ActionBan, Length{Duration: 365 * 24 * time.Hour}, nil},
		{"permanent ban", ActionBan, PermanentLength(), nil},
		{"permanent timeout", ActionTimeout, PermanentLength(), ErrTimeoutTooLong},
		// the floor is checked before the cap
		{"zero timeout", ActionTimeout, Length{}, ErrDurationTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateCustomLength(tt.action, tt.length); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLengthExpiresAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if got := PermanentLength().ExpiresAt(now); got != models.ExpiresNever {
		t.Errorf("permanent ExpiresAt = %d, want %d", got, models.ExpiresNever)
	}
	l := Length{Duration: time.Hour}
	if got, want := l.ExpiresAt(now), now.Unix()+3600; got != want {
		t.Errorf("ExpiresAt = %d, want %d", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 segundos"},
		{time.Minute, "1 minuto"},
		{30 * time.Minute, "30 minutos"},
		{2*time.Hour + 30*time.Minute, "2 horas y 30 minutos"},
		{24 * time.Hour, "1 día"},
		{7 * 24 * time.Hour, "1 semana"},
		{30 * 24 * time.Hour, "4 semanas y 2 días"},
		{8*24*time.Hour + time.Hour + time.Second, "1 semana, 1 día, 1 hora y 1 segundo"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
