package punish

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/models"
)

const (
	// MinCustomLength is the shortest duration accepted from the custom dialog
	MinCustomLength = 5 * time.Minute
	// MaxTimeoutLength is the platform cap for member timeouts (28 days)
	MaxTimeoutLength = 2419200 * time.Second
	// MaxSpanSeconds bounds a parsed span to roughly a century, counting
	// years as 365.25 days and months as a twelfth of that
	MaxSpanSeconds = 100 * 31557600
)

// Units must appear in descending order of magnitude. Longer aliases come
// first inside each group because RE2 alternation is leftmost-first.
var durationPattern = regexp.MustCompile(`^` +
	`(?:(?P<years>\d+)\s*(?:years?|años?|y|Y)\s*)?` +
	`(?:(?P<months>\d+)\s*(?:months?|meses|mes|mo)\s*)?` +
	`(?:(?P<weeks>\d+)\s*(?:weeks?|semanas?|w|W)\s*)?` +
	`(?:(?P<days>\d+)\s*(?:days?|d[ií]as?|d|D)\s*)?` +
	`(?:(?P<hours>\d+)\s*(?:hours?|horas?|h|H)\s*)?` +
	`(?:(?P<minutes>\d+)\s*(?:minutes?|minutos?|min|m)\s*)?` +
	`(?:(?P<seconds>\d+)\s*(?:seconds?|segundos?|s|S)\s*)?` +
	`$`)

// Span is a parsed duration. Years and months are calendar units, so the
// real length depends on the instant it is applied to.
type Span struct {
	Years, Months, Weeks, Days int
	Hours, Minutes, Seconds    int
}

// After returns t moved forward by the span
func (s Span) After(t time.Time) time.Time {
	t = t.AddDate(s.Years, s.Months, s.Weeks*7+s.Days)
	return t.Add(time.Duration(s.Hours)*time.Hour +
		time.Duration(s.Minutes)*time.Minute +
		time.Duration(s.Seconds)*time.Second)
}

// From converts the span into a fixed duration starting at t
func (s Span) From(t time.Time) time.Duration {
	return s.After(t).Sub(t)
}

// ParseDuration reads strings such as "45m", "1d 12h" or "2 semanas"
func ParseDuration(raw string) (Span, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Span{}, ErrEmptyDuration
	}

	match := durationPattern.FindStringSubmatch(raw)
	if match == nil {
		return Span{}, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}

	var span Span
	fields := []struct {
		name    string
		dst     *int
		seconds int64
	}{
		{"years", &span.Years, 31557600},
		{"months", &span.Months, 2629800},
		{"weeks", &span.Weeks, 604800},
		{"days", &span.Days, 86400},
		{"hours", &span.Hours, 3600},
		{"minutes", &span.Minutes, 60},
		{"seconds", &span.Seconds, 1},
	}

	var total int64
	for _, f := range fields {
		value := match[durationPattern.SubexpIndex(f.name)]
		if value == "" {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n > MaxSpanSeconds/f.seconds {
			return Span{}, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
		}
		total += n * f.seconds
		if total > MaxSpanSeconds {
			return Span{}, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
		}
		*f.dst = int(n)
	}
	return span, nil
}

// Length is the selected duration of a ban or timeout
type Length struct {
	Duration  time.Duration
	Permanent bool
}

// PermanentLength never expires
func PermanentLength() Length {
	return Length{Permanent: true}
}

// ExpiresAt returns the epoch second at which the punishment ends, or
// models.ExpiresNever for permanent lengths
func (l Length) ExpiresAt(now time.Time) int64 {
	if l.Permanent {
		return models.ExpiresNever
	}
	return now.Add(l.Duration).Unix()
}

func (l Length) String() string {
	if l.Permanent {
		return "Permanente"
	}
	return FormatDuration(l.Duration)
}

// ValidateCustomLength applies the bounds of the custom dialog. The minimum
// is checked before the timeout cap.
func ValidateCustomLength(action Action, l Length) error {
	if !l.Permanent && l.Duration < MinCustomLength {
		return ErrDurationTooShort
	}
	if action == ActionTimeout && (l.Permanent || l.Duration > MaxTimeoutLength) {
		return ErrTimeoutTooLong
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

// FormatDuration renders d in Spanish, e.g. "1 semana, 2 días y 3 horas"
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0 segundos"
	}

	total := int(d / time.Second)
	days := total / 86400
	weeks, days := days/7, days%7
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string
	if weeks > 0 {
		parts = append(parts, plural(weeks, "semana", "semanas"))
	}
	if days > 0 {
		parts = append(parts, plural(days, "día", "días"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hora", "horas"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minuto", "minutos"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "segundo", "segundos"))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " y " + parts[len(parts)-1]
}
