package models

import "testing"

func TestPunishmentIsActive(t *testing.T) {
	const now = int64(1_700_000_000)

	tests := []struct {
		name string
		p    Punishment
		want bool
	}{
		{"permanent", Punishment{DateExpires: ExpiresNever, Visible: true}, true},
		{"future", Punishment{DateExpires: now + 60, Visible: true}, true},
		{"expired", Punishment{DateExpires: now - 1, Visible: true}, false},
		{"revoked", Punishment{DateExpires: ExpiresRevoked, Visible: true}, false},
		{"hidden", Punishment{DateExpires: ExpiresNever, Visible: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsActive(now); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPunishmentSentinels(t *testing.T) {
	p := Punishment{DateExpires: ExpiresNever}
	if !p.IsPermanent() || p.IsRevoked() {
		t.Errorf("expected permanent, not revoked: %+v", p)
	}
	p.DateExpires = ExpiresRevoked
	if p.IsPermanent() || !p.IsRevoked() {
		t.Errorf("expected revoked, not permanent: %+v", p)
	}
}
