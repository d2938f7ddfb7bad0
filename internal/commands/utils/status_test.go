package utils

import (
	"strings"
	"testing"
	"time"
)

type fakeDB struct {
	status string
	online bool
}

func (f fakeDB) GetStatus() (string, bool) { return f.status, f.online }

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseStatus
		want []string
	}{
		{"online", fakeDB{"Conectado", true}, []string{"🟢 Conectado", "7 configuraciones en caché", "abiertos: 2", "Servidores: 5", "1m30s"}},
		{"offline", fakeDB{"Reconectando", false}, []string{"🔴 Reconectando"}},
		{"no database", nil, []string{"🔴 Desconectado"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusText(tt.db, 2, 5, 7, 90*time.Second+300*time.Millisecond)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("status text %q lacks %q", got, w)
				}
			}
		})
	}
}
