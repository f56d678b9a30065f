package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"plain local part", "administrator@exzly.dev", "adm**********@exzly.dev"},
		{"short example", "admin@exzly.dev", "adm**@exzly.dev"},
		{"trailing digits preserved", "john.doe99@example.com", "joh*****99@example.com"},
		{"digits reach the prefix", "ab12@example.com", "ab12@example.com"},
		{"local shorter than prefix", "ab@example.com", "ab@example.com"},
		{"not an email", "plainstring", "plainstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.email))
		})
	}
}
