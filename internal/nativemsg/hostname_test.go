package nativemsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHostName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"com.plode_mass_storage.native", true},
		{"com.google.chrome.example.echo", true},
		{"echo", true},
		{"a_1.b_2", true},
		{"", false},
		{"Com.Example", false},
		{"com..example", false},
		{".com.example", false},
		{"com.example.", false},
		{"com-example", false},
		{"com example", false},
		{"../etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidHostName(tt.name))
		})
	}
}
