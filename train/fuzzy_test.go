package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumn(t *testing.T) {
	available := []string{"area", "year", "crop_type", "crop_yield", "rainfall"}

	tests := []struct {
		name  string
		want  string
		match string
		ok    bool
	}{
		{"exact", "rainfall", "rainfall", true},
		{"case insensitive", "Rainfall", "rainfall", true},
		{"typo", "crop_yeild", "crop_yield", true},
		{"truncated", "rainfal", "rainfall", true},
		{"unrelated", "soil_acidity", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveColumn(tt.want, available)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.match, got)
			}
		})
	}
}
