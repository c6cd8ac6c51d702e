package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name    string
		prefs   Preferences
		wantErr string
	}{
		{name: "unset", prefs: Preferences{}},
		{name: "in range", prefs: Preferences{LLMInputLimit: intPtr(80), MaxBullets: intPtr(1)}},
		{name: "llm limit too high", prefs: Preferences{LLMInputLimit: intPtr(81)}, wantErr: "llm_input_limit must be between 1 and 80"},
		{name: "bullets too low", prefs: Preferences{MaxBullets: intPtr(0)}, wantErr: "max_bullets must be between 1 and 20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prefs.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestBounded(t *testing.T) {
	v, ok := Bounded(intPtr(20), MaxBulletsMin, MaxBulletsMax)
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	_, ok = Bounded(intPtr(21), MaxBulletsMin, MaxBulletsMax)
	assert.False(t, ok)
	_, ok = Bounded(nil, MaxBulletsMin, MaxBulletsMax)
	assert.False(t, ok)
}

func TestNullString(t *testing.T) {
	assert.Nil(t, NullString("  "))
	assert.Equal(t, "x", *NullString(" x "))
}
