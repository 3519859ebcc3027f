package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"15s", 15 * time.Second},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseDuration(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := parseDuration("soon")
	assert.Error(t, err)
}

func TestGetInt(t *testing.T) {
	assert.Equal(t, 5, getInt("5", 1))
	assert.Equal(t, 1, getInt("", 1))
	assert.Equal(t, 1, getInt("-3", 1))
	assert.Equal(t, 1, getInt("x", 1))
}
