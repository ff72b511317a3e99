package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNow_AlwaysUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestParseAsOf(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{value: "2025-11-20", want: time.Date(2025, 11, 20, 23, 59, 59, 999999999, time.UTC)},
		{value: "2025-11-20T08:30:00Z", want: time.Date(2025, 11, 20, 8, 30, 0, 0, time.UTC)},
		{value: "2025-11-20T08:30:00-05:00", want: time.Date(2025, 11, 20, 13, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseAsOf(tt.value)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseAsOf_Invalid(t *testing.T) {
	for _, value := range []string{"", "20/11/2025", "2025-13-01", "yesterday"} {
		_, err := ParseAsOf(value)
		assert.Error(t, err, value)
	}
}

func TestEndOfDay(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)

	// 22:00 EST is already the next day in UTC
	got := EndOfDay(time.Date(2025, 11, 20, 22, 0, 0, 0, eastern))

	assert.Equal(t, time.Date(2025, 11, 21, 23, 59, 59, 999999999, time.UTC), got)
}
