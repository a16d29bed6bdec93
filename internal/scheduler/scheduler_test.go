package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCutoff(t *testing.T) {
	location, err := time.LoadLocation("Asia/Yangon")
	require.NoError(t, err)

	s := &Scheduler{location: location, hour: 16, minute: 30}

	testCases := []struct {
		name string
		now  string
		want string
	}{
		{
			name: "before cutoff fires same day",
			now:  "2025-06-01T09:00:00",
			want: "2025-06-01T16:30:00",
		},
		{
			name: "after cutoff fires next day",
			now:  "2025-06-01T17:00:00",
			want: "2025-06-02T16:30:00",
		},
		{
			name: "exactly at cutoff fires next day",
			now:  "2025-06-01T16:30:00",
			want: "2025-06-02T16:30:00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			now, err := time.ParseInLocation("2006-01-02T15:04:05", tc.now, location)
			require.NoError(t, err)

			next := s.nextCutoff(now)
			assert.Equal(t, tc.want, next.Format("2006-01-02T15:04:05"))
			assert.True(t, next.After(now))
		})
	}
}
