package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageBackendPostgres, cfg.StorageBackend)
	assert.Equal(t, 16, cfg.AccrualCutoffHour)
	assert.Equal(t, 30, cfg.AccrualCutoffMinute)
	assert.Equal(t, "Asia/Yangon", cfg.AccrualTimezone)
	assert.True(t, cfg.MaxTransactionAmount.IsPositive())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMemoryBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageBackendMemory, cfg.StorageBackend)
}

func TestParseCutoff(t *testing.T) {
	testCases := []struct {
		raw        string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{raw: "16:30", wantHour: 16, wantMinute: 30},
		{raw: "0:00", wantHour: 0, wantMinute: 0},
		{raw: "23:59", wantHour: 23, wantMinute: 59},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			hour, minute, err := parseCutoff(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantHour, hour)
			assert.Equal(t, tc.wantMinute, minute)
		})
	}
}
