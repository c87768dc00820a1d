package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDBHost = "db.internal:3306"

// setRequired sets the variables without which Load rejects the defaults.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", testDBHost)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/media/datastore/tempsreel.infoclimat.net/tiles", cfg.TilesRoot)
	assert.Equal(t, "/dev/shm", cfg.ScratchRoot)
	assert.Equal(t, "palettes", cfg.PalettesDir)
	assert.Equal(t, OneHourInterpolate, cfg.OneHourMethod)
	assert.Equal(t, 64, cfg.ConfigCacheSize)
	assert.Equal(t, WatermarkMySQL, cfg.WatermarkDriver)
	assert.Equal(t, "cartes_tuiles", cfg.WatermarkTable)
	assert.Equal(t, testDBHost, cfg.DBHost)
	assert.Equal(t, "V5", cfg.DBName)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.NotificationsEnabled())
	assert.Equal(t, "radar-tiles-updated", cfg.KafkaTilesTopic)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("TILES_ROOT", "/srv/tiles")
	t.Setenv("SCRATCH_ROOT", "/tmp/scratch")
	t.Setenv("PALETTES_DIR", "/etc/radar/palettes")
	t.Setenv("ONE_HOUR_METHOD", "sum")
	t.Setenv("CONFIG_CACHE_SIZE", "8")
	t.Setenv("WATERMARK_DRIVER", "sqlite3")
	t.Setenv("WATERMARK_DSN", "file:watermarks.db")
	t.Setenv("WATERMARK_TABLE", "V5.cartes_tuiles")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TILES_TOPIC", "tiles")
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("BATCH_FLUSH_INTERVAL", "2s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/tiles", cfg.TilesRoot)
	assert.Equal(t, "/tmp/scratch", cfg.ScratchRoot)
	assert.Equal(t, "/etc/radar/palettes", cfg.PalettesDir)
	assert.Equal(t, OneHourSum, cfg.OneHourMethod)
	assert.Equal(t, 8, cfg.ConfigCacheSize)
	assert.Equal(t, WatermarkSQLite, cfg.WatermarkDriver)
	assert.Equal(t, "file:watermarks.db", cfg.WatermarkDSN)
	assert.Equal(t, "V5.cartes_tuiles", cfg.WatermarkTable)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.NotificationsEnabled())
	assert.Equal(t, "tiles", cfg.KafkaTilesTopic)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid shutdown timeout",
			env:     map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"},
			wantErr: "SHUTDOWN_TIMEOUT",
		},
		{
			name:    "negative shutdown timeout",
			env:     map[string]string{"SHUTDOWN_TIMEOUT": "-1s"},
			wantErr: "SHUTDOWN_TIMEOUT",
		},
		{
			name:    "unknown one-hour method",
			env:     map[string]string{"ONE_HOUR_METHOD": "spline"},
			wantErr: "ONE_HOUR_METHOD",
		},
		{
			name:    "zero cache size",
			env:     map[string]string{"CONFIG_CACHE_SIZE": "0"},
			wantErr: "CONFIG_CACHE_SIZE",
		},
		{
			name:    "non-numeric cache size",
			env:     map[string]string{"CONFIG_CACHE_SIZE": "lots"},
			wantErr: "CONFIG_CACHE_SIZE",
		},
		{
			name:    "batch size out of range",
			env:     map[string]string{"BATCH_SIZE": "9999"},
			wantErr: "BATCH_SIZE",
		},
		{
			name:    "unknown watermark driver",
			env:     map[string]string{"WATERMARK_DRIVER": "postgres"},
			wantErr: "WATERMARK_DRIVER",
		},
		{
			name:    "mysql without host",
			env:     map[string]string{"DB_HOST": ""},
			wantErr: "DB_HOST",
		},
		{
			name:    "sqlite without dsn",
			env:     map[string]string{"WATERMARK_DRIVER": "sqlite3"},
			wantErr: "WATERMARK_DSN",
		},
		{
			name:    "table name injection",
			env:     map[string]string{"WATERMARK_TABLE": "cartes; DROP TABLE x"},
			wantErr: "WATERMARK_TABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_NoWatermarkStore(t *testing.T) {
	t.Setenv("WATERMARK_DRIVER", "none")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, WatermarkNone, cfg.WatermarkDriver)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accumulate.env")
	content := "DB_HOST=from-file:3306\nTILES_ROOT=/from/file\nLOG_LEVEL=warn\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	// Registered so the values the file sets are restored after the test.
	t.Setenv("DB_HOST", "")
	t.Setenv("TILES_ROOT", "")
	require.NoError(t, os.Unsetenv("DB_HOST"))
	require.NoError(t, os.Unsetenv("TILES_ROOT"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file:3306", cfg.DBHost)
	assert.Equal(t, "/from/file", cfg.TilesRoot)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	require.NoError(t, err)
}
