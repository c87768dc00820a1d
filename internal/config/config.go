package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// One-hour production methods.
const (
	OneHourInterpolate = "interpolate"
	OneHourSum         = "sum"
)

// Watermark drivers.
const (
	WatermarkMySQL  = "mysql"
	WatermarkSQLite = "sqlite3"
	WatermarkNone   = "none"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds all service settings, populated from environment variables.
type Config struct {
	TilesRoot   string
	ScratchRoot string
	PalettesDir string

	OneHourMethod   string
	ConfigCacheSize int

	// Watermark store.
	WatermarkDriver string
	WatermarkDSN    string
	WatermarkTable  string
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string

	// Tile-update notifications; disabled when no broker is set.
	KafkaBrokers       []string
	KafkaTilesTopic    string
	BatchSize          int
	BatchFlushInterval time.Duration

	HTTPAddr        string
	PushgatewayURL  string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads an optional dotenv file (ENV_FILE, default .env) and then the
// environment, applying defaults where unset. Variables already set in the
// environment win over the file.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	batchFlushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CONFIG_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TilesRoot:       sharedcfg.EnvOrDefault("TILES_ROOT", "/media/datastore/tempsreel.infoclimat.net/tiles"),
		ScratchRoot:     sharedcfg.EnvOrDefault("SCRATCH_ROOT", "/dev/shm"),
		PalettesDir:     sharedcfg.EnvOrDefault("PALETTES_DIR", "palettes"),
		OneHourMethod:   sharedcfg.EnvOrDefault("ONE_HOUR_METHOD", OneHourInterpolate),
		ConfigCacheSize: cacheSize,

		WatermarkDriver: sharedcfg.EnvOrDefault("WATERMARK_DRIVER", WatermarkMySQL),
		WatermarkDSN:    os.Getenv("WATERMARK_DSN"),
		WatermarkTable:  sharedcfg.EnvOrDefault("WATERMARK_TABLE", "cartes_tuiles"),
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          sharedcfg.EnvOrDefault("DB_NAME", "V5"),

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTilesTopic:    sharedcfg.EnvOrDefault("KAFKA_TILES_TOPIC", "radar-tiles-updated"),
		BatchSize:          batchSize,
		BatchFlushInterval: batchFlushInterval,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TilesRoot == "" {
		return errors.New("TILES_ROOT is required")
	}
	if c.ScratchRoot == "" {
		return errors.New("SCRATCH_ROOT is required")
	}
	switch c.OneHourMethod {
	case OneHourInterpolate, OneHourSum:
	default:
		return fmt.Errorf("invalid ONE_HOUR_METHOD %q: must be %s or %s", c.OneHourMethod, OneHourInterpolate, OneHourSum)
	}
	switch c.WatermarkDriver {
	case WatermarkMySQL:
		if c.WatermarkDSN == "" && c.DBHost == "" {
			return errors.New("DB_HOST or WATERMARK_DSN is required for the mysql watermark store")
		}
	case WatermarkSQLite:
		if c.WatermarkDSN == "" {
			return errors.New("WATERMARK_DSN is required for the sqlite3 watermark store")
		}
	case WatermarkNone:
	default:
		return fmt.Errorf("invalid WATERMARK_DRIVER %q", c.WatermarkDriver)
	}
	if !tableName.MatchString(c.WatermarkTable) {
		return fmt.Errorf("invalid WATERMARK_TABLE %q", c.WatermarkTable)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTilesTopic == "" {
		return errors.New("KAFKA_TILES_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// NotificationsEnabled reports whether tile updates are published to Kafka.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func loadEnvFile() error {
	path := sharedcfg.EnvOrDefault("ENV_FILE", ".env")
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
