package util

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ScheduleConfig struct {
	Backend      string `mapstructure:"backend" validate:"oneof=memory sqlite postgres"`
	GTFSPath     string `mapstructure:"gtfs_path"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	DatabaseURL  string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	Timezone     string `mapstructure:"timezone" validate:"required"`
	CacheSize    int    `mapstructure:"cache_size" validate:"min=0"`
}

type RoutingConfig struct {
	Frontier               string  `mapstructure:"frontier" validate:"oneof=list heap"`
	ReorderOnImprove       bool    `mapstructure:"reorder_on_improve"`
	TransferMode           string  `mapstructure:"transfer_mode" validate:"oneof=per_stop preloaded"`
	MaxConcurrentDiscovery int     `mapstructure:"max_concurrent_discovery" validate:"min=1"`
	DefaultTransferSeconds float64 `mapstructure:"default_transfer_seconds" validate:"gt=0"`
	BetweenMarginKm        float64 `mapstructure:"between_margin_km" validate:"min=0"`
	BetweenFactor          float64 `mapstructure:"between_factor" validate:"gt=0"`
}

type RegistryConfig struct {
	TTL  time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Size int           `mapstructure:"size" validate:"min=1"`
}

type Config struct {
	APIPort        int            `mapstructure:"api_port" validate:"min=1,max=65535"`
	APITimeout     time.Duration  `mapstructure:"api_timeout" validate:"gt=0"`
	RateLimit      bool           `mapstructure:"rate_limit"`
	RateLimitRPS   float64        `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int            `mapstructure:"rate_limit_burst" validate:"min=1"`
	Schedule       ScheduleConfig `mapstructure:"schedule"`
	Routing        RoutingConfig  `mapstructure:"routing"`
	Registry       RegistryConfig `mapstructure:"registry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", 6060)
	v.SetDefault("api_timeout", "60s")
	v.SetDefault("rate_limit", false)
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)

	v.SetDefault("schedule.backend", "memory")
	v.SetDefault("schedule.gtfs_path", "./data/gtfs")
	v.SetDefault("schedule.snapshot_path", "")
	v.SetDefault("schedule.sqlite_path", "./data/transit.db")
	v.SetDefault("schedule.database_url", "")
	v.SetDefault("schedule.timezone", "Europe/Paris")
	v.SetDefault("schedule.cache_size", 65536)

	v.SetDefault("routing.frontier", "list")
	v.SetDefault("routing.reorder_on_improve", true)
	v.SetDefault("routing.transfer_mode", "per_stop")
	v.SetDefault("routing.max_concurrent_discovery", 16)
	v.SetDefault("routing.default_transfer_seconds", 120)
	v.SetDefault("routing.between_margin_km", 2.0)
	v.SetDefault("routing.between_factor", 1.3)

	v.SetDefault("registry.ttl", "10m")
	v.SetDefault("registry.size", 1024)
}

/*
LoadConfig loads .env files, then config.yaml (optional) and the environment. environment variables
override the file, nested keys use "_" for "." (SCHEDULE_BACKEND for schedule.backend).
*/
func LoadConfig(paths ...string) (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./data/", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, WrapErrorf(err, ErrBadParamInput, "invalid config: %v", err)
	}
	return cfg, nil
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}
