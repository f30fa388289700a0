package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type SpaceEntry struct {
	ID       string `mapstructure:"id"`
	MapID    string `mapstructure:"map_id"`
	Capacity int    `mapstructure:"capacity"`
}

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	SendQueueSize int           `mapstructure:"send_queue_size"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`

	PositionMinInterval time.Duration `mapstructure:"position_min_interval"`

	AllowUnlistedSpaces bool         `mapstructure:"allow_unlisted_spaces"`
	DefaultMapID        string       `mapstructure:"default_map_id"`
	Spaces              []SpaceEntry `mapstructure:"spaces"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "space-dev-secret")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_queue_size", 64)
	v.SetDefault("send_timeout", "3s")
	v.SetDefault("position_min_interval", "50ms")
	v.SetDefault("allow_unlisted_spaces", true)
	v.SetDefault("default_map_id", "default")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}
