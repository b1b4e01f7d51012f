package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver"` // memory | postgres | sqlite
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type GameConfig struct {
	MinPlayers   int `mapstructure:"min_players"`
	CodeAttempts int `mapstructure:"code_attempts"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type ClientConfig struct {
	URL      string `mapstructure:"url"`
	PlayerID string `mapstructure:"player_id"`
	Name     string `mapstructure:"name"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Game   GameConfig   `mapstructure:"game"`
	Poll   PollConfig   `mapstructure:"poll"`
	Log    LogConfig    `mapstructure:"log"`
	Client ClientConfig `mapstructure:"client"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.log_mode", false)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.code_attempts", 8)
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("client.url", "http://localhost:8080")
	v.SetDefault("client.player_id", "")
	v.SetDefault("client.name", "")
}

// Load reads configuration from path (or ./config.yaml when path is empty
// and the file exists), then applies environment overrides such as
// BINGO_STORE_DRIVER=postgres. A .env file in the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Game.MinPlayers < 1 {
		return fmt.Errorf("config: game.min_players must be at least 1")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll.interval must be positive")
	}
	return nil
}
