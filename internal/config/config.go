package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Slugs     SlugConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Port string
	// BaseURL is the public prefix prepended to slugs in responses,
	// e.g. "http://localhost:8080".
	BaseURL string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type SlugConfig struct {
	// Length is the padding floor for auto-generated slugs.
	Length int
	// ExtraReserved extends the built-in reserved-slug set.
	ExtraReserved []string
}

type AnalyticsConfig struct {
	// RecentClicksLimit caps the recent_clicks list in reports.
	RecentClicksLimit int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.BaseURL = viper.GetString("BASE_URL")
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	cfg.Slugs.Length = viper.GetInt("SLUG_LENGTH")
	if cfg.Slugs.Length == 0 {
		cfg.Slugs.Length = 6
	}
	cfg.Slugs.ExtraReserved = parseList(viper.GetString("RESERVED_SLUGS"))

	cfg.Analytics.RecentClicksLimit = viper.GetInt("RECENT_CLICKS_LIMIT")
	if cfg.Analytics.RecentClicksLimit == 0 {
		cfg.Analytics.RecentClicksLimit = 20
	}

	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}

	return &cfg, nil
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
