// Package config loads grid9 settings from an optional grid9.yaml and
// GRID9_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/1F47E/grid9/pkg/postgis"
)

type Config struct {
	Log     LogConfig      `mapstructure:"log" yaml:"log"`
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
	Index   IndexConfig    `mapstructure:"index" yaml:"index"`
	PostGIS postgis.Config `mapstructure:"postgis" yaml:"postgis"`
	Nearby  NearbyConfig   `mapstructure:"nearby" yaml:"nearby"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type IndexConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Partitions int    `mapstructure:"partitions" yaml:"partitions"`
}

// NearbyConfig holds defaults and HTTP limits for the brute-force nearby scan
type NearbyConfig struct {
	DefaultRadiusM    float64 `mapstructure:"default_radius_m" yaml:"default_radius_m"`
	DefaultMaxResults uint    `mapstructure:"default_max_results" yaml:"default_max_results"`
	MaxRadiusM        float64 `mapstructure:"max_radius_m" yaml:"max_radius_m"`
	MaxResults        uint    `mapstructure:"max_results" yaml:"max_results"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("index.file", "grid9_index.gob")
	v.SetDefault("index.partitions", 0)

	v.SetDefault("postgis.host", "localhost")
	v.SetDefault("postgis.port", 5432)
	v.SetDefault("postgis.user", "postgres")
	v.SetDefault("postgis.password", "postgres")
	v.SetDefault("postgis.database", "geodb")
	v.SetDefault("postgis.max_connections", 25)

	v.SetDefault("nearby.default_radius_m", 100.0)
	v.SetDefault("nearby.default_max_results", 50)
	v.SetDefault("nearby.max_radius_m", 1000.0)
	v.SetDefault("nearby.max_results", 1000)
}

// Load reads configuration. An empty path searches for grid9.yaml in the
// working directory and $HOME/.grid9; a missing file there is not an error.
// Environment variables such as GRID9_SERVER_ADDR override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GRID9")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("grid9")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.grid9")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
