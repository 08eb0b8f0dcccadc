// Package config loads the guildbag configuration from a YAML or TOML file
// and applies environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/guild-bag/internal/errors"
)

const (
	EnvConfig    = "GUILDBAG_CONFIG"
	EnvToken     = "GUILDBAG_TOKEN"
	EnvLegacyTok = "DTOKEN"
	EnvLogLevel  = "GUILDBAG_LOG_LEVEL"
	EnvDataFile  = "GUILDBAG_DATA_FILE"
)

type Config struct {
	Prefix   string    `yaml:"prefix" toml:"prefix"`
	PageSize int       `yaml:"page_size" toml:"page_size"`
	Token    string    `yaml:"token" toml:"token"`
	Storage  Storage   `yaml:"storage" toml:"storage"`
	Dispatch Dispatch  `yaml:"dispatch" toml:"dispatch"`
	Server   Transport `yaml:"transport" toml:"transport"`
	Log      Log       `yaml:"log" toml:"log"`
}

type Storage struct {
	Backend   string `yaml:"backend" toml:"backend"`
	Path      string `yaml:"path" toml:"path"`
	DSN       string `yaml:"dsn" toml:"dsn"`
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr"`
	RedisKey  string `yaml:"redis_key" toml:"redis_key"`
}

type Dispatch struct {
	QueueSize      int           `yaml:"queue_size" toml:"queue_size"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" toml:"idempotency_ttl"`
	// Idempotency selects where seen request IDs are kept: "memory" or "redis".
	Idempotency string `yaml:"idempotency" toml:"idempotency"`
}

type Transport struct {
	Console  bool   `yaml:"console" toml:"console"`
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	WSAddr   string `yaml:"ws_addr" toml:"ws_addr"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

func Default() Config {
	return Config{
		Prefix:   "$",
		PageSize: 25,
		Storage: Storage{
			Backend:  BackendFile,
			Path:     "DATA_FILE.json",
			RedisKey: "guildbag:state",
		},
		Dispatch: Dispatch{
			QueueSize:      256,
			IdempotencyTTL: 24 * time.Hour,
			Idempotency:    "memory",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path (YAML or TOML by extension) over the defaults. An empty
// path yields the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(data, &cfg)
		case ".yaml", ".yml", "":
			err = yaml.Unmarshal(data, &cfg)
		default:
			return Config{}, errors.ConfigInvalid(fmt.Sprintf("unsupported config format %q", filepath.Ext(path)))
		}
		if err != nil {
			return Config{}, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("parse config %s", path))
		}
	}
	cfg.applyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	} else if v := os.Getenv(EnvLegacyTok); v != "" && c.Token == "" {
		c.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvDataFile); v != "" {
		c.Storage.Path = v
	}
}

// Normalize fills zero values left by a partial config file.
func (c *Config) Normalize() {
	def := Default()
	if c.Prefix == "" {
		c.Prefix = def.Prefix
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Storage.RedisKey == "" {
		c.Storage.RedisKey = def.Storage.RedisKey
	}
	if c.Dispatch.QueueSize <= 0 {
		c.Dispatch.QueueSize = def.Dispatch.QueueSize
	}
	if c.Dispatch.IdempotencyTTL <= 0 {
		c.Dispatch.IdempotencyTTL = def.Dispatch.IdempotencyTTL
	}
	if c.Dispatch.Idempotency == "" {
		c.Dispatch.Idempotency = def.Dispatch.Idempotency
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendMySQL:
		if c.Storage.DSN == "" {
			return errors.ConfigInvalid("storage.dsn is required for the mysql backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.ConfigInvalid("storage.redis_addr is required for the redis backend")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown storage backend %q", c.Storage.Backend)).
			WithDetail("backend", c.Storage.Backend)
	}
	switch c.Dispatch.Idempotency {
	case "memory":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.ConfigInvalid("storage.redis_addr is required for redis idempotency")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown idempotency store %q", c.Dispatch.Idempotency))
	}
	if strings.ContainsAny(c.Prefix, " \t\n") {
		return errors.ConfigInvalid("prefix must not contain whitespace")
	}
	return nil
}
