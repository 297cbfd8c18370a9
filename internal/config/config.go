package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  DatabaseConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Relay     RelayConfig     `mapstructure:"relay"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type StreamConfig struct {
	Queue        string        `mapstructure:"queue"`
	Group        string        `mapstructure:"group"`
	Consumer     string        `mapstructure:"consumer"` // empty = generated per process
	ReadCount    int64         `mapstructure:"read_count"`
	BlockTimeout time.Duration `mapstructure:"block_timeout"`
}

type IngestConfig struct {
	MaxMessages int           `mapstructure:"max_messages"`
	IdleWait    time.Duration `mapstructure:"idle_wait"` // 0 = drain and exit
}

type ProcessorConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	IdleWait  time.Duration `mapstructure:"idle_wait"` // 0 = drain and exit
}

type RelayConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	IdleWait  time.Duration `mapstructure:"idle_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (PAYPROC_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (PAYPROC_*)
	v.SetEnvPrefix("PAYPROC")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
