package config

import (
	"errors"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"time"
)

var (
	ErrConfigNotLoaded = errors.New("config not loaded")
)

type Environment string

const (
	Production  Environment = "prod"
	Development Environment = "dev"
)

func (e *Environment) SetValue(s string) error {
	*e = Environment(s)
	if *e != Production && *e != Development {
		return configNotLoadedErr(`only "prod" and "dev" environments are allowed`)
	}
	return nil
}

type Driver string

const (
	DriverPostgres Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
	DriverMemory   Driver = "memory"
)

func (d *Driver) SetValue(s string) error {
	*d = Driver(s)
	switch *d {
	case DriverPostgres, DriverSQLite, DriverMemory:
		return nil
	default:
		return configNotLoadedErr(`db driver must be one of "pgx", "sqlite" or "memory"`)
	}
}

type Config struct {
	App struct {
		Env Environment `yaml:"env" env:"ENV" env-required:""`
	} `yaml:"app" env-prefix:"APP_" env-required:""`

	Server struct {
		Host              string        `yaml:"host" env:"HOST" env-default:"localhost"`
		Port              int           `yaml:"port" env:"PORT" env-default:"8080"`
		ReadTimeout       time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"10s"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" env-default:"5s"`
		WriteTimeout      time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
		IdleTimeout       time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"10s"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
		AllowOrigins      []string      `yaml:"allow_origins" env:"ALLOW_ORIGINS" env-default:"*"`
	} `yaml:"server" env-prefix:"SERVER_"`

	DB struct {
		Driver          Driver        `yaml:"driver" env:"DRIVER" env-default:"pgx"`
		DSN             string        `yaml:"dsn" env:"DSN"`
		MaxRetries      uint          `yaml:"max_retries" env:"MAX_RETRIES" env-default:"5"`
		RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed" env:"RETRY_MAX_ELAPSED" env-default:"10s"`
	} `yaml:"db" env-prefix:"DB_"`
}

func (c *Config) validate() error {
	if err := c.DB.Driver.SetValue(string(c.DB.Driver)); err != nil {
		return err
	}
	if err := c.App.Env.SetValue(string(c.App.Env)); err != nil {
		return err
	}
	if c.DB.Driver != DriverMemory && c.DB.DSN == "" {
		return configNotLoadedErr("db dsn is required for the %q driver", c.DB.Driver)
	}
	return nil
}

func Load(filePath string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(filePath, cfg); err != nil {
		return nil, configNotLoadedErr("config not loaded: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(filePath string) *Config {
	cfg, err := Load(filePath)
	if err != nil {
		panic(err)
	}
	return cfg
}

func configNotLoadedErr(format string, args ...any) error {
	return errors.Join(fmt.Errorf(format, args...), ErrConfigNotLoaded)
}
