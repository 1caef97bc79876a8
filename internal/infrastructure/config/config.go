package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		LogLevel        string             `toml:"log_level"`
		BackfillWorkers int                `toml:"backfill_workers"`
		LookbackDays    int                `toml:"lookback_days"`
		EventSweepCron  string             `toml:"event_sweep_cron"`
		Withholding     map[string]float64 `toml:"withholding"`
	} `toml:"app"`

	Ledger struct {
		// Path to the sqlite database holding portfolios, transactions,
		// prices, fx rates and corporate events.
		Path string `toml:"path"`
	} `toml:"ledger"`

	Storage struct {
		// Backend selects the snapshot store: memory, sqlite, postgres or redis.
		Backend string `toml:"backend"`

		Sqlite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			DSN string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`

	Redis struct {
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		KeyPrefix  string `toml:"key_prefix"`
		TTLMin     int    `toml:"ttl_min"`
		BusChannel string `toml:"bus_channel"`
	} `toml:"redis"`

	Marketdata struct {
		Enabled bool   `toml:"enabled"`
		WsURL   string `toml:"ws_url"`
	} `toml:"marketdata"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.LogLevel) == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.BackfillWorkers <= 0 {
		cfg.App.BackfillWorkers = 4
	}
	if cfg.App.LookbackDays <= 0 {
		cfg.App.LookbackDays = 365
	}
	if strings.TrimSpace(cfg.App.EventSweepCron) == "" {
		// nightly, after markets close
		cfg.App.EventSweepCron = "0 2 * * *"
	}
	if strings.TrimSpace(cfg.Storage.Backend) == "" {
		cfg.Storage.Backend = "memory"
	}
	if strings.TrimSpace(cfg.Redis.KeyPrefix) == "" {
		cfg.Redis.KeyPrefix = "folio"
	}
	if strings.TrimSpace(cfg.Redis.BusChannel) == "" {
		cfg.Redis.BusChannel = cfg.Redis.KeyPrefix + ":invalidations"
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Ledger.Path) == "" {
		return errors.New("ledger.path is empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.Backend = backend
	switch backend {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.Sqlite.Path) == "" {
			return errors.New("storage.sqlite.path empty but backend is sqlite")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn empty but backend is postgres")
		}
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return errors.New("redis.addr empty but backend is redis")
		}
	default:
		return errors.New("storage.backend must be one of memory, sqlite, postgres, redis")
	}

	if cfg.Marketdata.Enabled {
		if strings.TrimSpace(cfg.Marketdata.WsURL) == "" {
			return errors.New("marketdata.ws_url empty but enabled")
		}
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return errors.New("redis.addr required when marketdata feed is enabled")
		}
	}

	for jur, rate := range cfg.App.Withholding {
		if rate < 0 || rate >= 1 {
			return errors.New("app.withholding rate out of range for " + jur)
		}
	}
	return nil
}
