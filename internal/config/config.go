package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr        string
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver string
	} `mapstructure:"storage"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Ledger struct {
		DefaultTargetStock int64  `mapstructure:"default_target_stock"`
		CodePrefix         string `mapstructure:"code_prefix"`
		CodeAttempts       int    `mapstructure:"code_attempts"`
		AutoCreateItems    bool   `mapstructure:"auto_create_items"`
		ForecastDays       int    `mapstructure:"forecast_days"`
	} `mapstructure:"ledger"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("ledger.default_target_stock", 500)
	v.SetDefault("ledger.code_prefix", "TXR")
	v.SetDefault("ledger.code_attempts", 5)
	v.SetDefault("ledger.auto_create_items", true)
	v.SetDefault("ledger.forecast_days", 30)
}

// Load читает YAML из path (пустой path: только ENV и значения по умолчанию).
// Переменные APP_* (APP_POSTGRES_DSN и т.п.) перекрывают файл; .env подхватывается, если есть.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for storage.driver=postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Ledger.CodeAttempts < 1 {
		return fmt.Errorf("config: ledger.code_attempts must be positive, got %d", c.Ledger.CodeAttempts)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location: часовой пояс для дат «сегодня».
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: app.timezone: %w", err)
	}
	return loc, nil
}
