package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MacroLens/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DisabledPath turns off the SQLite recorder when used as database.sqlite_path.
const DisabledPath = "none"

// Provider configures one upstream source.
type Provider struct {
	Disabled          bool   `yaml:"disabled"`
	BaseURL           string `yaml:"base_url" validate:"omitempty,url"`
	APIKey            string `yaml:"api_key"`
	RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
}

// WatchItem is a series refreshed by the scheduler.
type WatchItem struct {
	Source    string `yaml:"source" validate:"required"`
	Entity    string `yaml:"entity" validate:"required"`
	Indicator string `yaml:"indicator" validate:"required"`
	Frequency string `yaml:"frequency" validate:"required"`
}

// Request converts the item to a SeriesRequest.
func (w WatchItem) Request() (model.SeriesRequest, error) {
	src, err := model.ParseSource(w.Source)
	if err != nil {
		return model.SeriesRequest{}, err
	}
	freq, err := model.ParseFrequency(w.Frequency)
	if err != nil {
		return model.SeriesRequest{}, err
	}
	return model.SeriesRequest{
		Source:        src,
		EntityCode:    w.Entity,
		IndicatorCode: w.Indicator,
		Frequency:     freq,
	}, nil
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Listen       string        `yaml:"listen" validate:"required"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		MaxBatch     int           `yaml:"max_batch" validate:"gte=1,lte=100"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"log"`
	HTTP struct {
		Timeout     time.Duration `yaml:"timeout"`
		MaxAttempts int           `yaml:"max_attempts" validate:"gte=1,lte=10"`
		UserAgent   string        `yaml:"user_agent"`
	} `yaml:"http"`
	Cache struct {
		Dir              string        `yaml:"dir"`
		MemoryEntries    int           `yaml:"memory_entries" validate:"gte=0"`
		DataTTL          time.Duration `yaml:"data_ttl"`
		MetadataTTL      time.Duration `yaml:"metadata_ttl"`
		CompressionLevel int           `yaml:"compression_level" validate:"gte=1,lte=4"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Providers struct {
		DataCommons  Provider `yaml:"datacommons"`
		DataMapper   Provider `yaml:"imf_datamapper"`
		SDMX         Provider `yaml:"imf_sdmx"`
		REST         Provider `yaml:"imf_rest"`
		AlphaVantage Provider `yaml:"alphavantage"`
		Yahoo        Provider `yaml:"yahoo"`
	} `yaml:"providers"`
	Schedule struct {
		WarmCron    string `yaml:"warm_cron"`
		Concurrency int    `yaml:"concurrency" validate:"gte=1,lte=32"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Watchlist []WatchItem `yaml:"watchlist" validate:"dive"`
	Proxy     string      `yaml:"proxy" validate:"omitempty,url"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("DATACOMMONS_API_KEY"); v != "" {
		c.Providers.DataCommons.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("WARM_CRON"); v != "" {
		c.Schedule.WarmCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Schedule.RunOnStart = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Server.MaxBatch == 0 {
		c.Server.MaxBatch = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.MaxAttempts == 0 {
		c.HTTP.MaxAttempts = 4
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "data/cache"
	}
	if c.Cache.MemoryEntries == 0 {
		c.Cache.MemoryEntries = 512
	}
	if c.Cache.DataTTL == 0 {
		c.Cache.DataTTL = 24 * time.Hour
	}
	if c.Cache.MetadataTTL == 0 {
		c.Cache.MetadataTTL = 7 * 24 * time.Hour
	}
	if c.Cache.CompressionLevel == 0 {
		c.Cache.CompressionLevel = 2
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/macrolens.db"
	}
	if c.Providers.AlphaVantage.RequestsPerMinute == 0 {
		// free tier
		c.Providers.AlphaVantage.RequestsPerMinute = 5
	}
	if c.Schedule.WarmCron == "" {
		c.Schedule.WarmCron = "0 0 6 * * *"
	}
	if c.Schedule.Concurrency == 0 {
		c.Schedule.Concurrency = 4
	}
}

// RecorderEnabled reports whether resolution history should be persisted.
func (c *Config) RecorderEnabled() bool {
	return c.Database.SQLitePath != "" && c.Database.SQLitePath != DisabledPath
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// CronParser accepts the six-field spec with a leading seconds field.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field constraints, the cron spec and every watchlist entry.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CronParser.Parse(c.Schedule.WarmCron); err != nil {
		return fmt.Errorf("schedule.warm_cron: %w", err)
	}
	for i, w := range c.Watchlist {
		if _, err := w.Request(); err != nil {
			return fmt.Errorf("watchlist[%d]: %w", i, err)
		}
	}
	return nil
}
