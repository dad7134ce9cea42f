// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// トリガー方式
const (
	TriggerFixedTimes = "fixed-times"
	TriggerInterval   = "interval"
)

// ゲートウェイ種別
const (
	GatewayTelegram = "telegram"
	GatewayLog      = "log"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Gateway
	Gateway           string
	TelegramBotToken  string
	TelegramAPIBase   string
	GatewayRatePerSec float64
	GatewayTimeout    time.Duration

	// Query / Ledger
	DefaultLocation     string
	DefaultExpMin       int
	DefaultExpMax       int
	DefaultFollowupDays int
	SearchBaseURL       string

	// Schedule
	TriggerMode         string
	FixedTimes          []string
	TimeZone            *time.Location
	Interval            time.Duration
	SummarySchedule     string
	CycleMaxConcurrent  int
	ActionRetentionDays int

	// Cycle lock
	RedisURL     string
	CycleLockTTL time.Duration

	// Server
	ServerPort      string
	APIToken        string
	RateLimitPerMin int

	// Logging
	LogLevel string
}

// fileConfig は設定ファイル（YAML）の内容。指定された項目だけが既定値を上書きし、
// 環境変数はさらにその上から上書きする。
type fileConfig struct {
	Gateway struct {
		Kind       string  `yaml:"kind"`
		APIBase    string  `yaml:"api_base"`
		RatePerSec float64 `yaml:"rate_per_sec"`
		Timeout    string  `yaml:"timeout"`
	} `yaml:"gateway"`
	Schedule struct {
		TriggerMode     string   `yaml:"trigger_mode"`
		FixedTimes      []string `yaml:"fixed_times"`
		TimeZone        string   `yaml:"timezone"`
		IntervalSeconds int      `yaml:"interval_seconds"`
		Summary         *string  `yaml:"summary"`
		MaxConcurrent   int      `yaml:"max_concurrent"`
	} `yaml:"schedule"`
	Defaults struct {
		Location     string `yaml:"location"`
		ExpMin       *int   `yaml:"exp_min"`
		ExpMax       *int   `yaml:"exp_max"`
		FollowupDays int    `yaml:"followup_days"`
		SearchBase   string `yaml:"search_base_url"`
	} `yaml:"defaults"`
}

// defaults は組み込みの既定値。
type defaults struct {
	gateway         string
	apiBase         string
	ratePerSec      float64
	timeout         time.Duration
	location        string
	expMin          int
	expMax          int
	followupDays    int
	searchBase      string
	triggerMode     string
	fixedTimes      string
	timeZone        string
	intervalSeconds int
	summary         string
	maxConcurrent   int
}

func builtinDefaults() defaults {
	return defaults{
		gateway:         GatewayTelegram,
		apiBase:         "https://api.telegram.org",
		ratePerSec:      25,
		timeout:         10 * time.Second,
		location:        "india",
		expMin:          0,
		expMax:          30,
		followupDays:    5,
		searchBase:      "https://www.naukri.com",
		triggerMode:     TriggerFixedTimes,
		fixedTimes:      "09:00",
		timeZone:        "UTC",
		intervalSeconds: 3600,
		summary:         "0 10 * * 0",
		maxConcurrent:   10,
	}
}

// Load は環境変数からConfigを読み込む。
// JOBNUDGE_CONFIG_FILE が設定されている場合は、先にそのYAMLファイルで既定値を上書きする。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	d := builtinDefaults()
	if path := os.Getenv("JOBNUDGE_CONFIG_FILE"); path != "" {
		if err := applyFile(&d, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.Gateway = strings.ToLower(getEnvString("GATEWAY", d.gateway))
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.Gateway == GatewayTelegram && cfg.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseDriver = strings.ToLower(getEnvString("DATABASE_DRIVER", "postgres"))
	cfg.TelegramAPIBase = getEnvString("TELEGRAM_API_BASE", d.apiBase)
	cfg.GatewayRatePerSec = getEnvFloat("GATEWAY_RATE_PER_SEC", d.ratePerSec)
	cfg.GatewayTimeout = getEnvDuration("GATEWAY_TIMEOUT", d.timeout)
	cfg.DefaultLocation = getEnvString("DEFAULT_LOCATION", d.location)
	cfg.DefaultExpMin = getEnvInt("DEFAULT_EXP_MIN", d.expMin)
	cfg.DefaultExpMax = getEnvInt("DEFAULT_EXP_MAX", d.expMax)
	cfg.DefaultFollowupDays = getEnvInt("DEFAULT_FOLLOWUP_DAYS", d.followupDays)
	cfg.SearchBaseURL = getEnvString("SEARCH_BASE_URL", d.searchBase)
	cfg.TriggerMode = strings.ToLower(getEnvString("TRIGGER_MODE", d.triggerMode))
	cfg.FixedTimes = splitList(getEnvString("FIXED_TIMES", d.fixedTimes))
	cfg.Interval = time.Duration(getEnvInt("INTERVAL_SECONDS", d.intervalSeconds)) * time.Second
	cfg.SummarySchedule = d.summary
	if v, ok := os.LookupEnv("SUMMARY_SCHEDULE"); ok {
		cfg.SummarySchedule = strings.TrimSpace(v)
	}
	cfg.CycleMaxConcurrent = getEnvInt("CYCLE_MAX_CONCURRENT", d.maxConcurrent)
	cfg.ActionRetentionDays = getEnvInt("ACTION_RETENTION_DAYS", 180)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.CycleLockTTL = getEnvDuration("CYCLE_LOCK_TTL", 30*time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.APIToken = os.Getenv("API_TOKEN")
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MIN", 60)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	loc, err := time.LoadLocation(getEnvString("TIMEZONE", d.timeZone))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.TimeZone = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は値の組み合わせを検証する。
func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q (postgres or sqlite)", c.DatabaseDriver)
	}
	switch c.Gateway {
	case GatewayTelegram, GatewayLog:
	default:
		return fmt.Errorf("invalid GATEWAY %q (telegram or log)", c.Gateway)
	}
	switch c.TriggerMode {
	case TriggerFixedTimes:
		if len(c.FixedTimes) == 0 {
			return fmt.Errorf("FIXED_TIMES must not be empty in %s mode", TriggerFixedTimes)
		}
		for _, hhmm := range c.FixedTimes {
			if _, err := time.Parse("15:04", hhmm); err != nil {
				return fmt.Errorf("invalid FIXED_TIMES entry %q (want HH:MM)", hhmm)
			}
		}
	case TriggerInterval:
		if c.Interval <= 0 {
			return fmt.Errorf("INTERVAL_SECONDS must be positive")
		}
	default:
		return fmt.Errorf("invalid TRIGGER_MODE %q (fixed-times or interval)", c.TriggerMode)
	}
	if c.DefaultFollowupDays < 1 {
		return fmt.Errorf("DEFAULT_FOLLOWUP_DAYS must be at least 1, got %d", c.DefaultFollowupDays)
	}
	if c.DefaultExpMin < 0 || c.DefaultExpMin > c.DefaultExpMax {
		return fmt.Errorf("invalid experience range %d-%d", c.DefaultExpMin, c.DefaultExpMax)
	}
	if c.GatewayRatePerSec <= 0 {
		return fmt.Errorf("GATEWAY_RATE_PER_SEC must be positive")
	}
	return nil
}

// applyFile はYAML設定ファイルの値で既定値を上書きする。
func applyFile(d *defaults, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if f.Gateway.Kind != "" {
		d.gateway = f.Gateway.Kind
	}
	if f.Gateway.APIBase != "" {
		d.apiBase = f.Gateway.APIBase
	}
	if f.Gateway.RatePerSec > 0 {
		d.ratePerSec = f.Gateway.RatePerSec
	}
	if f.Gateway.Timeout != "" {
		timeout, err := time.ParseDuration(f.Gateway.Timeout)
		if err != nil {
			return fmt.Errorf("parsing config file: gateway.timeout: %w", err)
		}
		d.timeout = timeout
	}

	if f.Schedule.TriggerMode != "" {
		d.triggerMode = f.Schedule.TriggerMode
	}
	if len(f.Schedule.FixedTimes) > 0 {
		d.fixedTimes = strings.Join(f.Schedule.FixedTimes, ",")
	}
	if f.Schedule.TimeZone != "" {
		d.timeZone = f.Schedule.TimeZone
	}
	if f.Schedule.IntervalSeconds > 0 {
		d.intervalSeconds = f.Schedule.IntervalSeconds
	}
	if f.Schedule.Summary != nil {
		d.summary = strings.TrimSpace(*f.Schedule.Summary)
	}
	if f.Schedule.MaxConcurrent > 0 {
		d.maxConcurrent = f.Schedule.MaxConcurrent
	}

	if f.Defaults.Location != "" {
		d.location = f.Defaults.Location
	}
	if f.Defaults.ExpMin != nil {
		d.expMin = *f.Defaults.ExpMin
	}
	if f.Defaults.ExpMax != nil {
		d.expMax = *f.Defaults.ExpMax
	}
	if f.Defaults.FollowupDays != 0 {
		d.followupDays = f.Defaults.FollowupDays
	}
	if f.Defaults.SearchBase != "" {
		d.searchBase = f.Defaults.SearchBase
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
