package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/session"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config -
type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	DexScreener DexScreenerConfig `mapstructure:"dexscreener"`
	Scan        ScanConfig        `mapstructure:"scan"`
	Scoring     momentum.Weights  `mapstructure:"scoring"`
	Detect      DetectConfig      `mapstructure:"detect"`
	Session     SessionConfig     `mapstructure:"session"`
	Export      ExportConfig      `mapstructure:"export"`
	App         AppConfig         `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string   `mapstructure:"bot_token"`
	ChatIDs  []string `mapstructure:"chat_ids"` // comma-separated in .env
}

// DexScreenerConfig - upstream API
type DexScreenerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ChainID        string        `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second
}

// ScanConfig - candidate gates and ranking
type ScanConfig struct {
	TopN          int           `mapstructure:"top_n"`
	PerAssetDelay time.Duration `mapstructure:"per_asset_delay"`
	MinMarketCap  float64       `mapstructure:"min_market_cap"`
	MaxMarketCap  float64       `mapstructure:"max_market_cap"`
	MinVolume     float64       `mapstructure:"min_volume"`
	MinLiquidity  float64       `mapstructure:"min_liquidity"`
	MinAgeMinutes int           `mapstructure:"min_age_minutes"`
	MaxAgeMinutes int           `mapstructure:"max_age_minutes"`
}

type DetectConfig struct {
	TrendThreshold        float64 `mapstructure:"trend_threshold"`
	VolumeSpikeMultiplier float64 `mapstructure:"volume_spike_multiplier"`
	LiquidityDrainPercent float64 `mapstructure:"liquidity_drain_percent"` // fraction, 0.25 = 25%
}

// SessionConfig - daily window, quiet hours and pacing
type SessionConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	WindowStart    string        `mapstructure:"window_start"`
	WindowEnd      string        `mapstructure:"window_end"`
	QuietEnabled   bool          `mapstructure:"quiet_enabled"`
	QuietStart     string        `mapstructure:"quiet_start"`
	QuietEnd       string        `mapstructure:"quiet_end"`
	QuietThreshold float64       `mapstructure:"quiet_threshold"`
	MaxAPIFailures int           `mapstructure:"max_api_failures"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	MaxInterval    time.Duration `mapstructure:"max_interval"`
	IdleInterval   time.Duration `mapstructure:"idle_interval"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
}

type ExportConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// AppConfig -
type AppConfig struct {
	Port     int    `mapstructure:"port"`
	LogDir   string `mapstructure:"log_dir"`
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig from env, files and flags
// 1. by default
// 2. config.yaml (or path)
// 3. .env file
// 4. environment
// 5. flags that were set on the command line
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	// .env only fills variables that are not already exported
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	setupEnvAliases(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Telegram.ChatIDs = splitList(v.Get("telegram.chat_ids"))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	// Telegram -
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_ids", "TELEGRAM_CHAT_IDS")

	// DexScreener -
	v.BindEnv("dexscreener.base_url", "DEXS_BASE_URL")

	// Scan -
	v.BindEnv("scan.top_n", "MAX_TOP_RESULTS")
	v.BindEnv("scan.per_asset_delay", "PER_ASSET_DELAY")
	v.BindEnv("scan.min_market_cap", "MIN_MARKET_CAP")
	v.BindEnv("scan.max_market_cap", "MAX_MARKET_CAP")
	v.BindEnv("scan.min_liquidity", "MIN_LIQUIDITY")
	v.BindEnv("scan.min_volume", "MIN_VOLUME")
	v.BindEnv("scan.min_age_minutes", "MIN_AGE_MINUTES")
	v.BindEnv("scan.max_age_minutes", "MAX_AGE_MINUTES")

	// Detect -
	v.BindEnv("detect.trend_threshold", "TREND_THRESHOLD")
	v.BindEnv("detect.volume_spike_multiplier", "VOLUME_SPIKE_MULTIPLIER")
	v.BindEnv("detect.liquidity_drain_percent", "LIQUIDITY_DRAIN_PERCENT")

	// Session -
	v.BindEnv("session.timezone", "TZ_NAME")
	v.BindEnv("session.window_start", "WINDOW_START")
	v.BindEnv("session.window_end", "WINDOW_END")
	v.BindEnv("session.quiet_start", "QUIET_START")
	v.BindEnv("session.quiet_end", "QUIET_END")
	v.BindEnv("session.quiet_threshold", "QUIET_THRESHOLD")
	v.BindEnv("session.max_api_failures", "MAX_API_FAILURES")

	// Export / App -
	v.BindEnv("export.csv_path", "OUTPUT_CSV")
	v.BindEnv("app.port", "PORT")
	v.BindEnv("app.log_level", "LOG_LEVEL")
}

// setDefaults by default
func setDefaults(v *viper.Viper) {
	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_ids", []string{})

	// DexScreener
	v.SetDefault("dexscreener.base_url", "https://api.dexscreener.com")
	v.SetDefault("dexscreener.chain_id", "solana")
	v.SetDefault("dexscreener.request_timeout", 6*time.Second)
	v.SetDefault("dexscreener.max_retries", 3)
	v.SetDefault("dexscreener.rate_limit", 4.0)

	// Scan
	v.SetDefault("scan.top_n", 5)
	v.SetDefault("scan.per_asset_delay", 800*time.Millisecond)
	v.SetDefault("scan.min_market_cap", 10_000.0)
	v.SetDefault("scan.max_market_cap", 2_000_000.0)
	v.SetDefault("scan.min_volume", 1_000.0)
	v.SetDefault("scan.min_liquidity", 5_000.0)
	v.SetDefault("scan.min_age_minutes", 30)
	v.SetDefault("scan.max_age_minutes", 7_200) // 5 days

	// Scoring
	w := momentum.DefaultWeights()
	v.SetDefault("scoring.price_change", w.PriceChange)
	v.SetDefault("scoring.activity", w.Activity)
	v.SetDefault("scoring.activity_scale", w.ActivityScale)
	v.SetDefault("scoring.liquidity", w.Liquidity)
	v.SetDefault("scoring.liquidity_scale", w.LiquidityScale)
	v.SetDefault("scoring.liquidity_mcap", w.LiquidityMcap)
	v.SetDefault("scoring.age", w.Age)
	v.SetDefault("scoring.age_scale", w.AgeScale)
	brackets := make([]map[string]any, 0, len(w.AgeBrackets))
	for _, b := range w.AgeBrackets {
		brackets = append(brackets, map[string]any{"below": b.Below, "factor": b.Factor})
	}
	v.SetDefault("scoring.age_brackets", brackets)
	v.SetDefault("scoring.age_floor", w.AgeFloor)
	v.SetDefault("scoring.twitter_bonus", w.TwitterBonus)
	v.SetDefault("scoring.telegram_bonus", w.TelegramBonus)

	// Detect
	v.SetDefault("detect.trend_threshold", 0.25)
	v.SetDefault("detect.volume_spike_multiplier", 2.0)
	v.SetDefault("detect.liquidity_drain_percent", 0.25)

	// Session
	v.SetDefault("session.timezone", "UTC")
	v.SetDefault("session.window_start", "20:30")
	v.SetDefault("session.window_end", "00:30")
	v.SetDefault("session.quiet_enabled", true)
	v.SetDefault("session.quiet_start", "23:00")
	v.SetDefault("session.quiet_end", "23:30")
	v.SetDefault("session.quiet_threshold", 70.0)
	v.SetDefault("session.max_api_failures", 5)
	v.SetDefault("session.min_interval", 5*time.Minute)
	v.SetDefault("session.max_interval", 10*time.Minute)
	v.SetDefault("session.idle_interval", 5*time.Minute)
	v.SetDefault("session.cooldown", 10*time.Minute)

	// Export
	v.SetDefault("export.csv_path", "top_tokens.csv")

	// App
	v.SetDefault("app.port", 10000)
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.log_level", "info")
}

// bindFlags connects command flags that override config keys
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"app.port":      "port",
		"app.log_level": "log-level",
	} {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func splitList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ChatIDs) == 0 {
		return fmt.Errorf("telegram.chat_ids is required when telegram.bot_token is set")
	}
	if _, err := cfg.TelegramChatIDs(); err != nil {
		return err
	}
	if cfg.DexScreener.ChainID == "" {
		return fmt.Errorf("dexscreener.chain_id must not be empty")
	}
	if cfg.Scan.TopN <= 0 {
		return fmt.Errorf("scan.top_n must be positive, got %d", cfg.Scan.TopN)
	}
	if cfg.Scan.MinMarketCap > cfg.Scan.MaxMarketCap {
		return fmt.Errorf("scan.min_market_cap (%v) exceeds scan.max_market_cap (%v)", cfg.Scan.MinMarketCap, cfg.Scan.MaxMarketCap)
	}
	if cfg.Scan.MinAgeMinutes > cfg.Scan.MaxAgeMinutes {
		return fmt.Errorf("scan.min_age_minutes (%d) exceeds scan.max_age_minutes (%d)", cfg.Scan.MinAgeMinutes, cfg.Scan.MaxAgeMinutes)
	}
	// records without a creation time carry UnknownAge and must stay rejected
	if cfg.Scan.MaxAgeMinutes >= momentum.UnknownAge {
		return fmt.Errorf("scan.max_age_minutes must be below %d, got %d", momentum.UnknownAge, cfg.Scan.MaxAgeMinutes)
	}
	if cfg.Detect.LiquidityDrainPercent <= 0 || cfg.Detect.LiquidityDrainPercent > 1 {
		return fmt.Errorf("detect.liquidity_drain_percent must be in (0, 1], got %v", cfg.Detect.LiquidityDrainPercent)
	}
	if cfg.Session.MaxAPIFailures <= 0 {
		return fmt.Errorf("session.max_api_failures must be positive")
	}
	if cfg.Session.MinInterval <= 0 || cfg.Session.MaxInterval < cfg.Session.MinInterval {
		return fmt.Errorf("invalid scan interval range %s..%s", cfg.Session.MinInterval, cfg.Session.MaxInterval)
	}
	if cfg.Session.IdleInterval <= 0 {
		return fmt.Errorf("session.idle_interval must be positive, got %s", cfg.Session.IdleInterval)
	}
	if cfg.Session.Cooldown <= 0 {
		return fmt.Errorf("session.cooldown must be positive, got %s", cfg.Session.Cooldown)
	}
	if _, _, err := cfg.Windows(); err != nil {
		return err
	}
	if cfg.App.Port < 0 || cfg.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", cfg.App.Port)
	}
	return nil
}

// TelegramChatIDs chat ids as numbers
func (c *Config) TelegramChatIDs() ([]int64, error) {
	ids := make([]int64, 0, len(c.Telegram.ChatIDs))
	for _, s := range c.Telegram.ChatIDs {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Windows active and quiet windows in the configured timezone
func (c *Config) Windows() (active, quiet session.Window, err error) {
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return active, quiet, fmt.Errorf("invalid session.timezone %q: %w", c.Session.Timezone, err)
	}
	active, err = session.ParseWindow(c.Session.WindowStart, c.Session.WindowEnd, loc)
	if err != nil {
		return active, quiet, fmt.Errorf("invalid active window: %w", err)
	}
	quiet, err = session.ParseWindow(c.Session.QuietStart, c.Session.QuietEnd, loc)
	if err != nil {
		return active, quiet, fmt.Errorf("invalid quiet window: %w", err)
	}
	return active, quiet, nil
}

func (c *Config) Analyzer() momentum.Config {
	return momentum.Config{
		MinMarketCap:  c.Scan.MinMarketCap,
		MaxMarketCap:  c.Scan.MaxMarketCap,
		MinVolume:     c.Scan.MinVolume,
		MinLiquidity:  c.Scan.MinLiquidity,
		MinAgeMinutes: c.Scan.MinAgeMinutes,
		MaxAgeMinutes: c.Scan.MaxAgeMinutes,
		Weights:       c.Scoring,
	}
}

func (c *Config) Thresholds() detect.Thresholds {
	return detect.Thresholds{
		Trend:          c.Detect.TrendThreshold,
		VolumeSpike:    c.Detect.VolumeSpikeMultiplier,
		LiquidityDrain: c.Detect.LiquidityDrainPercent,
	}
}

// Policy quiet-hours policy; Windows must have succeeded
func (c *Config) Policy() session.Policy {
	_, quiet, _ := c.Windows()
	return session.Policy{
		QuietEnabled:   c.Session.QuietEnabled,
		Quiet:          quiet,
		QuietThreshold: c.Session.QuietThreshold,
	}
}
