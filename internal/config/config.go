package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"sentinel-signals/internal/calculator"
	"sentinel-signals/internal/model"
	"sentinel-signals/internal/strategy"
)

// Data source types.
const (
	SourceBinance = "binance"
	SourceMock    = "mock"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Type        string `yaml:"type"`
		BaseURL     string `yaml:"base_url"`
		SpotBaseURL string `yaml:"spot_base_url"`
		Limit       int    `yaml:"limit"`
	} `yaml:"data_source"`
	Symbols    []string `yaml:"symbols"`
	Timeframes []string `yaml:"timeframes"`
	Analysis   Analysis `yaml:"analysis"`
	Signal     struct {
		Thresholds      map[string]float64 `yaml:"thresholds"`
		Weights         map[string]float64 `yaml:"weights"`
		RiskRewardRatio float64            `yaml:"risk_reward_ratio"`
		MaxLeverage     int                `yaml:"max_leverage"`
	} `yaml:"signal"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Notify struct {
		Console     bool   `yaml:"console"`
		File        string `yaml:"file"`
		NATSURL     string `yaml:"nats_url"`
		NATSSubject string `yaml:"nats_subject"`
	} `yaml:"notify"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
		Concurrency  int    `yaml:"concurrency"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Analysis holds the indicator parameters. Zero values take the calculator defaults.
type Analysis struct {
	MAPeriods []int `yaml:"ma_periods"`
	RSI       struct {
		Period int `yaml:"period"`
	} `yaml:"rsi"`
	MACD struct {
		FastPeriod   int `yaml:"fast_period"`
		SlowPeriod   int `yaml:"slow_period"`
		SignalPeriod int `yaml:"signal_period"`
	} `yaml:"macd"`
	KDJ struct {
		KPeriod int `yaml:"k_period"`
		DPeriod int `yaml:"d_period"`
		JPeriod int `yaml:"j_period"`
	} `yaml:"kdj"`
	Bollinger struct {
		Period int     `yaml:"period"`
		StdDev float64 `yaml:"std_dev"`
	} `yaml:"bollinger"`
	ATR struct {
		Period int `yaml:"period"`
	} `yaml:"atr"`
	CCI struct {
		Period int `yaml:"period"`
	} `yaml:"cci"`
	ADX struct {
		Period int `yaml:"period"`
	} `yaml:"adx"`
	SAR struct {
		Acceleration float64 `yaml:"acceleration"`
		Maximum      float64 `yaml:"maximum"`
	} `yaml:"sar"`
	Levels struct {
		Count int `yaml:"count"`
	} `yaml:"levels"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Notify.NATSURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Type == "" {
		c.DataSource.Type = SourceBinance
	}
	c.DataSource.Type = strings.ToLower(c.DataSource.Type)
	if c.DataSource.Limit == 0 {
		c.DataSource.Limit = 200
	}
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"BTCUSDT"}
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = []string{"1h", "4h"}
	}
	if c.Analysis.Levels.Count == 0 {
		c.Analysis.Levels.Count = 2
	}
	if c.Signal.RiskRewardRatio == 0 {
		c.Signal.RiskRewardRatio = 2
	}
	if c.Signal.MaxLeverage == 0 {
		c.Signal.MaxLeverage = 20
	}
	if c.Notify.NATSSubject == "" {
		c.Notify.NATSSubject = "signals"
	}
	if c.Schedule.AnalysisCron == "" {
		c.Schedule.AnalysisCron = "0 0 * * * *"
	}
	if c.Schedule.Concurrency == 0 {
		c.Schedule.Concurrency = 4
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sentinel_signals.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	switch c.DataSource.Type {
	case SourceBinance, SourceMock:
	default:
		return fmt.Errorf("data_source.type %q is not supported", c.DataSource.Type)
	}
	if c.DataSource.Limit < 1 {
		return fmt.Errorf("data_source.limit must be at least 1")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("timeframes must not be empty")
	}
	for _, tf := range c.Timeframes {
		if _, ok := model.TimeframeDuration(tf); !ok {
			return fmt.Errorf("timeframe %q is not supported", tf)
		}
	}
	if c.Schedule.Concurrency < 1 {
		return fmt.Errorf("schedule.concurrency must be at least 1")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.AnalysisCron); err != nil {
		return fmt.Errorf("schedule.analysis_cron: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// IndicatorParams converts the analysis section for the indicator builder.
func (c *Config) IndicatorParams() calculator.Params {
	a := c.Analysis
	return calculator.Params{
		MAPeriods:       a.MAPeriods,
		RSIPeriod:       a.RSI.Period,
		MACDFast:        a.MACD.FastPeriod,
		MACDSlow:        a.MACD.SlowPeriod,
		MACDSignal:      a.MACD.SignalPeriod,
		KPeriod:         a.KDJ.KPeriod,
		DPeriod:         a.KDJ.DPeriod,
		JPeriod:         a.KDJ.JPeriod,
		BBPeriod:        a.Bollinger.Period,
		BBStdDev:        a.Bollinger.StdDev,
		ATRPeriod:       a.ATR.Period,
		CCIPeriod:       a.CCI.Period,
		ADXPeriod:       a.ADX.Period,
		SARAcceleration: a.SAR.Acceleration,
		SARMaximum:      a.SAR.Maximum,
	}.WithDefaults()
}

// StrategyParams converts the signal section. Missing weight and threshold keys
// are filled per key by the strategy package.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		Weights:         c.Signal.Weights,
		Thresholds:      c.Signal.Thresholds,
		RiskRewardRatio: c.Signal.RiskRewardRatio,
		MaxLeverage:     c.Signal.MaxLeverage,
	}
}
