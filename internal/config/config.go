package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	WindowSize     int    `mapstructure:"WINDOW_SIZE"`
	Strategy       string `mapstructure:"STRATEGY"`
	CacheSize      int    `mapstructure:"CACHE_SIZE"`
	TickCounts     string `mapstructure:"TICK_COUNTS"`
	Repeats        int    `mapstructure:"REPEATS"`
	DataPath       string `mapstructure:"DATA_PATH"`
	ReportDir      string `mapstructure:"REPORT_DIR"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	Serve          bool   `mapstructure:"SERVE"`
	Port           string `mapstructure:"PORT"`
	NatsURL        string `mapstructure:"NATS_URL"`
	DB_DSN         string `mapstructure:"DB_DSN"`
	BinanceSymbols string `mapstructure:"BINANCE_SYMBOLS"`
}

// LoadConfig reads app.env from path (if present) and the environment.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv() // 自动读取环境变量

	v.SetDefault("WINDOW_SIZE", 50)
	v.SetDefault("STRATEGY", "windowed")
	v.SetDefault("CACHE_SIZE", 0)
	v.SetDefault("TICK_COUNTS", "1000,10000,100000")
	v.SetDefault("REPEATS", 1)
	v.SetDefault("DATA_PATH", "market_data.csv")
	v.SetDefault("REPORT_DIR", ".")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVE", false)
	v.SetDefault("PORT", "8080")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("BINANCE_SYMBOLS", "")

	err = v.ReadInConfig()
	// If config file not found, we can still use env vars
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	}
	if err != nil {
		return Config{}, err
	}
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("WINDOW_SIZE must be at least 1, got %d", c.WindowSize)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must not be negative, got %d", c.CacheSize)
	}
	if c.Repeats < 1 {
		return fmt.Errorf("REPEATS must be at least 1, got %d", c.Repeats)
	}
	if _, err := c.TickCountList(); err != nil {
		return err
	}
	return nil
}

// TickCountList parses TICK_COUNTS, a comma separated list of positive ints.
func (c Config) TickCountList() ([]int, error) {
	var counts []int
	for _, part := range strings.Split(c.TickCounts, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(part, "_", ""))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("TICK_COUNTS: invalid count %q", part)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("TICK_COUNTS: no counts in %q", c.TickCounts)
	}
	return counts, nil
}

// BinanceSymbolList returns the configured Binance symbols, lower-cased.
func (c Config) BinanceSymbolList() []string {
	var out []string
	for _, s := range strings.Split(c.BinanceSymbols, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
