package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Venue    VenueConfig    `mapstructure:"venue"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Bot      BotConfig      `mapstructure:"bot"`
	Swap     SwapConfig     `mapstructure:"swap"`
	Settings SettingsConfig `mapstructure:"settings"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type VenueConfig struct {
	// TradeURL serves the /api/* trading endpoints, AuthURL the
	// /v1/offchain/* authentication and points endpoints.
	TradeURL       string `mapstructure:"trade_url"`
	AuthURL        string `mapstructure:"auth_url"`
	Chain          string `mapstructure:"chain"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RequestsPerSec int    `mapstructure:"requests_per_sec"`
}

type WalletConfig struct {
	// PrivateKey is the hex-encoded ECDSA wallet key, with or without
	// the 0x prefix. It signs the login challenge and on-chain swaps.
	PrivateKey string `mapstructure:"private_key"`
}

type BotConfig struct {
	Symbol        string  `mapstructure:"symbol"`
	MinSize       float64 `mapstructure:"min_size"`
	MaxSize       float64 `mapstructure:"max_size"`
	IntervalMin   float64 `mapstructure:"interval_min_sec"`
	IntervalMax   float64 `mapstructure:"interval_max_sec"`
	PriceVariance float64 `mapstructure:"price_variance"`
}

type SwapConfig struct {
	RPCURL        string        `mapstructure:"rpc_url"`
	Router        string        `mapstructure:"router"`
	Pools         []string      `mapstructure:"pools"`
	QuoteURL      string        `mapstructure:"quote_url"`
	SwapURL       string        `mapstructure:"swap_url"`
	MaxSlippage   float64       `mapstructure:"max_slippage"`
	Tokens        []TokenConfig `mapstructure:"tokens"`
	GasLimitFloor uint64        `mapstructure:"gas_limit_floor"`
}

type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals int32  `mapstructure:"decimals"`
}

type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. VOLGATE_WALLET_PRIVATE_KEY
	viper.SetEnvPrefix("volgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("venue.trade_url", "https://perps.standx.com")
	viper.SetDefault("venue.auth_url", "https://api.standx.com")
	viper.SetDefault("venue.chain", "bsc")
	viper.SetDefault("venue.timeout_seconds", 30)
	viper.SetDefault("venue.requests_per_sec", 10)

	viper.SetDefault("bot.symbol", "BTC-PERP")
	viper.SetDefault("bot.min_size", 0.001)
	viper.SetDefault("bot.max_size", 0.01)
	viper.SetDefault("bot.interval_min_sec", 5)
	viper.SetDefault("bot.interval_max_sec", 15)
	viper.SetDefault("bot.price_variance", 0.001)

	viper.SetDefault("swap.rpc_url", "https://bsc-dataseed.binance.org/")
	viper.SetDefault("swap.router", "0xac4c6e212a361c968f1725b4d055b47e63f80b75")
	viper.SetDefault("swap.pools", []string{
		"0xb67e5eaf770a384ab28029d08b9bc5ebe32beb0f",
		"0xf26de996845fb1e07f33af3c7f02b084965d6dde",
		"0x2ad9c1ad5b06f953b69d39d6685d725cd330b9c5",
		"0x15beac740434402f788345a4ae8f34dac2cd59ed",
	})
	viper.SetDefault("swap.quote_url", "https://api.sushi.com/quote/v7/56")
	viper.SetDefault("swap.swap_url", "https://api.sushi.com/swap/v7/56")
	viper.SetDefault("swap.max_slippage", 0.01)
	viper.SetDefault("swap.gas_limit_floor", 500000)
	viper.SetDefault("swap.tokens", []map[string]any{
		{"symbol": "DUSD", "address": "0xaf44A1E76F56eE12ADBB7ba8acD3CbD474888122", "decimals": 6},
		{"symbol": "USDT", "address": "0x55d398326f99059fF775485246999027B3197955", "decimals": 18},
	})

	viper.SetDefault("settings.path", "settings.json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
