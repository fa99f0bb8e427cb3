package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey    string
	SecretKey string

	SpotBaseURL    string
	FuturesBaseURL string
	HTTPTimeout    time.Duration

	ProxyURL string
	Testnet  bool
}

func (c *Config) withDefaults() Config {
	out := *c
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.SecretKey = strings.TrimSpace(out.SecretKey)
	out.SpotBaseURL = strings.TrimRight(strings.TrimSpace(out.SpotBaseURL), "/")
	out.FuturesBaseURL = strings.TrimRight(strings.TrimSpace(out.FuturesBaseURL), "/")
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	return out
}
