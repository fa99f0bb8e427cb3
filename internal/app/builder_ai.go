package app

import (
	"aitrader/internal/config"
	"aitrader/internal/gateway/provider"
)

func buildModelProvider(cfg config.AIConfig) (provider.ModelProvider, error) {
	return provider.BuildProvider(provider.ModelCfg{
		Provider:       cfg.Provider,
		APIURL:         cfg.APIURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		Headers:        cfg.ExtraHeaders,
		Temperature:    cfg.Temperature,
		MaxRetries:     cfg.MaxRetries,
		SupportsVision: cfg.Vision,
		ExpectJSON:     true,
	}, cfg.Timeout)
}
