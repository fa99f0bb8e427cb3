package provider

import (
	"fmt"
	"strings"
	"time"
)

type ModelCfg struct {
	Provider, APIURL, APIKey, Model string
	Headers                         map[string]string
	Temperature                     float64
	MaxRetries                      int
	SupportsVision                  bool
	ExpectJSON                      bool
}

// BuildProvider 由配置构造 provider，ID 形如 openai:gpt-4o。
func BuildProvider(m ModelCfg, timeout time.Duration) (ModelProvider, error) {
	if strings.TrimSpace(m.Model) == "" {
		return nil, fmt.Errorf("ai.model 不能为空")
	}
	base := strings.TrimSpace(m.Provider)
	if base == "" {
		base = "openai"
	}
	client := &OpenAIChatClient{
		BaseURL:      m.APIURL,
		APIKey:       m.APIKey,
		Model:        m.Model,
		Timeout:      timeout,
		Temperature:  m.Temperature,
		MaxRetries:   m.MaxRetries,
		ExtraHeaders: m.Headers,
	}
	id := fmt.Sprintf("%s:%s", base, strings.TrimSpace(m.Model))
	return NewOpenAIModelProvider(id, m.SupportsVision, m.ExpectJSON, client), nil
}
