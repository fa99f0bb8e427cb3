package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aitrader/internal/logger"
)

const (
	DefaultFearGreedURL   = "https://api.alternative.me/fng/?limit=1"
	fearGreedErrorBackoff = 2 * time.Minute
)

// FearGreed 是发给模型的情绪指数，拉取失败时两个字段都为 null。
type FearGreed struct {
	Value          *int    `json:"value"`
	Classification *string `json:"classification"`
}

func (f FearGreed) Available() bool { return f.Value != nil }

type FearGreedOptions struct {
	URL     string
	Timeout time.Duration
	// TTL 限制读数复用时长，0 表示直接采用服务端的 time_until_update。
	TTL        time.Duration
	HTTPClient *http.Client
}

type FearGreedService struct {
	endpoint string
	client   *http.Client
	ttl      time.Duration
	nowFn    func() time.Time

	mu         sync.RWMutex
	data       FearGreed
	lastErr    string
	lastUpdate time.Time
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewFearGreedService(opts FearGreedOptions) *FearGreedService {
	endpoint := strings.TrimSpace(opts.URL)
	if endpoint == "" {
		endpoint = DefaultFearGreedURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &FearGreedService{
		endpoint: endpoint,
		client:   client,
		ttl:      opts.TTL,
		nowFn:    time.Now,
	}
}

// Latest 返回缓存读数，过期时刷新。不会失败：接口不可达时返回字段为 null 的 FearGreed。
func (s *FearGreedService) Latest(ctx context.Context) FearGreed {
	if s == nil {
		return FearGreed{}
	}
	s.refreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// LastError 返回最近一次刷新失败的错误。
func (s *FearGreedService) LastError() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *FearGreedService) stale(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate.IsZero() || s.nextUpdate.IsZero() || !now.Before(s.nextUpdate)
}

func (s *FearGreedService) refreshIfStale(ctx context.Context) {
	if !s.stale(s.nowFn()) {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if !s.stale(s.nowFn()) {
		return
	}
	if err := s.refresh(ctx); err != nil {
		logger.Warnf("Fear & Greed 刷新失败: %v", err)
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
		TimeUntilUpdate     string `json:"time_until_update"`
	} `json:"data"`
	Metadata struct {
		Error interface{} `json:"error"`
	} `json:"metadata"`
}

func (s *FearGreedService) refresh(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return s.fail(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.fail(fmt.Errorf("unexpected status %s", resp.Status))
	}

	var payload fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return s.fail(err)
	}
	if payload.Metadata.Error != nil {
		return s.fail(fmt.Errorf("api error: %v", payload.Metadata.Error))
	}
	if len(payload.Data) == 0 {
		return s.fail(fmt.Errorf("api data empty"))
	}
	item := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(item.Value))
	if err != nil {
		return s.fail(fmt.Errorf("api value %q: %w", item.Value, err))
	}
	class := strings.TrimSpace(item.ValueClassification)

	now := s.nowFn()
	next := now.Add(12 * time.Hour)
	if raw := strings.TrimSpace(item.TimeUntilUpdate); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			next = now.Add(time.Duration(secs) * time.Second)
		}
	}
	if s.ttl > 0 && next.After(now.Add(s.ttl)) {
		next = now.Add(s.ttl)
	}

	s.mu.Lock()
	s.data = FearGreed{Value: &value, Classification: &class}
	s.lastErr = ""
	s.lastUpdate = now
	s.nextUpdate = next
	s.mu.Unlock()
	return nil
}

func (s *FearGreedService) fail(err error) error {
	now := s.nowFn()
	s.mu.Lock()
	s.data = FearGreed{}
	s.lastErr = err.Error()
	s.lastUpdate = now
	s.nextUpdate = now.Add(fearGreedErrorBackoff)
	s.mu.Unlock()
	return err
}
