package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"aitrader/internal/logger"
)

// FallbackSystemPrompt 在提示词文件缺失或为空时使用。
const FallbackSystemPrompt = `You are a crypto trading assistant. You receive a JSON object with the
trading symbol, account balances, candle series with RSI/SMA indicators, the
Fear & Greed index and optionally recent headlines and a chart image.

Choose exactly one action:
- "buy": spend the available quote balance on the spot market
- "sell": sell the whole spot base balance
- "long": open a leveraged long futures position
- "short": open a leveraged short futures position
- "hold": do nothing

Respond with a single JSON object and nothing else:
{"decision": "buy" | "sell" | "long" | "short" | "hold", "reason": "<short explanation>"}`

// Store 持有当前系统提示词，文件变化时热加载。
type Store struct {
	path string

	mu     sync.RWMutex
	system string
	source string
}

// Load 读取提示词文件；文件不存在或为空时退回内置提示词。
func Load(path string) *Store {
	s := &Store{path: strings.TrimSpace(path)}
	s.reload()
	return s
}

func (s *Store) System() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// Source 返回当前提示词来源：文件路径或 "builtin"。
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *Store) reload() {
	text, src := FallbackSystemPrompt, "builtin"
	if s.path != "" {
		raw, err := os.ReadFile(s.path)
		switch {
		case err != nil:
			logger.Warnf("读取提示词 %s 失败，使用内置提示词: %v", s.path, err)
		case strings.TrimSpace(string(raw)) == "":
			logger.Warnf("提示词 %s 为空，使用内置提示词", s.path)
		default:
			text, src = strings.TrimSpace(string(raw)), s.path
		}
	}
	s.mu.Lock()
	s.system, s.source = text, src
	s.mu.Unlock()
}

// Watch 监听提示词所在目录（编辑器常以 rename 方式保存），直到 ctx 结束。
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.reload()
			logger.Infof("系统提示词已重新加载 (%s, source=%s)", evt.Op, s.Source())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("prompt watcher error: %v", err)
		}
	}
}
