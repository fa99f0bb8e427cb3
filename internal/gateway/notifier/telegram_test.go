package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendStructured(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	msg := StructuredMessage{Icon: "✅", Title: "BTCUSDT Buy Executed", TraceID: "abc"}
	msg.AddSection("决策", F("decision", "buy"), F("reason", "breakout"), F("skip", "  "))
	require.NoError(t, tg.SendStructured(context.Background(), msg))

	assert.Equal(t, "42", got["chat_id"])
	text := got["text"].(string)
	assert.Contains(t, text, "*✅ BTCUSDT Buy Executed*")
	assert.Contains(t, text, "decision : buy\n")
	assert.Contains(t, text, "reason   : breakout\n")
	assert.NotContains(t, text, "skip")
	assert.Contains(t, text, "trace `abc`")
}

func TestTelegramRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("T", "1")
	tg.BaseURL = srv.URL
	tg.sleepFn = func(context.Context, time.Duration) error { return nil }
	require.NoError(t, tg.SendText(context.Background(), "hi"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestTelegramStopsOnClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("T", "1")
	tg.BaseURL = srv.URL
	tg.sleepFn = func(context.Context, time.Duration) error { return nil }
	assert.Error(t, tg.SendText(context.Background(), "hi"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTelegramRequiresCredentials(t *testing.T) {
	assert.Error(t, NewTelegram("", "1").SendText(context.Background(), "x"))
}

func TestRenderMarkdownTruncatesOnRuneBoundary(t *testing.T) {
	msg := StructuredMessage{Title: "长消息"}
	msg.AddSection("body", F("", strings.Repeat("中", 5000)))
	out := msg.RenderMarkdown()
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, maxStructuredMessageLen+3, utf8.RuneCountInString(out))
	assert.True(t, strings.ToValidUTF8(out, "?") == out)
}
