package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFearGreedLatestCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"40","value_classification":"Fear","timestamp":"1551157200","time_until_update":"68499"}],"metadata":{"error":null}}`))
	}))
	defer srv.Close()

	svc := NewFearGreedService(FearGreedOptions{URL: srv.URL, Timeout: time.Second})
	got := svc.Latest(context.Background())
	require.True(t, got.Available())
	assert.Equal(t, 40, *got.Value)
	assert.Equal(t, "Fear", *got.Classification)

	_ = svc.Latest(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, svc.LastError())
}

func TestFearGreedTTLCapsCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"data":[{"value":"75","value_classification":"Greed","time_until_update":"68499"}]}`))
	}))
	defer srv.Close()

	now := time.Unix(1_700_000_000, 0)
	svc := NewFearGreedService(FearGreedOptions{URL: srv.URL, TTL: time.Minute})
	svc.nowFn = func() time.Time { return now }
	svc.Latest(context.Background())
	now = now.Add(2 * time.Minute)
	svc.Latest(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFearGreedFailureYieldsNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewFearGreedService(FearGreedOptions{URL: srv.URL})
	got := svc.Latest(context.Background())
	assert.False(t, got.Available())
	assert.Nil(t, got.Classification)
	assert.Contains(t, svc.LastError(), "502")
}

const listingHTML = `<html><body>
<ul class="news">
  <li class="item"><a href="/a/1">  Bitcoin   rallies </a></li>
  <li class="item"><a href="https://example.com/a/2">ETF inflows rise</a></li>
  <li class="item"><span>no link here</span></li>
  <li class="item"><a href="/a/3">Bitcoin rallies</a></li>
</ul></body></html>`

func TestNewsHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewNewsScraper([]NewsSource{{Name: "local", URL: srv.URL + "/list", ItemSelector: "li.item"}}, 10, time.Second)
	got, err := s.Headlines(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Bitcoin rallies", got[0].Title)
	assert.Equal(t, srv.URL+"/a/1", got[0].URL)
	assert.Equal(t, "https://example.com/a/2", got[1].URL)
	assert.Equal(t, "no link here", got[2].Title)
	assert.Empty(t, got[2].URL)
}

func TestNewsHeadlinesLimitAndFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	s := NewNewsScraper([]NewsSource{
		{Name: "bad", URL: bad.URL, ItemSelector: "li.item"},
		{Name: "good", URL: good.URL, ItemSelector: "li.item a"},
	}, 1, time.Second)
	got, err := s.Headlines(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Source)

	onlyBad := NewNewsScraper([]NewsSource{{Name: "bad", URL: bad.URL, ItemSelector: "li"}}, 5, time.Second)
	_, err = onlyBad.Headlines(context.Background())
	assert.Error(t, err)
}
