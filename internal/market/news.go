package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"aitrader/internal/logger"
)

const newsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Headline struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
}

// NewsSource 是一个列表页。ItemSelector 匹配标题节点：链接本身或包含链接的容器。
type NewsSource struct {
	Name         string
	URL          string
	ItemSelector string
}

type NewsScraper struct {
	sources  []NewsSource
	maxItems int
	timeout  time.Duration
}

func NewNewsScraper(sources []NewsSource, maxItems int, timeout time.Duration) *NewsScraper {
	if maxItems <= 0 {
		maxItems = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsScraper{sources: sources, maxItems: maxItems, timeout: timeout}
}

// Headlines 依次抓取各来源直到满 maxItems。失败的来源记日志后跳过，全部失败才返回 error。
func (s *NewsScraper) Headlines(ctx context.Context) ([]Headline, error) {
	if s == nil || len(s.sources) == 0 {
		return nil, nil
	}
	out := make([]Headline, 0, s.maxItems)
	seen := make(map[string]struct{})
	failed := 0
	var lastErr error
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if len(out) >= s.maxItems {
			break
		}
		items, err := s.scrape(src, s.maxItems-len(out))
		if err != nil {
			failed++
			lastErr = err
			logger.Warnf("news: source %s failed: %v", src.Name, err)
			continue
		}
		for _, h := range items {
			key := strings.ToLower(h.Title)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	if failed == len(s.sources) {
		return nil, fmt.Errorf("all %d news sources failed: %w", failed, lastErr)
	}
	return out, nil
}

func (s *NewsScraper) scrape(src NewsSource, limit int) ([]Headline, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", src.URL, err)
	}
	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
		colly.UserAgent(newsUserAgent),
	)
	c.SetRequestTimeout(s.timeout)

	var items []Headline
	var visitErr error
	c.OnHTML(src.ItemSelector, func(e *colly.HTMLElement) {
		if len(items) >= limit {
			return
		}
		title, href := headlineFrom(e.DOM)
		if title == "" {
			return
		}
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}
		items = append(items, Headline{Source: src.Name, Title: title, URL: href})
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})
	if err := c.Visit(src.URL); err != nil {
		if visitErr != nil {
			return nil, visitErr
		}
		return nil, err
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}
	return items, nil
}

func headlineFrom(sel *goquery.Selection) (string, string) {
	link := sel
	if !sel.Is("a") {
		link = sel.Find("a").First()
	}
	title := strings.Join(strings.Fields(sel.Text()), " ")
	href, _ := link.Attr("href")
	return title, strings.TrimSpace(href)
}
