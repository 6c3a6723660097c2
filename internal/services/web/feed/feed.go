// Package feed loads news articles from an RSS or Atom feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	platformotel "github.com/louisbranch/newsgate/internal/platform/otel"
	"github.com/louisbranch/newsgate/internal/platform/timeouts"
	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

// DefaultLimit caps how many articles are returned when no limit is configured.
const DefaultLimit = 20

// maxFeedBytes bounds a downloaded feed document.
const maxFeedBytes = 4 << 20

// HTTPSource downloads and parses one feed URL.
type HTTPSource struct {
	feedURL string
	limit   int
	client  *http.Client
}

// NewHTTPSource returns a source for feedURL.
func NewHTTPSource(feedURL string, limit int, client *http.Client) (*HTTPSource, error) {
	parsed, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("feed url must be an absolute http(s) url: %q", feedURL)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if client == nil {
		client = &http.Client{Timeout: timeouts.FeedFetch}
	}
	return &HTTPSource{feedURL: parsed.String(), limit: limit, client: client}, nil
}

// URL returns the feed location.
func (s *HTTPSource) URL() string {
	return s.feedURL
}

// Fetch downloads the feed and maps its items to articles in feed order.
func (s *HTTPSource) Fetch(ctx context.Context) ([]newslist.Article, error) {
	ctx, span := platformotel.Tracer().Start(ctx, "feed.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("feed.url", s.feedURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	articles := Articles(parsed, s.limit)
	span.SetAttributes(attribute.Int("feed.articles", len(articles)))
	return articles, nil
}

// Articles maps feed items to articles, skipping items without a usable
// link and stopping at limit.
func Articles(parsed *gofeed.Feed, limit int) []newslist.Article {
	if parsed == nil {
		return nil
	}
	articles := make([]newslist.Article, 0, min(len(parsed.Items), max(limit, 0)))
	for _, item := range parsed.Items {
		if limit > 0 && len(articles) >= limit {
			break
		}
		article, ok := articleFromItem(item)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

func articleFromItem(item *gofeed.Item) (newslist.Article, bool) {
	if item == nil {
		return newslist.Article{}, false
	}
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}
	if !newslist.ValidLink(link) {
		return newslist.Article{}, false
	}
	description := item.Description
	if strings.TrimSpace(description) == "" {
		description = item.Content
	}
	return newslist.Article{
		Title:       strings.TrimSpace(PlainText(item.Title)),
		Description: PlainText(description),
		Image:       itemImage(item),
		Link:        link,
		PublishedAt: itemTime(item),
	}, true
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && newslist.ValidLink(item.Image.URL) {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || !strings.HasPrefix(strings.ToLower(enclosure.Type), "image/") {
			continue
		}
		if newslist.ValidLink(enclosure.URL) {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	return ""
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// PlainText strips markup from a feed fragment and collapses whitespace.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var builder strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(builder.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isHiddenTag(string(name)) {
				skip++
			}
			builder.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
			builder.WriteByte(' ')
		case html.SelfClosingTagToken:
			builder.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				builder.Write(tokenizer.Text())
			}
		}
	}
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style"
}
