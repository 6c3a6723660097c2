// Package newslist implements the news list view states and article opening.
package newslist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PlaceholderRows is the number of skeleton rows shown while loading.
const PlaceholderRows = 5

// KeyFetchFailed is the localization key shown when the feed cannot be loaded.
const KeyFetchFailed = "news.error.fetch_failed"

// ErrInvalidLink is returned when an article link is not an absolute http(s) URL.
var ErrInvalidLink = errors.New("article link must be an absolute http or https URL")

// Article is one news item.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// Source supplies articles in display order.
type Source interface {
	Fetch(ctx context.Context) ([]Article, error)
}

// Opener asks the hosting runtime to open a URL outside the app.
type Opener interface {
	OpenURL(ctx context.Context, link string) error
}

// Phase is the list's render phase.
type Phase int

const (
	Loading Phase = iota
	Loaded
)

// View is what the list renders.
type View struct {
	Phase    Phase
	Articles []Article
	// ErrorKey replaces the whole list when set.
	ErrorKey string
}

// LoadingView returns the skeleton state.
func LoadingView() View {
	return View{Phase: Loading}
}

// LoadedView returns the loaded state for a fetch result. Any error replaces
// the entire list; articles are kept in the order given.
func LoadedView(articles []Article, err error) View {
	if err != nil {
		return View{Phase: Loaded, ErrorKey: KeyFetchFailed}
	}
	return View{Phase: Loaded, Articles: articles}
}

// Load fetches from source and returns the loaded view.
func Load(ctx context.Context, source Source) View {
	if source == nil {
		return LoadedView(nil, errors.New("news source is not configured"))
	}
	articles, err := source.Fetch(ctx)
	return LoadedView(articles, err)
}

// Placeholders returns the number of skeleton rows to render.
func (v View) Placeholders() int {
	if v.Phase == Loading {
		return PlaceholderRows
	}
	return 0
}

// Cards returns the articles to render as cards.
func (v View) Cards() []Article {
	if v.Phase != Loaded || v.ErrorKey != "" {
		return nil
	}
	return v.Articles
}

// Failed reports whether the list shows the error message.
func (v View) Failed() bool {
	return v.Phase == Loaded && v.ErrorKey != ""
}

// Open requests that opener open link. It performs exactly one OpenURL call
// for a valid link and none otherwise.
func Open(ctx context.Context, opener Opener, link string) error {
	if opener == nil {
		return errors.New("opener is required")
	}
	link = strings.TrimSpace(link)
	if !ValidLink(link) {
		return ErrInvalidLink
	}
	if err := opener.OpenURL(ctx, link); err != nil {
		return fmt.Errorf("open article: %w", err)
	}
	return nil
}

// ValidLink reports whether link is an absolute http(s) URL with a host.
func ValidLink(link string) bool {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
