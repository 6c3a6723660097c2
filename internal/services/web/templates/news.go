package templates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// NewsPlaceholder renders the skeleton rows shown while the list loads and
// asks HTMX to swap in the real list once the page is up.
func NewsPlaceholder(loc Localizer) templ.Component {
	view := newslist.LoadingView()
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section id="news" class="news" aria-busy="true"`)
		h.attr("hx-get", routepath.AppNews)
		h.raw(` hx-trigger="load" hx-swap="outerHTML"><p class="sr-only">`)
		h.text(T(loc, "news.loading"))
		h.raw("</p>")
		for i := 0; i < view.Placeholders(); i++ {
			h.raw(`<div class="news-card skeleton" aria-hidden="true"><div class="skeleton-image"></div><div class="skeleton-body"><div class="skeleton-line wide"></div><div class="skeleton-line"></div><div class="skeleton-line short"></div></div></div>`)
		}
		h.raw("</section>")
	})
}

// NewsList renders a loaded view: the error banner or the article cards.
func NewsList(loc Localizer, view newslist.View, now time.Time) templ.Component {
	if view.Phase == newslist.Loading {
		return NewsPlaceholder(loc)
	}
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section id="news" class="news">`)
		if view.Failed() {
			h.raw(`<div class="alert alert-error" role="alert">`)
			h.text(T(loc, view.ErrorKey))
			h.raw("</div></section>")
			return
		}
		cards := view.Cards()
		if len(cards) == 0 {
			h.raw(`<p class="muted">`)
			h.text(T(loc, "news.empty"))
			h.raw("</p>")
		}
		for _, article := range cards {
			writeArticle(h, article, now)
		}
		h.raw("</section>")
	})
}

func writeArticle(h *htmlWriter, article newslist.Article, now time.Time) {
	vals, err := json.Marshal(map[string]string{"link": article.Link})
	if err != nil {
		h.err = err
		return
	}
	h.raw(`<article class="news-card" role="link" tabindex="0"`)
	h.attr("hx-post", routepath.AppNewsOpen)
	h.attr("hx-vals", string(vals))
	h.raw(` hx-trigger="click, keyup[key=='Enter']" hx-swap="none">`)
	if article.Image != "" {
		h.raw(`<img loading="lazy" alt=""`)
		h.attr("src", article.Image)
		h.raw(">")
	}
	h.raw(`<div class="news-body"><h2>`)
	h.text(article.Title)
	h.raw("</h2>")
	if article.Description != "" {
		h.raw("<p>")
		h.text(article.Description)
		h.raw("</p>")
	}
	if !article.PublishedAt.IsZero() {
		h.raw("<time")
		h.attr("datetime", article.PublishedAt.UTC().Format(time.RFC3339))
		h.raw(">")
		h.text(humanize.RelTime(article.PublishedAt, now, "ago", "from now"))
		h.raw("</time>")
	}
	h.raw("</div></article>")
}
