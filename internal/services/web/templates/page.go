// Package templates renders the web pages and HTMX fragments.
package templates

import (
	"context"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/platform/branding"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// Localizer provides translated strings for components.
type Localizer = webi18n.Localizer

// HTMXScriptURL is the pinned htmx build loaded by every layout.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// T returns a translated string or a key-derived fallback.
func T(loc Localizer, key string, args ...any) string {
	return webi18n.T(loc, key, args...)
}

// PageContext provides shared layout context for pages.
type PageContext struct {
	Title        string
	Lang         string
	Loc          Localizer
	CurrentPath  string
	CurrentQuery string
}

// AuthLayout wraps public pages (gate and login). Children come from the
// render context via templ.WithChildren.
func AuthLayout(page PageContext) templ.Component {
	return layout(page, "auth", nil)
}

// AppLayout wraps unlocked pages with the app header.
func AppLayout(page PageContext) templ.Component {
	return layout(page, "app", appHeader(page))
}

func layout(page PageContext, bodyClass string, header templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		lang := page.Lang
		if lang == "" {
			lang = webi18n.Default().String()
		}
		title := branding.AppName
		if page.Title != "" {
			title = T(page.Loc, "core.title", page.Title)
		}
		h.raw("<!DOCTYPE html><html")
		h.attr("lang", lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="` + routepath.StaticPrefix + `newsgate.css">`)
		h.raw(`<script src="` + HTMXScriptURL + `"></script>`)
		h.raw(`<script src="` + routepath.StaticPrefix + `newsgate.js" defer></script></head><body`)
		h.attr("class", bodyClass)
		h.raw(">")
		h.component(ctx, header)
		h.raw(`<main id="main">`)
		h.component(ctx, templ.GetChildren(ctx))
		h.raw("</main>")
		h.component(ctx, languageSwitcher(page))
		h.raw("</body></html>")
	})
}

func appHeader(page PageContext) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<header class="app-header"><a class="brand"`)
		h.attr("href", routepath.AppHome)
		h.raw(">")
		h.text(branding.AppName)
		h.raw(`</a><form method="post"`)
		h.attr("action", routepath.Logout)
		h.raw(`><button type="submit" class="link">`)
		h.text(T(page.Loc, "news.logout"))
		h.raw("</button></form></header>")
	})
}

func languageSwitcher(page PageContext) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		options := webi18n.LanguageOptions(page.Loc, page.Lang, page.CurrentPath, page.CurrentQuery)
		h.raw(`<nav class="languages">`)
		for _, option := range options {
			h.raw("<a")
			h.attr("href", option.URL)
			h.attr("hreflang", option.Tag)
			if option.Active {
				h.raw(` aria-current="true"`)
			}
			h.raw(">")
			h.text(option.Label)
			h.raw("</a>")
		}
		h.raw("</nav>")
	})
}
