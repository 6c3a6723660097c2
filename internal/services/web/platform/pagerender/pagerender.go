// Package pagerender centralizes page rendering for full-page and HTMX flows.
package pagerender

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	webtemplates "github.com/louisbranch/newsgate/internal/services/web/templates"
)

// Layout selects the page chrome.
type Layout int

const (
	// LayoutAuth is the chrome for the gate and login pages.
	LayoutAuth Layout = iota
	// LayoutApp is the chrome for unlocked pages.
	LayoutApp
)

// Page describes a page response.
type Page struct {
	Title      string
	StatusCode int
	Layout     Layout
	Fragment   templ.Component
}

// WritePage renders page. HTMX requests receive only the fragment.
func WritePage(w http.ResponseWriter, r *http.Request, loc webi18n.Localizer, lang string, page Page) error {
	if w == nil {
		return nil
	}
	statusCode := page.StatusCode
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = templ.NopComponent
	}
	ctx := httpx.RequestContext(r)

	var buf bytes.Buffer
	if httpx.IsHTMXRequest(r) {
		if err := fragment.Render(ctx, &buf); err != nil {
			return err
		}
		return writeBuffer(w, statusCode, &buf)
	}

	pageContext := webtemplates.PageContext{Title: page.Title, Lang: lang, Loc: loc}
	if r != nil && r.URL != nil {
		pageContext.CurrentPath = r.URL.Path
		pageContext.CurrentQuery = r.URL.RawQuery
	}
	layout := webtemplates.AuthLayout(pageContext)
	if page.Layout == LayoutApp {
		layout = webtemplates.AppLayout(pageContext)
	}
	if err := layout.Render(templ.WithChildren(ctx, fragment), &buf); err != nil {
		return err
	}
	return writeBuffer(w, statusCode, &buf)
}

// WriteFragment renders a component without layout chrome.
func WriteFragment(w http.ResponseWriter, r *http.Request, statusCode int, fragment templ.Component) error {
	if w == nil {
		return nil
	}
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	if fragment == nil {
		fragment = templ.NopComponent
	}
	var buf bytes.Buffer
	if err := fragment.Render(httpx.RequestContext(r), &buf); err != nil {
		return err
	}
	return writeBuffer(w, statusCode, &buf)
}

func writeBuffer(w http.ResponseWriter, statusCode int, buf *bytes.Buffer) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err := w.Write(buf.Bytes())
	return err
}
