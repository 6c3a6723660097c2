package templates

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// ErrorPageTitle returns the page title for error pages.
func ErrorPageTitle(loc Localizer) string {
	return T(loc, "core.error.title")
}

// ErrorState renders the error body for statusCode.
func ErrorState(statusCode int, loc Localizer) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section id="app-error-state" class="card error"><p>`)
		h.text(T(loc, errorMessageKey(statusCode)))
		h.raw(`</p><a`)
		h.attr("href", routepath.Root)
		h.raw(">")
		h.text(T(loc, "core.error.back_home"))
		h.raw("</a></section>")
	})
}

func errorMessageKey(statusCode int) string {
	if statusCode == http.StatusNotFound {
		return "core.error.not_found"
	}
	return "core.error.unavailable"
}
