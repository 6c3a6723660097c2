// Package weberror renders user-safe error responses for web modules.
package weberror

import (
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/newsgate/internal/services/web/platform/errors"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	"github.com/louisbranch/newsgate/internal/services/web/platform/pagerender"
	webtemplates "github.com/louisbranch/newsgate/internal/services/web/templates"
)

// ShouldRenderErrorPage reports whether status should use the error page.
func ShouldRenderErrorPage(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}

// PublicMessage resolves a user-safe localized error message.
func PublicMessage(loc webi18n.Localizer, err error) string {
	if err == nil {
		return ""
	}
	if loc != nil {
		if key := apperrors.LocalizationKey(err); key != "" {
			if localized := strings.TrimSpace(loc.Sprintf(key)); localized != "" {
				return localized
			}
		}
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	if text := strings.TrimSpace(http.StatusText(statusCode)); text != "" {
		return text
	}
	return http.StatusText(http.StatusInternalServerError)
}

// WriteError writes a localized error response for full-page and HTMX
// requests. Server errors are logged with the request id.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	if statusCode >= http.StatusInternalServerError {
		path := "-"
		if r != nil && r.URL != nil {
			path = r.URL.Path
		}
		log.Printf("web error path=%s status=%d request_id=%s err=%v", path, statusCode, httpx.RequestIDFrom(r), err)
	}

	loc, lang := webi18n.ResolveLocalizer(w, r)
	if !ShouldRenderErrorPage(statusCode) {
		http.Error(w, PublicMessage(loc, err), statusCode)
		return
	}
	page := pagerender.Page{
		Title:      webtemplates.ErrorPageTitle(loc),
		StatusCode: statusCode,
		Fragment:   webtemplates.ErrorState(statusCode, loc),
	}
	if renderErr := pagerender.WritePage(w, r, loc, lang, page); renderErr != nil {
		http.Error(w, PublicMessage(loc, err), statusCode)
	}
}
