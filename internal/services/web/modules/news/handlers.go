package news

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	apperrors "github.com/louisbranch/newsgate/internal/services/web/platform/errors"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	"github.com/louisbranch/newsgate/internal/services/web/platform/pagerender"
	"github.com/louisbranch/newsgate/internal/services/web/platform/weberror"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/newsgate/internal/services/web/templates"
)

// OpenURLEvent is the client event that asks the hosting runtime to open a link.
const OpenURLEvent = "open-url"

type handlers struct {
	source     newslist.Source
	enrollment EnrollmentChecker
	now        func() time.Time
}

func newHandlers(source newslist.Source, enrollment EnrollmentChecker, now func() time.Time) handlers {
	return handlers{source: source, enrollment: enrollment, now: now}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	httpx.WriteRedirect(w, r, routepath.AppHome)
}

func (h handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	loc, lang := webi18n.ResolveLocalizer(w, r)
	view := webtemplates.HomeView{BiometricEnrolled: h.enrolled(r)}
	if err := pagerender.WritePage(w, r, loc, lang, pagerender.Page{
		Title:    webtemplates.T(loc, "news.title"),
		Layout:   pagerender.LayoutApp,
		Fragment: webtemplates.HomePage(loc, view),
	}); err != nil {
		weberror.WriteError(w, r, err)
	}
}

// handleNews renders the loaded list. Fetch failures still answer 200 so
// HTMX swaps the error banner in place of the skeleton.
func (h handlers) handleNews(w http.ResponseWriter, r *http.Request) {
	loc, _ := webi18n.ResolveLocalizer(w, r)
	view := newslist.Load(r.Context(), h.source)
	if err := pagerender.WriteFragment(w, r, http.StatusOK, webtemplates.NewsList(loc, view, h.now())); err != nil {
		weberror.WriteError(w, r, err)
	}
}

func (h handlers) handleOpen(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		weberror.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "invalid form body"))
		return
	}
	err := newslist.Open(r.Context(), triggerOpener{w: w}, r.PostFormValue("link"))
	if errors.Is(err, newslist.ErrInvalidLink) {
		weberror.WriteError(w, r, apperrors.Wrap(apperrors.KindInvalidInput, "", err))
		return
	}
	if err != nil {
		weberror.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	weberror.WriteError(w, r, apperrors.E(apperrors.KindNotFound, "page not found"))
}

func (h handlers) enrolled(r *http.Request) bool {
	if h.enrollment == nil {
		return false
	}
	enrolled, err := h.enrollment.Enrolled(r.Context(), devicecookie.FromRequest(r))
	return err == nil && enrolled
}

// triggerOpener hands the link to the browser through an HX-Trigger event.
type triggerOpener struct {
	w http.ResponseWriter
}

func (o triggerOpener) OpenURL(_ context.Context, link string) error {
	return httpx.SetHXTrigger(o.w, OpenURLEvent, map[string]string{"url": link})
}
