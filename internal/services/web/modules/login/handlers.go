package login

import (
	"errors"
	"net/http"
	"strings"

	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	apperrors "github.com/louisbranch/newsgate/internal/services/web/platform/errors"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	"github.com/louisbranch/newsgate/internal/services/web/platform/pagerender"
	"github.com/louisbranch/newsgate/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/weberror"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
	webtemplates "github.com/louisbranch/newsgate/internal/services/web/templates"
)

const keyInFlight = "login.error.in_flight"

type handlers struct {
	service   service
	unlock    UnlockSession
	signupURL string
	healthy   func() bool
}

func newHandlers(s service, cfg Config) handlers {
	return handlers{
		service:   s,
		unlock:    cfg.Unlock,
		signupURL: strings.TrimSpace(cfg.SignupURL),
		healthy:   cfg.Healthy,
	}
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.writeLoginPage(w, r, http.StatusOK, loginform.State{})
}

func (h handlers) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		weberror.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "invalid form body"))
		return
	}
	deviceID := devicecookie.FromRequest(r)
	result, err := h.service.submit(r.Context(), deviceID, r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, loginform.ErrSubmissionInFlight) {
			weberror.WriteError(w, r, apperrors.EK(apperrors.KindConflict, keyInFlight, err.Error()))
			return
		}
		weberror.WriteError(w, r, err)
		return
	}
	if result.Outcome == loginform.OutcomeNavigateHome {
		if _, err := h.unlock.Write(w, r, deviceID, sessioncookie.MethodPassword); err != nil {
			weberror.WriteError(w, r, err)
			return
		}
		httpx.WriteRedirect(w, r, routepath.AppHome)
		return
	}

	if httpx.IsHTMXRequest(r) {
		loc, _ := webi18n.ResolveLocalizer(w, r)
		if err := pagerender.WriteFragment(w, r, http.StatusOK, webtemplates.LoginForm(loc, result.State)); err != nil {
			weberror.WriteError(w, r, err)
		}
		return
	}
	h.writeLoginPage(w, r, http.StatusUnprocessableEntity, result.State)
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.signOut(r.Context(), devicecookie.FromRequest(r)); err != nil {
		weberror.WriteError(w, r, err)
		return
	}
	h.unlock.Clear(w, r)
	httpx.WriteRedirect(w, r, routepath.Login)
}

func (h handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.healthy != nil && !h.healthy() {
		_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handlers) writeLoginPage(w http.ResponseWriter, r *http.Request, status int, state loginform.State) {
	loc, lang := webi18n.ResolveLocalizer(w, r)
	if err := pagerender.WritePage(w, r, loc, lang, pagerender.Page{
		Title:      webtemplates.T(loc, "login.title"),
		StatusCode: status,
		Layout:     pagerender.LayoutAuth,
		Fragment:   webtemplates.LoginPage(loc, webtemplates.LoginView{State: state, SignupURL: h.signupURL}),
	}); err != nil {
		weberror.WriteError(w, r, err)
	}
}
