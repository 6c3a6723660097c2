package check

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/newsgate/internal/services/web/biometric"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
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

const maxAssertionBytes = 64 << 10

type handlers struct {
	service service
	unlock  UnlockWriter
}

func newHandlers(s service, unlock UnlockWriter) handlers {
	return handlers{service: s, unlock: unlock}
}

func (h handlers) handleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.open(r.Context(), devicecookie.FromRequest(r))
	if err != nil {
		weberror.WriteError(w, r, err)
		return
	}
	if result.routed {
		h.writeRoute(w, r, result.view, result.route)
		return
	}
	loc, lang := webi18n.ResolveLocalizer(w, r)
	if err := pagerender.WritePage(w, r, loc, lang, pagerender.Page{
		Title:    webtemplates.T(loc, "gate.title"),
		Layout:   pagerender.LayoutAuth,
		Fragment: webtemplates.GatePage(loc, result.view),
	}); err != nil {
		weberror.WriteError(w, r, err)
	}
}

func (h handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	gateID := r.PathValue("gateID")
	view, err := h.service.status(devicecookie.FromRequest(r), gateID)
	if err != nil {
		h.writeExpired(w, r)
		return
	}
	switch view.State {
	case gate.Granted:
		h.writeRoute(w, r, view, gate.RouteHome)
	case gate.Redirected:
		h.writeRoute(w, r, view, gate.RouteLogin)
	default:
		h.writeStatus(w, r, view)
	}
}

func (h handlers) handleRetry(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.retry(r.Context(), devicecookie.FromRequest(r), r.PathValue("gateID"))
	if err != nil {
		h.writeExpired(w, r)
		return
	}
	h.writeStatus(w, r, view)
}

func (h handlers) handleChallenge(w http.ResponseWriter, r *http.Request) {
	assertion, err := h.service.challenge(devicecookie.FromRequest(r), r.PathValue("gateID"))
	if err != nil {
		h.writeJSONError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, assertion)
}

func (h handlers) handleBiometric(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Credential json.RawMessage `json:"credential"`
		Cancelled  bool            `json:"cancelled"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAssertionBytes)).Decode(&payload); err != nil {
		h.writeJSONError(w, apperrors.E(apperrors.KindInvalidInput, "invalid json body"))
		return
	}
	var response []byte
	if !payload.Cancelled {
		if isNullJSON(payload.Credential) {
			h.writeJSONError(w, apperrors.E(apperrors.KindInvalidInput, "credential is required"))
			return
		}
		response = payload.Credential
	}
	success, err := h.service.verify(r.Context(), devicecookie.FromRequest(r), r.PathValue("gateID"), response)
	if err != nil {
		h.writeJSONError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": success})
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	weberror.WriteError(w, r, apperrors.E(apperrors.KindNotFound, "page not found"))
}

// writeRoute performs the navigation a gate requested. Granted gates issue
// the unlock session before leaving.
func (h handlers) writeRoute(w http.ResponseWriter, r *http.Request, view gate.View, route gate.Route) {
	h.service.finish(view.ID)
	switch route {
	case gate.RouteHome:
		if _, err := h.unlock.Write(w, r, devicecookie.FromRequest(r), sessioncookie.MethodBiometric); err != nil {
			weberror.WriteError(w, r, err)
			return
		}
		httpx.WriteRedirect(w, r, routepath.AppHome)
	default:
		httpx.WriteRedirect(w, r, routepath.Login)
	}
}

func (h handlers) writeStatus(w http.ResponseWriter, r *http.Request, view gate.View) {
	loc, _ := webi18n.ResolveLocalizer(w, r)
	if err := pagerender.WriteFragment(w, r, http.StatusOK, webtemplates.GateStatus(loc, view)); err != nil {
		weberror.WriteError(w, r, err)
	}
}

func (h handlers) writeExpired(w http.ResponseWriter, r *http.Request) {
	loc, _ := webi18n.ResolveLocalizer(w, r)
	// The expired fragment has no hx-get, so polling stops on swap.
	if err := pagerender.WriteFragment(w, r, http.StatusOK, webtemplates.GateExpired(loc)); err != nil {
		weberror.WriteError(w, r, err)
	}
}

func (h handlers) writeJSONError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	message := http.StatusText(status)
	switch {
	case errors.Is(err, errGateNotFound), errors.Is(err, biometric.ErrNoPendingPrompt):
		status = http.StatusNotFound
		message = "no pending biometric prompt"
	case apperrors.KindOf(err) == apperrors.KindInvalidInput:
		message = strings.TrimSpace(err.Error())
	}
	_ = httpx.WriteJSONError(w, status, message)
}
