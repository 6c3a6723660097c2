package enrollment

import (
	"errors"
	"io"
	"net/http"

	"github.com/louisbranch/newsgate/internal/platform/branding"
	"github.com/louisbranch/newsgate/internal/services/web/biometric"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	webi18n "github.com/louisbranch/newsgate/internal/services/web/platform/i18n"
	"github.com/louisbranch/newsgate/internal/services/web/platform/pagerender"
	"github.com/louisbranch/newsgate/internal/services/web/platform/weberror"
	webtemplates "github.com/louisbranch/newsgate/internal/services/web/templates"
)

const maxAttestationBytes = 64 << 10

type handlers struct {
	registrar Registrar
}

func newHandlers(registrar Registrar) handlers {
	return handlers{registrar: registrar}
}

func (h handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	creation, err := h.registrar.BeginRegistration(r.Context(), devicecookie.FromRequest(r), branding.AppName)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "could not start biometric registration")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, creation)
}

func (h handlers) handleFinish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAttestationBytes))
	if err != nil || len(body) == 0 {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "credential is required")
		return
	}
	if err := h.registrar.FinishRegistration(r.Context(), devicecookie.FromRequest(r), body); err != nil {
		if errors.Is(err, biometric.ErrNoPendingRegistration) {
			_ = httpx.WriteJSONError(w, http.StatusConflict, "no pending biometric registration")
			return
		}
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "biometric registration failed")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"enrolled": true})
}

func (h handlers) handleForget(w http.ResponseWriter, r *http.Request) {
	if err := h.registrar.Forget(r.Context(), devicecookie.FromRequest(r)); err != nil {
		weberror.WriteError(w, r, err)
		return
	}
	loc, _ := webi18n.ResolveLocalizer(w, r)
	if err := pagerender.WriteFragment(w, r, http.StatusOK, webtemplates.BiometricEnrollment(loc, false)); err != nil {
		weberror.WriteError(w, r, err)
	}
}
