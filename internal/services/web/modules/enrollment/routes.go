package enrollment

import (
	"net/http"

	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodPost+" "+routepath.AppBiometricRegisterStart, h.handleStart)
	mux.HandleFunc(http.MethodPost+" "+routepath.AppBiometricRegisterFinish, h.handleFinish)
	mux.HandleFunc(http.MethodPost+" "+routepath.AppBiometricForget, h.handleForget)
}
