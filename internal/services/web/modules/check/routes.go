package check

import (
	"net/http"

	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.Root+"{$}", h.handleCheck)
	mux.HandleFunc(http.MethodGet+" "+routepath.Check, h.handleCheck)
	mux.HandleFunc(http.MethodGet+" "+routepath.CheckStatusPattern, h.handleStatus)
	mux.HandleFunc(http.MethodGet+" "+routepath.CheckChallengePattern, h.handleChallenge)
	mux.HandleFunc(http.MethodPost+" "+routepath.CheckBiometricPattern, h.handleBiometric)
	mux.HandleFunc(http.MethodPost+" "+routepath.CheckRetryPattern, h.handleRetry)
	mux.HandleFunc(routepath.Root, h.handleNotFound)
}
