package news

import (
	"net/http"

	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.AppPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodGet+" "+routepath.AppHome, h.handleHome)
	mux.HandleFunc(http.MethodGet+" "+routepath.AppNews, h.handleNews)
	mux.HandleFunc(http.MethodPost+" "+routepath.AppNewsOpen, h.handleOpen)
	mux.HandleFunc(routepath.AppPrefix, h.handleNotFound)
}
