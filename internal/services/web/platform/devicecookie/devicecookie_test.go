package devicecookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/newsgate/internal/platform/id"
	"github.com/louisbranch/newsgate/internal/services/web/platform/requestmeta"
)

func TestMiddlewareIssuesDeviceID(t *testing.T) {
	t.Parallel()

	var seen string
	h := Middleware(requestmeta.SchemePolicy{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/check", nil))

	if !id.ValidDeviceID(seen) {
		t.Fatalf("device id = %q, want valid id", seen)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != Name || cookies[0].Value != seen {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestMiddlewareKeepsExistingDeviceID(t *testing.T) {
	t.Parallel()

	existing, err := id.NewDeviceID()
	if err != nil {
		t.Fatalf("new device id: %v", err)
	}
	var seen string
	h := Middleware(requestmeta.SchemePolicy{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.AddCookie(&http.Cookie{Name: Name, Value: existing})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != existing {
		t.Fatalf("device id = %q, want %q", seen, existing)
	}
	if got := rr.Header().Get("Set-Cookie"); got != "" {
		t.Fatalf("Set-Cookie = %q, want none", got)
	}
}

func TestMiddlewareReplacesMalformedCookie(t *testing.T) {
	t.Parallel()

	var seen string
	h := Middleware(requestmeta.SchemePolicy{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.AddCookie(&http.Cookie{Name: Name, Value: "../../etc"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "../../etc" || !id.ValidDeviceID(seen) {
		t.Fatalf("device id = %q, want freshly issued id", seen)
	}
}

func TestFromContextWithoutValue(t *testing.T) {
	t.Parallel()

	if got := FromRequest(nil); got != "" {
		t.Fatalf("FromRequest(nil) = %q, want empty", got)
	}
	if got := FromRequest(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("FromRequest = %q, want empty", got)
	}
}
