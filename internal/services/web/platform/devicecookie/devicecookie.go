// Package devicecookie assigns each browser a stable device id. Secure
// storage, biometric credentials and unlock sessions are all scoped to it.
package devicecookie

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/newsgate/internal/platform/id"
	"github.com/louisbranch/newsgate/internal/services/web/platform/requestmeta"
)

// Name is the device cookie name.
const Name = "newsgate_device"

const maxAge = 2 * 365 * 24 * time.Hour

type contextKey struct{}

// WithDeviceID returns ctx carrying deviceID.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, strings.TrimSpace(deviceID))
}

// FromContext returns the device id stored by the middleware.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(contextKey{}).(string)
	return value
}

// FromRequest returns the request's device id.
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return FromContext(r.Context())
}

// Read returns a well-formed device id from the cookie.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if !id.ValidDeviceID(value) {
		return "", false
	}
	return value, true
}

// Middleware ensures every request carries a device id, issuing the cookie
// on first contact.
func Middleware(policy requestmeta.SchemePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, ok := Read(r)
			if !ok {
				issued, err := id.NewDeviceID()
				if err != nil {
					log.Printf("device id issue failed path=%s err=%v", r.URL.Path, err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				deviceID = issued
				http.SetCookie(w, &http.Cookie{
					Name:     Name,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   requestmeta.IsHTTPSWithPolicy(r, policy),
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), deviceID)))
		})
	}
}
