package templates

import (
	"context"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// HomeView describes the unlocked home page.
type HomeView struct {
	BiometricEnrolled bool
}

// HomePage renders the biometric enrollment prompt and the news placeholder.
func HomePage(loc Localizer, view HomeView) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<h1>`)
		h.text(T(loc, "news.heading"))
		h.raw("</h1>")
		h.component(ctx, BiometricEnrollment(loc, view.BiometricEnrolled))
		h.component(ctx, NewsPlaceholder(loc))
	})
}

// BiometricEnrollment renders the enrollment control for the current device.
func BiometricEnrollment(loc Localizer, enrolled bool) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div id="biometric-enrollment" class="enrollment"`)
		if enrolled {
			h.raw(`><p class="muted">`)
			h.text(T(loc, "news.biometric.enrolled"))
			h.raw(`</p><button type="button" class="link"`)
			h.attr("hx-post", routepath.AppBiometricForget)
			h.raw(` hx-target="#biometric-enrollment" hx-swap="outerHTML">`)
			h.text(T(loc, "news.biometric.disable"))
			h.raw("</button></div>")
			return
		}
		h.attr("data-start-url", routepath.AppBiometricRegisterStart)
		h.attr("data-finish-url", routepath.AppBiometricRegisterFinish)
		h.attr("data-done-message", T(loc, "news.biometric.enrolled"))
		h.attr("data-error-message", T(loc, "news.biometric.failed"))
		h.raw(`><button type="button" class="secondary" data-biometric-register>`)
		h.text(T(loc, "news.biometric.enroll"))
		h.raw(`</button><p class="muted" role="status" data-enrollment-status></p></div>`)
	})
}
