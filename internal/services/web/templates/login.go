package templates

import (
	"context"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// LoginView carries the form state and optional sign-up link.
type LoginView struct {
	State     loginform.State
	SignupURL string
}

// LoginPage renders the login heading and form.
func LoginPage(loc Localizer, view LoginView) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="card login"><h1>`)
		h.text(T(loc, "login.heading"))
		h.raw("</h1>")
		h.component(ctx, LoginForm(loc, view.State))
		if view.SignupURL != "" {
			h.raw(`<p class="muted">`)
			h.text(T(loc, "login.no_account"))
			h.raw(" <a")
			h.attr("href", view.SignupURL)
			h.raw(">")
			h.text(T(loc, "login.sign_up"))
			h.raw("</a></p>")
		}
		h.raw("</section>")
	})
}

// LoginForm renders the form fragment swapped on each HTMX submission.
// The submit button is disabled and relabeled while a request is in flight.
func LoginForm(loc Localizer, state loginform.State) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<form id="login-form" method="post" novalidate`)
		h.attr("action", routepath.Login)
		h.attr("hx-post", routepath.Login)
		h.raw(` hx-target="this" hx-swap="outerHTML" hx-disabled-elt="find button[type=submit]">`)

		if banner := loginBanner(loc, state); banner != "" {
			h.raw(`<div class="alert alert-error" role="alert">`)
			h.text(banner)
			h.raw("</div>")
		}

		writeField(h, loc, state, loginform.FieldEmail, "email", "login.email", state.Email, "username")
		writeField(h, loc, state, loginform.FieldPassword, "password", "login.password", state.Password, "current-password")

		h.raw(`<button type="submit" class="primary"><span class="label">`)
		h.text(T(loc, "login.submit"))
		h.raw(`</span><span class="htmx-indicator">`)
		h.text(T(loc, "login.submitting"))
		h.raw("</span></button></form>")
	})
}

func loginBanner(loc Localizer, state loginform.State) string {
	if state.ErrorMessage != "" {
		return state.ErrorMessage
	}
	if state.ErrorKey != "" {
		return T(loc, state.ErrorKey)
	}
	return ""
}

func writeField(h *htmlWriter, loc Localizer, state loginform.State, field loginform.Field, inputType string, labelKey string, value string, autocomplete string) {
	name := string(field)
	h.raw(`<label class="field"><span>`)
	h.text(T(loc, labelKey))
	h.raw("</span><input")
	h.attr("type", inputType)
	h.attr("name", name)
	h.attr("autocomplete", autocomplete)
	if value != "" {
		h.attr("value", value)
	}
	fieldErr := state.FieldErrors[field]
	if fieldErr != "" {
		h.raw(` aria-invalid="true"`)
		h.attr("aria-describedby", name+"-error")
	}
	h.raw(">")
	if fieldErr != "" {
		h.raw(`<small class="field-error"`)
		h.attr("id", name+"-error")
		h.raw(">")
		h.text(T(loc, fieldErr))
		h.raw("</small>")
	}
	h.raw("</label>")
}
