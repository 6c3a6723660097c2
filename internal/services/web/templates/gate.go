package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// GatePollTrigger is how often the status fragment polls a pending gate.
const GatePollTrigger = "every 1s"

// GatePage renders the unlock screen.
func GatePage(loc Localizer, view gate.View) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="card gate"><h1>`)
		h.text(T(loc, "gate.heading"))
		h.raw("</h1>")
		h.component(ctx, GateStatus(loc, view))
		h.raw("</section>")
	})
}

// GateStatus renders the polled status fragment. Pending gates keep polling;
// the browser bridge starts the WebAuthn ceremony whenever data-attempt changes.
func GateStatus(loc Localizer, view gate.View) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div id="gate-status" class="gate-status"`)
		h.attr("data-state", view.State.String())
		h.attr("data-gate-id", view.ID)
		if !view.State.Terminal() {
			h.attr("hx-get", routepath.CheckStatus(view.ID))
			h.attr("hx-trigger", GatePollTrigger)
			h.raw(` hx-swap="outerHTML"`)
		}
		promptReady := view.State == gate.AwaitingBiometric && !view.Failed && !view.Unavailable
		if promptReady {
			h.attr("data-biometric-prompt", "")
			h.attr("data-attempt", strconv.Itoa(view.Attempts))
			h.attr("data-challenge-url", routepath.CheckChallenge(view.ID))
			h.attr("data-verify-url", routepath.CheckBiometric(view.ID))
		}
		h.raw(`><p class="gate-message" role="status">`)
		h.text(T(loc, gateMessageKey(view)))
		h.raw("</p>")

		switch {
		case promptReady:
			h.raw(`<button type="button" class="primary" data-biometric-unlock>`)
			h.text(T(loc, "gate.unlock"))
			h.raw("</button>")
		case view.State == gate.AwaitingBiometric && view.Failed:
			h.raw(`<button type="button" class="primary"`)
			h.attr("hx-post", routepath.CheckRetry(view.ID))
			h.raw(` hx-target="#gate-status" hx-swap="outerHTML">`)
			h.text(T(loc, "gate.retry"))
			h.raw("</button>")
		}
		if view.State == gate.AwaitingBiometric && (view.Failed || view.Unavailable) {
			h.raw(`<a class="link"`)
			h.attr("href", routepath.Login)
			h.raw(">")
			h.text(T(loc, "gate.use_password"))
			h.raw("</a>")
		}
		h.raw("</div>")
	})
}

func gateMessageKey(view gate.View) string {
	switch view.State {
	case gate.AwaitingBiometric:
		switch {
		case view.Unavailable:
			return "gate.unavailable"
		case view.Failed:
			return "gate.failed"
		default:
			return "gate.awaiting"
		}
	default:
		return "gate.checking"
	}
}

// GateExpired renders the fragment shown when a polled gate is gone.
func GateExpired(loc Localizer) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div id="gate-status" class="gate-status" data-state="expired"><p class="gate-message" role="status">`)
		h.text(T(loc, "gate.expired"))
		h.raw(`</p><a class="link"`)
		h.attr("href", routepath.Check)
		h.raw(">")
		h.text(T(loc, "gate.retry"))
		h.raw("</a></div>")
	})
}
