// Package routepath stores canonical HTTP paths for web modules.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root         = "/"
	Login        = "/login"
	Logout       = "/logout"
	Health       = "/up"
	StaticPrefix = "/static/"

	Check                 = "/check"
	CheckPrefix           = "/check/"
	CheckStatusPattern    = CheckPrefix + "{gateID}/status"
	CheckChallengePattern = CheckPrefix + "{gateID}/challenge"
	CheckBiometricPattern = CheckPrefix + "{gateID}/biometric"
	CheckRetryPattern     = CheckPrefix + "{gateID}/retry"

	AppPrefix                  = "/app/"
	AppHome                    = "/app/home"
	AppNews                    = "/app/news"
	AppNewsOpen                = "/app/news/open"
	AppBiometricPrefix         = "/app/biometric/"
	AppBiometricRegisterStart  = "/app/biometric/register/start"
	AppBiometricRegisterFinish = "/app/biometric/register/finish"
	AppBiometricForget         = "/app/biometric/forget"
)

// CheckStatus returns the gate status poll route.
func CheckStatus(gateID string) string {
	return CheckPrefix + escapeSegment(gateID) + "/status"
}

// CheckChallenge returns the gate WebAuthn challenge route.
func CheckChallenge(gateID string) string {
	return CheckPrefix + escapeSegment(gateID) + "/challenge"
}

// CheckBiometric returns the gate biometric verification route.
func CheckBiometric(gateID string) string {
	return CheckPrefix + escapeSegment(gateID) + "/biometric"
}

// CheckRetry returns the gate re-prompt route.
func CheckRetry(gateID string) string {
	return CheckPrefix + escapeSegment(gateID) + "/retry"
}

// IsAppPath reports whether path is served behind the unlock session.
func IsAppPath(path string) bool {
	return strings.HasPrefix(strings.TrimSpace(path), AppPrefix)
}

func escapeSegment(raw string) string {
	return url.PathEscape(strings.TrimSpace(raw))
}
