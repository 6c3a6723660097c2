// Package branding holds product naming shared by pages and WebAuthn prompts.
package branding

// AppName is the user-facing product name.
const AppName = "Newsgate"
