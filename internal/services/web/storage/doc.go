// Package storage declares persistence interfaces for web-owned data.
//
// The web service stores sealed device secrets, enrolled biometric
// credentials, and derived feed cache payloads. Cache rows can always be
// discarded and rebuilt from the upstream feed.
package storage
