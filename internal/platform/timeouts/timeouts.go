// Package timeouts defines shared timeout constants used across the service.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// AuthRequest caps a single call to the external authenticator.
const AuthRequest = 10 * time.Second

// FeedFetch caps a single news feed download.
const FeedFetch = 8 * time.Second

// GateSweep is the interval between gate registry sweeps.
const GateSweep = 30 * time.Second
