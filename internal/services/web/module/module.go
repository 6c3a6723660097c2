// Package module defines the feature contract used by web composition.
package module

import "net/http"

// Mount describes a module route mount. A Prefix ending in "/" mounts a
// subtree; any other Prefix is an exact path. Aliases are extra exact paths
// served by the same Handler.
type Mount struct {
	Prefix  string
	Handler http.Handler
	Aliases []string
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}
