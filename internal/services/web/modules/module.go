// Package modules defines web module registry helpers.
package modules

import (
	module "github.com/louisbranch/newsgate/internal/services/web/module"
	"github.com/louisbranch/newsgate/internal/services/web/modules/check"
	"github.com/louisbranch/newsgate/internal/services/web/modules/enrollment"
	"github.com/louisbranch/newsgate/internal/services/web/modules/login"
	"github.com/louisbranch/newsgate/internal/services/web/modules/news"
)

// Mount aliases the module mount contract.
type Mount = module.Mount

// Module aliases the module interface contract.
type Module = module.Module

// Dependencies carries the collaborators each module needs. Every module
// receives only its own config, so modules cannot reach each other's
// services.
type Dependencies struct {
	Check     check.Config
	Login     login.Config
	News      news.Config
	Registrar enrollment.Registrar
}
