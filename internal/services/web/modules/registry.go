package modules

import (
	"github.com/louisbranch/newsgate/internal/services/web/modules/check"
	"github.com/louisbranch/newsgate/internal/services/web/modules/enrollment"
	"github.com/louisbranch/newsgate/internal/services/web/modules/login"
	"github.com/louisbranch/newsgate/internal/services/web/modules/news"
)

// DefaultPublicModules returns the modules served without an unlock session.
func DefaultPublicModules(deps Dependencies) []Module {
	return []Module{
		check.New(deps.Check),
		login.New(deps.Login),
	}
}

// DefaultProtectedModules returns the modules served behind the unlock session.
func DefaultProtectedModules(deps Dependencies) []Module {
	return []Module{
		news.New(deps.News),
		enrollment.New(deps.Registrar),
	}
}
