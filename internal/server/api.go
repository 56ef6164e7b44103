package server

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/notify"
	"github.com/oggyb/tembichat/internal/service/billing"
	"github.com/oggyb/tembichat/internal/service/chat"
	"github.com/oggyb/tembichat/internal/service/demo"
	"github.com/oggyb/tembichat/internal/service/identity"
	"github.com/oggyb/tembichat/internal/service/match"
	"github.com/oggyb/tembichat/internal/service/session"
)

// API is the set of wired services behind the HTTP surface.
type API struct {
	appCtx *app.AppContext

	Sessions *session.Service
	Identity *identity.Service
	Matches  *match.Service
	Chat     *chat.Service
	Billing  *billing.Service
	Demo     *demo.Service
}

func NewAPI(appCtx *app.AppContext, notifier notify.Notifier) *API {
	sessions := session.NewService(appCtx)
	matches := match.NewService(appCtx)
	demos := demo.NewService(appCtx, matches)

	return &API{
		appCtx:   appCtx,
		Sessions: sessions,
		Identity: identity.NewService(appCtx, sessions, demos),
		Matches:  matches,
		Chat:     chat.NewService(appCtx),
		Billing:  billing.NewService(appCtx, notifier),
		Demo:     demos,
	}
}

// Registrars returns the HTTP registrars in mount order.
func (a *API) Registrars() []Registrar {
	return []Registrar{
		identity.NewRegistrar(a.appCtx, a.Identity, a.Sessions),
		demo.NewRegistrar(a.appCtx, a.Demo),
		match.NewRegistrar(a.appCtx, a.Matches),
		chat.NewRegistrar(a.appCtx, a.Chat),
		billing.NewRegistrar(a.appCtx, a.Billing),
	}
}

// Router mounts every registrar behind the session middleware.
func (a *API) Router(limiter *RateLimiter) *gin.Engine {
	return NewRouter(a.appCtx, RouterOptions{Auth: a.Sessions.Middleware(), Limiter: limiter}, a.Registrars()...)
}
