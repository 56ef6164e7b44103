package demo

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/server/response"
	"github.com/oggyb/tembichat/internal/service/session"
)

// Registrar exposes the demo profiles and demo chats.
type Registrar struct {
	appCtx *app.AppContext
	svc    *Service
}

func NewRegistrar(appCtx *app.AppContext, svc *Service) *Registrar {
	return &Registrar{appCtx: appCtx, svc: svc}
}

func (r *Registrar) Name() string { return "demo" }

func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	protected.GET("/swipe/demo", r.profiles)
	protected.GET("/chat/demo", r.chats)
}

func (r *Registrar) profiles(c *gin.Context) {
	users, err := r.svc.Profiles(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (r *Registrar) chats(c *gin.Context) {
	chats, err := r.svc.Chats(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}
