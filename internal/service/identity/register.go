package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/server/response"
	"github.com/oggyb/tembichat/internal/service/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registrar ties the identity endpoints into the HTTP router
type Registrar struct {
	appCtx   *app.AppContext
	svc      *Service
	sessions *session.Service
}

func NewRegistrar(appCtx *app.AppContext, svc *Service, sessions *session.Service) *Registrar {
	return &Registrar{appCtx: appCtx, svc: svc, sessions: sessions}
}

func (r *Registrar) Name() string { return "identity" }

// Register attaches auth and profile routes.
func (r *Registrar) Register(public, protected *gin.RouterGroup) {
	public.POST("/auth/register", r.register)
	public.POST("/auth/login", r.login)

	protected.POST("/auth/logout", r.logout)
	protected.GET("/user/profile", r.profile)
	protected.PUT("/user/profile", r.update)
	protected.PUT("/user/update", r.update)
}

func (r *Registrar) register(c *gin.Context) {
	var req Registration
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	res, err := r.svc.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (r *Registrar) login(c *gin.Context) {
	var req loginRequest
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	res, err := r.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Registrar) logout(c *gin.Context) {
	if err := r.sessions.Logout(c.Request.Context(), session.CurrentUser(c).ID); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// profile returns the caller; the session middleware already renewed the idle window.
func (r *Registrar) profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": session.CurrentUser(c)})
}

func (r *Registrar) update(c *gin.Context) {
	var patch ProfilePatch
	if err := response.BindJSON(c, &patch); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	user, err := r.svc.Update(c.Request.Context(), session.CurrentUser(c).ID, patch)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
