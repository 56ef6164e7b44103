package match

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/server/response"
	"github.com/oggyb/tembichat/internal/service/session"
)

type swipeRequest struct {
	TargetID  string `json:"targetId"`
	Direction string `json:"direction"`
}

// Registrar ties the swipe/match endpoints into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	svc    *Service
}

func NewRegistrar(appCtx *app.AppContext, svc *Service) *Registrar {
	return &Registrar{appCtx: appCtx, svc: svc}
}

func (r *Registrar) Name() string { return "match" }

func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	protected.GET("/swipe/discover", r.discover)
	protected.POST("/swipe", r.swipe)
	protected.GET("/swipe/likes", r.likedYou)
	protected.GET("/swipe/likes/count", r.likedYouCount)
	protected.GET("/user/matches", r.matches)
}

func (r *Registrar) discover(c *gin.Context) {
	users, err := r.svc.Discover(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (r *Registrar) swipe(c *gin.Context) {
	var req swipeRequest
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	res, err := r.svc.RecordSwipe(c.Request.Context(), session.CurrentUser(c).ID, req.TargetID, req.Direction)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Registrar) likedYou(c *gin.Context) {
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}
	page, err := r.svc.ListLikedYou(c.Request.Context(), session.CurrentUser(c).ID, token)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) likedYouCount(c *gin.Context) {
	n, err := r.svc.CountLikedYou(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (r *Registrar) matches(c *gin.Context) {
	matches, err := r.svc.ListMatches(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
