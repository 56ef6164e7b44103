package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/server/response"
	"github.com/oggyb/tembichat/internal/service/session"
)

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// Registrar ties the chat endpoints into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	svc    *Service
}

func NewRegistrar(appCtx *app.AppContext, svc *Service) *Registrar {
	return &Registrar{appCtx: appCtx, svc: svc}
}

func (r *Registrar) Name() string { return "chat" }

func (r *Registrar) Register(_, protected *gin.RouterGroup) {
	protected.GET("/chat/inbox", r.inbox)
	protected.GET("/chat/:peerId", r.conversation)
	protected.POST("/chat/:peerId/read", r.markRead)
	protected.POST("/chat/send", r.send)
}

func (r *Registrar) inbox(c *gin.Context) {
	entries, err := r.svc.Inbox(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": entries})
}

// conversation opens a chat, which marks the peer's messages as read.
func (r *Registrar) conversation(c *gin.Context) {
	msgs, err := r.svc.ReadConversation(c.Request.Context(), session.CurrentUser(c).ID, c.Param("peerId"))
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (r *Registrar) markRead(c *gin.Context) {
	n, err := r.svc.MarkRead(c.Request.Context(), session.CurrentUser(c).ID, c.Param("peerId"))
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (r *Registrar) send(c *gin.Context) {
	var req sendRequest
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	msg, err := r.svc.Send(c.Request.Context(), session.CurrentUser(c).ID, req.ReceiverID, req.Content)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
