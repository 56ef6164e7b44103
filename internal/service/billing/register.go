package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/server/response"
	"github.com/oggyb/tembichat/internal/service/session"
)

type initiateRequest struct {
	Plan          string `json:"plan"`
	PaymentMethod string `json:"paymentMethod"`
}

type confirmRequest struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId"`
}

// Registrar ties the subscription and payment endpoints into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	svc    *Service
}

func NewRegistrar(appCtx *app.AppContext, svc *Service) *Registrar {
	return &Registrar{appCtx: appCtx, svc: svc}
}

func (r *Registrar) Name() string { return "billing" }

func (r *Registrar) Register(public, protected *gin.RouterGroup) {
	public.GET("/subscription/plans", r.plans)
	public.GET("/payment/options", r.options)

	protected.POST("/payment/initiate", r.initiate)
	protected.POST("/payment/confirm", r.confirm)
	protected.GET("/payment/history", r.history)
}

func (r *Registrar) plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": r.svc.Plans()})
}

func (r *Registrar) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"options": r.svc.PaymentOptions()})
}

func (r *Registrar) initiate(c *gin.Context) {
	var req initiateRequest
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	intent, err := r.svc.Initiate(c.Request.Context(), session.CurrentUser(c).ID, req.Plan, req.PaymentMethod)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (r *Registrar) confirm(c *gin.Context) {
	var req confirmRequest
	if err := response.BindJSON(c, &req); err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	res, err := r.svc.Confirm(c.Request.Context(), session.CurrentUser(c).ID, req.PaymentID, req.TransactionID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Registrar) history(c *gin.Context) {
	payments, err := r.svc.History(c.Request.Context(), session.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, r.appCtx.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
