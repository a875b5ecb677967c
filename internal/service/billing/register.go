package billing

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

const maxWebhookBytes = 1 << 16

// Registrar ties the billing service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the billing service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

// Register attaches premium and payment routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewBillingService(r.appCtx, r.opts...)
	auth := middleware.RequireAuth(r.appCtx.Auth)

	rg.GET("/premium/plans", func(c *gin.Context) {
		response.OK(c, svc.Catalog())
	})

	p := rg.Group("/payments")
	p.POST("/checkout", auth, func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		res, err := svc.Checkout(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, res)
	})

	p.GET("/status/:session_id", auth, func(c *gin.Context) {
		st, err := svc.Status(c.Request.Context(), middleware.CurrentUserID(c), c.Param("session_id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, st)
	})

	// The webhook is authenticated by its signature, not a user token.
	p.POST("/webhook", func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
		if err != nil {
			response.Error(c, svcErr.InvalidArgument("Unreadable body"))
			return
		}
		if err := svc.Webhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"received": true})
	})
}
