package calls

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the call service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the call service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

// Register attaches the call routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewCallService(r.appCtx, r.opts...)
	g := rg.Group("/calls", middleware.RequireAuth(r.appCtx.Auth))

	g.POST("/initiate", func(c *gin.Context) {
		var req InitiateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		call, err := svc.Initiate(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, call)
	})

	g.GET("/ice-servers", func(c *gin.Context) {
		response.OK(c, gin.H{"iceServers": svc.ICEServers()})
	})

	step := func(fn func(ctx context.Context, userID, callID string) (*db.Call, error)) gin.HandlerFunc {
		return func(c *gin.Context) {
			call, err := fn(c.Request.Context(), middleware.CurrentUserID(c), c.Param("call_id"))
			if err != nil {
				response.Error(c, err)
				return
			}
			response.OK(c, call)
		}
	}
	g.POST("/:call_id/answer", step(svc.Answer))
	g.POST("/:call_id/reject", step(svc.Reject))
	g.POST("/:call_id/end", step(svc.End))

	g.POST("/:call_id/signal", func(c *gin.Context) {
		var req SignalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		if err := svc.Signal(c.Request.Context(), middleware.CurrentUserID(c), c.Param("call_id"), req); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Signal sent")
	})
}
