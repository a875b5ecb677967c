package safety

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the safety service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the safety service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

type targetRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Register attaches the block and report routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewSafetyService(r.appCtx)
	g := rg.Group("/users", middleware.RequireAuth(r.appCtx.Auth))

	g.POST("/block", func(c *gin.Context) {
		var req targetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		if err := svc.Block(c.Request.Context(), middleware.CurrentUserID(c), req.UserID); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "User blocked")
	})

	unblock := func(c *gin.Context, targetID string) {
		if err := svc.Unblock(c.Request.Context(), middleware.CurrentUserID(c), targetID); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "User unblocked")
	}
	g.POST("/unblock", func(c *gin.Context) {
		var req targetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		unblock(c, req.UserID)
	})
	g.DELETE("/block/:user_id", func(c *gin.Context) {
		unblock(c, c.Param("user_id"))
	})

	g.POST("/report", func(c *gin.Context) {
		var req ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		rep, err := svc.Report(c.Request.Context(), middleware.CurrentUserID(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"message": "Report submitted", "report_id": rep.ID})
	})

	g.GET("/blocked", func(c *gin.Context) {
		list, err := svc.Blocked(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"blocked_users": list})
	})
}
