package notifications

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the notification feed and web push routes
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewNotificationService(r.appCtx)

	g := rg.Group("/notifications")
	g.GET("/vapid-key", func(c *gin.Context) {
		key := svc.VAPIDKey()
		if key == "" {
			response.Error(c, svcErr.ErrServiceUnavailable.WithMessage("Push notifications are not configured"))
			return
		}
		response.OK(c, gin.H{"public_key": key})
	})

	auth := g.Group("", middleware.RequireAuth(r.appCtx.Auth))
	auth.GET("", func(c *gin.Context) {
		feed, err := svc.List(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, feed)
	})

	auth.PUT("/read-all", func(c *gin.Context) {
		n, err := svc.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"message": "All notifications marked as read", "updated": n})
	})

	auth.PUT("/:notification_id/read", func(c *gin.Context) {
		if err := svc.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("notification_id")); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Notification marked as read")
	})

	auth.POST("/register-token", func(c *gin.Context) {
		var req RegisterTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		if err := svc.RegisterToken(c.Request.Context(), middleware.CurrentUserID(c), req); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Push subscription registered")
	})
}
