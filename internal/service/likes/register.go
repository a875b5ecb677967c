package likes

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the likes service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the likes service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the likes and limits routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewLikesService(r.appCtx)
	auth := middleware.RequireAuth(r.appCtx.Auth)

	g := rg.Group("/likes", auth)
	g.POST("", func(c *gin.Context) {
		var req LikeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		res, err := svc.Like(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, res)
	})

	g.GET("/received", func(c *gin.Context) {
		page, err := svc.ListReceived(c.Request.Context(), middleware.CurrentUser(c), pageToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, page)
	})

	g.GET("/roses-received", func(c *gin.Context) {
		page, err := svc.ListRoses(c.Request.Context(), middleware.CurrentUser(c), pageToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, page)
	})

	g.GET("/count", func(c *gin.Context) {
		n, err := svc.Count(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"count": n})
	})

	g.DELETE("/:like_id", func(c *gin.Context) {
		if err := svc.Reject(c.Request.Context(), middleware.CurrentUserID(c), c.Param("like_id")); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Like rejected")
	})

	rg.GET("/limits/swipes", auth, func(c *gin.Context) {
		limits, err := svc.Limits(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, limits)
	})
}

func pageToken(c *gin.Context) *string {
	if t := c.Query("page_token"); t != "" {
		return &t
	}
	return nil
}
