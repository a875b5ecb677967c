package discovery

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the discovery service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the discovery service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

// Register attaches the discovery routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewDiscoveryService(r.appCtx, r.opts...)
	g := rg.Group("/discover", middleware.RequireAuth(r.appCtx.Auth))

	g.GET("", feed(svc.Discover))
	g.GET("/most-compatible", feed(svc.MostCompatible))
	g.GET("/daily-picks", feed(svc.DailyPicks))
	g.GET("/standouts", feed(svc.Standouts))
}

// feed adapts a feed method to a handler returning a JSON array.
func feed(fn func(context.Context, *db.User) ([]db.User, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := fn(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		if users == nil {
			users = []db.User{}
		}
		response.OK(c, users)
	}
}
