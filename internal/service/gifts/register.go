package gifts

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewGiftService(r.appCtx, r.opts...)

	g := rg.Group("/virtual-gifts", middleware.RequireAuth(r.appCtx.Auth))
	g.GET("", func(c *gin.Context) {
		response.OK(c, gin.H{"gifts": svc.Catalog()})
	})

	g.POST("/send", func(c *gin.Context) {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		sent, err := svc.Send(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, sent)
	})

	g.GET("/received", func(c *gin.Context) {
		list, err := svc.Received(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"gifts": list})
	})
}
