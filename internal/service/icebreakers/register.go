package icebreakers

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
	svc := NewIcebreakerService(r.appCtx, r.opts...)

	g := rg.Group("/icebreakers", middleware.RequireAuth(r.appCtx.Auth))
	g.GET("/games", func(c *gin.Context) {
		response.OK(c, gin.H{"games": svc.Games()})
	})

	g.POST("/start", func(c *gin.Context) {
		var req StartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		session, err := svc.Start(c.Request.Context(), middleware.CurrentUserID(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, session)
	})

	g.GET("/:session_id", func(c *gin.Context) {
		session, err := svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("session_id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, session)
	})

	g.POST("/:session_id/answer", func(c *gin.Context) {
		var req AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		session, err := svc.Answer(c.Request.Context(), middleware.CurrentUserID(c), c.Param("session_id"), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, session)
	})
}
