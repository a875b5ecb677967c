package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the account service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the account service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

type googleSessionRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// Register attaches the auth routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewAccountService(r.appCtx, r.opts...)
	g := rg.Group("/auth")

	signedIn := func(c *gin.Context, sess *Session, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		r.setCookie(c, sess.SessionToken, int(r.appCtx.Config.Auth.SessionTTL.Seconds()))
		response.OK(c, sess)
	}

	g.POST("/register", func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		sess, err := svc.Register(c.Request.Context(), req)
		signedIn(c, sess, err)
	})

	g.POST("/login", func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		sess, err := svc.Login(c.Request.Context(), req)
		signedIn(c, sess, err)
	})

	g.POST("/logout", func(c *gin.Context) {
		if err := svc.Logout(c.Request.Context(), middleware.TokenFromRequest(c)); err != nil {
			response.Error(c, err)
			return
		}
		r.setCookie(c, "", -1)
		response.Message(c, "Logged out")
	})

	g.GET("/me", middleware.RequireAuth(r.appCtx.Auth), func(c *gin.Context) {
		response.OK(c, middleware.CurrentUser(c))
	})

	g.GET("/google/login", func(c *gin.Context) {
		url, state, err := svc.GoogleLogin()
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"auth_url": url, "state": state})
	})

	g.POST("/google/session", func(c *gin.Context) {
		var req googleSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		sess, err := svc.GoogleSession(c.Request.Context(), req.Code, req.State)
		signedIn(c, sess, err)
	})
}

func (r *Registrar) setCookie(c *gin.Context, value string, maxAge int) {
	secure := r.appCtx.Config.Auth.CookieSecure
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", secure, true)
}
