package realtime

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/utils/response"
)

// Authenticator resolves a JWT or session token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*db.User, error)
}

// Handler serves the /ws/:token endpoint.
type Handler struct {
	auth     Authenticator
	registry *Registry
	router   *Router
	cfg      *config.Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(cfg *config.Config, auth Authenticator, registry *Registry, router *Router, log *slog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		registry: registry,
		router:   router,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// browsers connect cross-origin from the SPA
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register attaches the endpoint to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/ws/:token", h.Serve)
}

func (h *Handler) Serve(c *gin.Context) {
	user, err := h.auth.Authenticate(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(h.cfg.Realtime.MessagesPerSec), h.cfg.Realtime.MessageBurst)
	client := newClient(user.ID, conn, limiter, h.log)
	h.registry.Register(client)
	defer h.registry.Unregister(client)

	go client.writePump()
	client.readPump(context.WithoutCancel(c.Request.Context()), h.router, h.cfg.Realtime.MaxMessageBytes)
}
