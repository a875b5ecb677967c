package messaging

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the messaging service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the messaging service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

type editRequest struct {
	Content string `json:"content" binding:"required"`
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

type startersRequest struct {
	OtherUserID string `json:"other_user_id"`
}

// Register attaches messages, matches and chat helper routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewMessagingService(r.appCtx, r.opts...)
	auth := middleware.RequireAuth(r.appCtx.Auth)

	msgs := rg.Group("/messages", auth)
	msgs.GET("/:match_id", func(c *gin.Context) {
		list, err := svc.Conversation(c.Request.Context(), middleware.CurrentUserID(c), c.Param("match_id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	})
	msgs.POST("", func(c *gin.Context) {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		msg, err := svc.Send(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, msg)
	})
	msgs.POST("/date-suggestion", func(c *gin.Context) {
		var req DateSuggestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		out, err := svc.SuggestDate(c.Request.Context(), middleware.CurrentUser(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, out)
	})
	msgs.PUT("/:message_id", func(c *gin.Context) {
		var req editRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		msg, err := svc.Edit(c.Request.Context(), middleware.CurrentUserID(c), c.Param("message_id"), req.Content)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, msg)
	})
	msgs.DELETE("/:message_id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("message_id")); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Message deleted")
	})
	msgs.POST("/:message_id/react", func(c *gin.Context) {
		var req reactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		msg, err := svc.React(c.Request.Context(), middleware.CurrentUserID(c), c.Param("message_id"), req.Emoji)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, msg)
	})

	matches := rg.Group("/matches", auth)
	matches.GET("", func(c *gin.Context) {
		list, err := svc.Matches(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, list)
	})
	matches.DELETE("/:match_id", func(c *gin.Context) {
		if err := svc.Unmatch(c.Request.Context(), middleware.CurrentUserID(c), c.Param("match_id")); err != nil {
			response.Error(c, err)
			return
		}
		response.Message(c, "Unmatched")
	})

	ai := rg.Group("/ai", auth)
	starters := func(c *gin.Context, otherID string) {
		list, err := svc.ConversationStarters(c.Request.Context(), middleware.CurrentUserID(c), otherID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"starters": list})
	}
	ai.POST("/conversation-starters", func(c *gin.Context) {
		var req startersRequest
		// the body is optional
		_ = c.ShouldBindJSON(&req)
		starters(c, req.OtherUserID)
	})
	ai.POST("/conversation-starters/:user_id", func(c *gin.Context) {
		starters(c, c.Param("user_id"))
	})

	rg.GET("/prompts/library", func(c *gin.Context) {
		response.OK(c, gin.H{"prompts": PromptLibrary()})
	})
}
