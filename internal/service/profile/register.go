package profile

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/media"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties the profile service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the profile service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

type base64Request struct {
	Data      string `json:"data" binding:"required"`
	Extension string `json:"extension"`
}

type phoneSendRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type phoneVerifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// fileBody reads an image from a multipart "photo" or "file" field, or from
// a JSON {"data": "<base64>"} body.
func fileBody(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		for _, field := range []string{"photo", "file"} {
			f, _, err := c.Request.FormFile(field)
			if err == nil {
				return f, nil
			}
		}
		return nil, svcErr.NewValidationError("photo", "file is required")
	}
	var req base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	r, err := media.DecodeBase64(req.Data)
	if err != nil {
		return nil, svcErr.NewValidationError("data", err.Error())
	}
	return io.NopCloser(r), nil
}

// Register attaches profile, preferences, upload and verification routes
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewProfileService(r.appCtx, r.opts...)
	auth := middleware.RequireAuth(r.appCtx.Auth)

	p := rg.Group("/profile", auth)
	p.PUT("", func(c *gin.Context) {
		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		u, err := svc.Update(c.Request.Context(), middleware.CurrentUserID(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, u)
	})
	p.GET("/languages", func(c *gin.Context) {
		response.OK(c, gin.H{"languages": Languages()})
	})
	p.GET("/:user_id", func(c *gin.Context) {
		u, err := svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("user_id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, u)
	})
	p.PUT("/location", func(c *gin.Context) {
		var req LocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		u, err := svc.SetLocation(c.Request.Context(), middleware.CurrentUserID(c), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"message": "Location updated", "location": u.Location})
	})
	p.PUT("/language", func(c *gin.Context) {
		var req languageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		code, err := svc.SetLanguage(c.Request.Context(), middleware.CurrentUserID(c), req.Language)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"message": "Language updated", "language": code})
	})

	prefs := rg.Group("/preferences", auth)
	prefs.GET("/filters", func(c *gin.Context) {
		f, err := svc.Filters(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, f)
	})
	prefs.PUT("/filters", func(c *gin.Context) {
		var f db.Filters
		if err := c.ShouldBindJSON(&f); err != nil {
			response.BadBody(c, err)
			return
		}
		out, err := svc.SetFilters(c.Request.Context(), middleware.CurrentUserID(c), f)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, out)
	})

	upload := func(c *gin.Context) {
		body, err := fileBody(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer body.Close()
		url, err := svc.UploadPhoto(c.Request.Context(), middleware.CurrentUserID(c), body)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"url": url})
	}
	rg.POST("/upload/photo", auth, upload)
	rg.POST("/upload/photo/base64", auth, upload)

	v := rg.Group("/verification", auth)
	v.GET("/status", func(c *gin.Context) {
		st, err := svc.Verification(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, st)
	})
	withFile := func(verify func(*gin.Context, io.Reader) (VerificationStatus, error)) gin.HandlerFunc {
		return func(c *gin.Context) {
			body, err := fileBody(c)
			if err != nil {
				response.Error(c, err)
				return
			}
			defer body.Close()
			st, err := verify(c, body)
			if err != nil {
				response.Error(c, err)
				return
			}
			response.OK(c, st)
		}
	}
	v.POST("/photo", withFile(func(c *gin.Context, body io.Reader) (VerificationStatus, error) {
		return svc.VerifyPhoto(c.Request.Context(), middleware.CurrentUserID(c), body)
	}))
	v.POST("/id", withFile(func(c *gin.Context, body io.Reader) (VerificationStatus, error) {
		return svc.VerifyID(c.Request.Context(), middleware.CurrentUserID(c), body)
	}))
	v.POST("/phone/send", func(c *gin.Context) {
		var req phoneSendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		code, err := svc.SendPhoneCode(c.Request.Context(), middleware.CurrentUserID(c), req.Phone)
		if err != nil {
			response.Error(c, err)
			return
		}
		out := gin.H{"message": "Verification code sent"}
		if code != "" {
			out["debug_code"] = code
		}
		response.OK(c, out)
	})
	v.POST("/phone/verify", func(c *gin.Context) {
		var req phoneVerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadBody(c, err)
			return
		}
		st, err := svc.VerifyPhoneCode(c.Request.Context(), middleware.CurrentUserID(c), req.Phone, req.Code)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, st)
	})
}
