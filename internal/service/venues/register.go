package venues

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/app"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/middleware"
	"github.com/oggyb/ember/internal/places"
	"github.com/oggyb/ember/internal/utils/response"
)

// Registrar ties venue search into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the venue service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

// Register attaches the places and locations routes to the API group
func (r *Registrar) Register(rg *gin.RouterGroup) {
	svc := NewVenueService(r.appCtx, r.opts...)
	auth := middleware.RequireAuth(r.appCtx.Auth)

	g := rg.Group("/places", auth)
	g.GET("/search", func(c *gin.Context) {
		q := places.Query{Text: c.Query("query"), Category: c.Query("category")}
		var err error
		if q.Latitude, err = optFloat(c, "lat"); err != nil {
			response.Error(c, err)
			return
		}
		if q.Longitude, err = optFloat(c, "lng"); err != nil {
			response.Error(c, err)
			return
		}
		if q.Text == "" && q.Category == "" {
			q.Category = "restaurant"
		}

		res, err := svc.Search(c.Request.Context(), q)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, res)
	})
	g.GET("/categories", func(c *gin.Context) {
		response.OK(c, gin.H{"categories": places.Categories()})
	})

	rg.GET("/locations/popular", func(c *gin.Context) {
		response.OK(c, gin.H{"locations": places.PopularLocations()})
	})
}

func optFloat(c *gin.Context, key string) (*float64, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, svcErr.NewValidationError(key, "must be a number")
	}
	return &f, nil
}
