package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/metrics"
)

// RouterOptions carries everything the router needs.
type RouterOptions struct {
	Handler   *Handler
	Logger    *log.Log
	Collector *metrics.Collector
	Secret    string
	IsProd    bool
}

// NewRouter builds the gin engine with the full middleware chain and all
// versioned routes.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if opts.Logger != nil {
		router.Use(RequestLogger(opts.Logger))
	}
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	if opts.Collector != nil {
		router.Use(MetricsMiddleware(opts.Collector))
		router.GET("/metrics", gin.WrapH(opts.Collector.Handler()))
	}

	v1 := router.Group("/v1")
	v1.POST("/auth/token", opts.Handler.issueToken)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(opts.Secret))
	{
		authed.POST("/images", opts.Handler.uploadImages)
		authed.GET("/images", opts.Handler.listImages)
		authed.DELETE("/images/:id", opts.Handler.deleteImage)
		authed.PUT("/images/:id/tags", opts.Handler.setTags)
		authed.POST("/images/batch-delete", opts.Handler.deleteImages)

		authed.GET("/favorites", opts.Handler.listFavorites)
		authed.POST("/favorites", opts.Handler.addFavorite)
		authed.DELETE("/favorites/:id", opts.Handler.removeFavorite)
		authed.POST("/favorites/toggle", opts.Handler.toggleFavorite)
		authed.POST("/favorites/batch", opts.Handler.batchFavorites)
	}

	return router
}
