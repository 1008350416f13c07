package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/Luismorlan/honeybee/server/middlewares"
)

// NewRouter builds the api router. Admin routes require adminToken in the
// X-Admin-Token header.
func NewRouter(h *Handlers, serviceName string, adminToken string) *gin.Engine {
	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()

	router.Use(cors.Default())
	router.Use(gintrace.Middleware(serviceName))

	router.GET("/ping", h.Ping)

	api := router.Group("/api")
	api.GET("/articles", h.ListArticles)
	api.GET("/articles/:id", h.GetArticle)
	api.GET("/platforms", h.ListPlatforms)

	api.GET("/analytics/platforms", h.PlatformStats)
	api.GET("/analytics/tags", h.TrendingTags)
	api.GET("/analytics/authors", h.AuthorRanking)

	api.GET("/monitor/stats", h.MonitorStats)
	api.GET("/monitor/sources", h.MonitorSources)
	api.GET("/monitor/errors", h.MonitorErrors)
	api.GET("/monitor/trends", h.MonitorTrends)

	api.GET("/browser/status", h.BrowserStatus)
	api.GET("/cache", h.CacheInfo)

	admin := api.Group("/admin", middlewares.AdminToken(adminToken))
	admin.POST("/refresh", h.Refresh)
	admin.POST("/courses/refresh", h.RefreshCourses)
	admin.DELETE("/cache", h.ClearCache)

	return router
}
