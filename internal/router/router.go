package router

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/api"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/middleware"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Deps struct {
	Tickets     *handler.TicketHandler
	Health      *handler.HealthHandler
	Gate        middleware.Gate
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	CORSOrigins []string
	// WebDir: каталог фронтенда. Пустой или отсутствующий отключает раздачу статики.
	WebDir string
}

func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger, d.Metrics),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORSOrigins),
	)

	r.GET(paths.PathHealth, d.Health.Health)
	r.GET(paths.PathReady, d.Health.Ready)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		file := strings.TrimPrefix(c.Param("any"), "/")
		if file == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if file == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})

	apiGroup := r.Group("/api")
	apiGroup.GET("/health", d.Health.APIHealth)

	tickets := apiGroup.Group("/tickets", middleware.RequireDatabase(d.Gate))
	{
		tickets.POST("", d.Tickets.Create)
		tickets.GET("", d.Tickets.List)
		tickets.GET("/:id", d.Tickets.Get)
		tickets.DELETE("/:id", d.Tickets.Delete)
		tickets.PUT("/:id/status", d.Tickets.UpdateStatus)
		tickets.POST("/:id/logs", d.Tickets.AddLog)
		tickets.GET("/:id/logs", d.Tickets.ListLogs)
	}

	static := staticFiles(d.WebDir)
	if static != nil {
		r.GET("/", func(c *gin.Context) { static(c, "/index.html") })
	}
	r.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || static == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		static(c, p)
	})

	return r
}

// staticFiles возвращает раздачу файлов из dir или nil, если dir не каталог.
func staticFiles(dir string) func(c *gin.Context, name string) {
	if dir == "" {
		return nil
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil
	}
	return func(c *gin.Context, name string) {
		full := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
		fi, err := os.Stat(full)
		if err != nil || fi.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Header("Cache-Control", middleware.CacheControl(full))
		c.File(full)
	}
}
