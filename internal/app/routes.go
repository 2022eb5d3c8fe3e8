package app

import (
	"net/http"

	"qrstudio/internal/auth"
	"qrstudio/internal/config"
	"qrstudio/internal/handlers"
	"qrstudio/internal/logging"
	"qrstudio/internal/render"
	"qrstudio/internal/repo"
	"qrstudio/internal/service"
	"qrstudio/internal/upload"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Deps are the stores and collaborators behind the routes. Cache may be nil.
type Deps struct {
	Users     repo.UserRepo
	Creations repo.CreationRepo
	Sessions  auth.SessionStore
	Cache     service.CreationCache
	Renderer  render.Renderer
	Uploads   upload.Store
	Logger    logging.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger), newCORS(cfg))
	// multipart bodies above this spill to temp files
	r.MaxMultipartMemory = 8 << 20
	Setup(r, cfg, d)
	return r
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, d Deps) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	requireSession := auth.RequireSession(d.Sessions)

	userSvc := service.NewUserService(d.Users)
	authHandler := handlers.NewAuthHandler(d.Sessions, userSvc, cfg.Session.SecureCookie, d.Logger)

	creationSvc := service.NewCreationService(d.Creations, d.Cache, d.Renderer, d.Logger.With("component", "creations"), cfg.QR.ThumbnailSize)
	creationHandler := handlers.NewCreationHandler(creationSvc, cfg.HTTP.TrustProxy, d.Logger)

	uploadSvc := upload.NewService(d.Uploads, upload.Limits{
		MaxFileBytes:  cfg.Upload.MaxFileBytes,
		MaxPhotoBytes: cfg.Upload.MaxPhotoBytes,
	}, d.Logger.With("component", "upload"))
	uploadHandler := handlers.NewUploadHandler(uploadSvc, d.Logger)

	vcardHandler := handlers.NewVCardHandler(creationSvc, d.Logger)

	api := r.Group("/api")
	registerAuthRoutes(api, authHandler, requireSession)
	registerCreationRoutes(api.Group("", requireSession), creationHandler)

	up := r.Group("/upload", requireSession)
	up.POST("", uploadHandler.UploadFile)
	up.POST("/profile", uploadHandler.UploadProfile)

	r.GET("/download/:fileId", uploadHandler.Download)
	r.GET("/uploads/profiles/:name", uploadHandler.ProfilePhoto)
	r.GET("/vcard/:id", vcardHandler.Show)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "QR Studio API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler, requireSession gin.HandlerFunc) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", requireSession, h.Me)
}

func registerCreationRoutes(api *gin.RouterGroup, h *handlers.CreationHandler) {
	api.POST("/qr", h.Generate)
	api.GET("/creations", h.List)
	api.GET("/creations/:id/edit", h.Edit)
	api.GET("/creations/:id/image", h.Image)
	api.GET("/creations/:id/download", h.Download)
	api.PUT("/creations/:id", h.Update)
	api.DELETE("/creations/:id", h.Delete)
}
