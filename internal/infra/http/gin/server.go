package ginserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/infra/config"
	"rentwheels/internal/infra/obs"
)

type CarHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	AddBlackout(c *gin.Context)
	RemoveBlackout(c *gin.Context)
	AddMaintenance(c *gin.Context)
	RemoveMaintenance(c *gin.Context)
	SetAvailability(c *gin.Context)
}

type BookingHTTP interface {
	Estimate(c *gin.Context)
	Create(c *gin.Context)
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Cancel(c *gin.Context)
	Confirm(c *gin.Context)
	Activate(c *gin.Context)
	Complete(c *gin.Context)
	Rate(c *gin.Context)
	NoShow(c *gin.Context)
	UploadInspectionPhoto(c *gin.Context)
}

type OwnerBookingHTTP interface {
	List(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Cars           CarHTTP
	Bookings       BookingHTTP
	OwnerBookings  OwnerBookingHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(cfg.CORSOrigins, obsMW, health, h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewRouter builds the engine without touching the gin mode, so tests can mount it directly.
func NewRouter(origins []string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(origins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Cars != nil {
		carGroup := api.Group("/cars")
		carGroup.GET("", h.Cars.Search)
		carGroup.GET("/:id", h.Cars.Get)
		carGroup.POST("/:id/blackouts", h.Cars.AddBlackout)
		carGroup.DELETE("/:id/blackouts/:windowId", h.Cars.RemoveBlackout)
		carGroup.POST("/:id/maintenance", h.Cars.AddMaintenance)
		carGroup.DELETE("/:id/maintenance/:windowId", h.Cars.RemoveMaintenance)
		carGroup.PUT("/:id/availability", h.Cars.SetAvailability)
	}
	if h.Bookings != nil {
		bookingGroup := api.Group("/bookings")
		bookingGroup.POST("/estimate", h.Bookings.Estimate)
		bookingGroup.POST("", h.Bookings.Create)
		bookingGroup.GET("", h.Bookings.ListMine)
		bookingGroup.GET("/:id", h.Bookings.Get)
		bookingGroup.PUT("/:id", h.Bookings.Update)
		bookingGroup.POST("/:id/cancel", h.Bookings.Cancel)
		bookingGroup.POST("/:id/confirm", h.Bookings.Confirm)
		bookingGroup.POST("/:id/activate", h.Bookings.Activate)
		bookingGroup.POST("/:id/complete", h.Bookings.Complete)
		bookingGroup.POST("/:id/rate", h.Bookings.Rate)
		bookingGroup.POST("/:id/no-show", h.Bookings.NoShow)
		bookingGroup.POST("/:id/inspection-photos", h.Bookings.UploadInspectionPhoto)
	}
	if h.OwnerBookings != nil {
		api.GET("/owner/bookings", h.OwnerBookings.List)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
