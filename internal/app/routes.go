package app

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsConfig allows credentialed requests only from the listed origins. An
// empty list or "*" opens the API to any origin without credentials.
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

// Routes registers the view API, the catalog passthrough and /health.
func (a *App) Routes(router *gin.Engine, allowedOrigins []string) {
	router.Use(cors.New(corsConfig(allowedOrigins)))
	router.Use(a.RequestLogger())

	router.GET("/health", a.HealthHandler)

	api := router.Group("/api")
	api.Use(CredentialMiddleware())
	{
		views := api.Group("/views")
		{
			views.POST("", a.OpenViewHandler)
			views.GET("/:id", a.GetViewHandler)
			views.DELETE("/:id", a.CloseViewHandler)
			views.POST("/:id/day", a.SelectDayHandler)
			views.POST("/:id/mode", a.SetModeHandler)
			views.POST("/:id/slot", a.ChooseSlotHandler)
			views.POST("/:id/confirm", a.OpenConfirmHandler)
			views.POST("/:id/cancel", a.CancelHandler)
			views.POST("/:id/submit", a.SubmitHandler)
			views.POST("/:id/refresh", a.RefreshHandler)
		}

		api.GET("/services", a.ListServicesHandler)
		api.GET("/services/:id", a.GetServiceHandler)
		api.GET("/services/:id/offers", a.ListServiceOffersHandler)

		secure := api.Group("/")
		secure.Use(a.RequireCredential())
		{
			secure.GET("/bookings", a.ListBookingsHandler)
			secure.GET("/profile", a.ProfileHandler)
			secure.GET("/activities", a.ListActivitiesHandler)
		}
	}
}
