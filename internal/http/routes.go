package http

import (
	"net/http"
	"time"

	"school_asset_server/internal/http/controllers"
	"school_asset_server/internal/http/middleware"
	"school_asset_server/internal/services"
	"school_asset_server/internal/tenant"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, s *Server) {
	inventory := services.NewInventoryService(s.hub)
	zones := services.NewZoneService(s.hub)

	deviceController := controllers.NewDeviceController(inventory)
	locationController := controllers.NewLocationController(zones)
	softwareController := controllers.NewSoftwareController(services.NewSoftwareService(s.hub))
	accountController := controllers.NewAccountController(services.NewAccountService(s.hub))
	loanController := controllers.NewLoanController(services.NewLoanService(s.hub))
	settingController := controllers.NewSettingController(s.opts.Registry, s.opts.Codec, s.opts.CookieName, s.opts.SecureCookie)

	// Health check endpoint (public, no tenant)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"backends":  s.opts.Registry.Len(),
			"clients":   s.hub.ClientCount(),
		})
	})

	// API version 1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantMiddleware(middleware.TenantOptions{
		Resolver:     s.opts.Resolver,
		Codec:        s.opts.Codec,
		CookieName:   s.opts.CookieName,
		TenantHeader: s.opts.TenantHeader,
	}))
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"backend": tenant.StoreFrom(c.Request.Context()).Backend(),
			})
		})

		// Change notices for the request's tenant
		v1.GET("/ws", s.hub.HandleWebSocket)

		config := v1.Group("/config")
		{
			config.GET("", settingController.GetSettings)
			config.PUT("", middleware.RequireJSON(), settingController.UpdateSettings)
			config.DELETE("", settingController.ClearSettings)
		}

		api := v1.Group("")
		api.Use(middleware.RequireJSON())

		devices := api.Group("/devices")
		{
			devices.GET("", deviceController.GetDevices)
			devices.POST("", deviceController.CreateDevice)
			devices.POST("/bulk", deviceController.BulkCreateDevices)
			devices.POST("/import", deviceController.ImportDevices)
			devices.POST("/bulk-delete", deviceController.BulkDeleteDevices)
			devices.DELETE("", deviceController.DeleteAllDevices)
			devices.GET("/:id", deviceController.GetDevice)
			devices.PATCH("/:id", deviceController.UpdateDevice)
			devices.PUT("/:id/distribution", deviceController.UpdateDistribution)
			devices.DELETE("/:id", deviceController.DeleteDevice)
			devices.GET("/:id/instances", deviceController.GetDeviceInstances)
		}
		api.GET("/instances", deviceController.GetInstances)

		locations := api.Group("/locations")
		{
			locations.GET("", locationController.GetLocations)
			locations.POST("", locationController.SaveLocation)
			locations.PUT("/:id/name", locationController.RenameLocation)
			locations.DELETE("/:id", locationController.DeleteLocation)
		}

		maps := api.Group("/maps")
		{
			maps.GET("/:mapId", locationController.GetMap)
			maps.PUT("/:mapId", locationController.SaveMap)
			maps.POST("/:mapId/detected-zones", locationController.MergeDetectedZones)
		}

		software := api.Group("/software")
		{
			software.GET("", softwareController.GetSoftware)
			software.POST("", softwareController.CreateSoftware)
			software.PATCH("/:id", softwareController.UpdateSoftware)
			software.DELETE("/:id", softwareController.DeleteSoftware)
		}

		accounts := api.Group("/accounts")
		{
			accounts.GET("", accountController.GetAccounts)
			accounts.POST("", accountController.CreateAccount)
			accounts.PATCH("/:id", accountController.UpdateAccount)
			accounts.DELETE("/:id", accountController.DeleteAccount)
		}

		loans := api.Group("/loans")
		{
			loans.GET("", loanController.GetLoans)
			loans.POST("", loanController.CreateLoan)
			loans.POST("/:id/return", loanController.ReturnLoan)
		}
	}
}
