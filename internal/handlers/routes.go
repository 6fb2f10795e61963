package handlers

import (
	"github.com/gin-gonic/gin"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

// Handlers groups every API handler. DevFiles may be nil.
type Handlers struct {
	Customers *CustomerHandler
	Orders    *OrderHandler
	WooOrders *WooOrderHandler
	Products  *ProductHandler
	Vendors   *VendorHandler
	Stories   *StoryHandler
	Invites   *InviteHandler
	Assets    *AssetHandler
	DevFiles  *DevFilesHandler
}

// RegisterRoutes mounts the /api routes behind authentication.
func RegisterRoutes(router gin.IRouter, h Handlers, auth middleware.AuthConfig, users repository.UserRepository) {
	admin := middleware.RequireRoles(users, models.RoleAdmin)
	vendor := middleware.RequireRoles(users, models.RoleVendor)
	anyRole := middleware.RequireRoles(users)

	if h.DevFiles != nil {
		router.PUT("/dev-files/*key", h.DevFiles.Upload)
		router.GET("/dev-files/*key", h.DevFiles.Download)
	}

	api := router.Group("/api")
	api.Use(middleware.RequireUser(auth))
	{
		// Identity only: the caller may not have a user record yet
		api.POST("/invites/accept", h.Invites.AcceptInvite)
		api.GET("/me", h.Invites.Me)

		customers := api.Group("/customers", admin)
		{
			customers.GET("", h.Customers.ListCustomers)
			customers.GET("/export", h.Customers.ExportCustomers)
		}

		orders := api.Group("/orders", admin)
		{
			orders.GET("", h.Orders.ListOrders)
			orders.POST("", h.Orders.CreateOrder)
			orders.GET("/:id", h.Orders.GetOrder)
			orders.PUT("/:id", h.Orders.UpdateOrder)
			orders.DELETE("/:id", h.Orders.DeleteOrder)
			orders.POST("/:id/assign", h.Orders.AssignVendor)
			orders.PATCH("/:id/stage", h.Orders.UpdateStage)
			orders.GET("/:id/transitions", h.Orders.GetTransitions)
			orders.GET("/:id/job-sheet", h.Orders.JobSheet)
		}

		wooOrders := api.Group("/woo-orders", admin)
		{
			wooOrders.GET("", h.WooOrders.ListWooOrders)
			wooOrders.POST("/sync", h.WooOrders.Sync)
		}

		products := api.Group("/products", admin)
		{
			products.GET("", h.Products.ListProducts)
			products.GET("/:id", h.Products.GetProduct)
			products.POST("/cache/invalidate", h.Products.InvalidateCache)
		}

		api.GET("/vendors", admin, h.Vendors.ListVendors)

		jobs := api.Group("/vendor/jobs", vendor)
		{
			jobs.GET("", h.Vendors.ListJobs)
			jobs.GET("/:id", h.Vendors.GetJob)
			jobs.PATCH("/:id/stage", h.Vendors.UpdateJobStage)
			jobs.GET("/:id/download-zip", h.Vendors.DownloadJobZip)
			jobs.GET("/:id/job-sheet", h.Vendors.JobSheet)
		}

		stories := api.Group("/stories", admin)
		{
			stories.GET("", h.Stories.ListStories)
			stories.POST("", h.Stories.CreateStory)
			stories.GET("/:id", h.Stories.GetStory)
			stories.PUT("/:id", h.Stories.UpdateStory)
			stories.DELETE("/:id", h.Stories.DeleteStory)
		}

		invites := api.Group("/invites", admin)
		{
			invites.GET("", h.Invites.ListInvites)
			invites.POST("", h.Invites.CreateInvite)
			invites.DELETE("/:id", h.Invites.DeleteInvite)
		}

		api.POST("/upload-url", admin, h.Assets.UploadURL)
		api.GET("/download-url", anyRole, h.Assets.DownloadURL)
		api.GET("/download-zip", admin, h.Assets.DownloadZip)
	}
}
