package handler

import (
	"settlement_back/pkg/middleware"
	"settlement_back/pkg/service"
	"settlement_back/pkg/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Enqueuer hands withdrawal batches to the background worker.
type Enqueuer interface {
	EnqueueBatch(job worker.BatchJob)
}

type Handler struct {
	service *service.Service
	jobs    Enqueuer
}

func NewHandler(service *service.Service, jobs Enqueuer) *Handler {
	return &Handler{
		service: service,
		jobs:    jobs,
	}
}

func (h *Handler) InitRoute() *gin.Engine {
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://dashboard.adsettle.io"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Account-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	api := router.Group("/api", middleware.AccountMiddleware())
	{
		ledger := api.Group("/ledger")
		{
			ledger.GET("/", h.GetLedger)
		}

		withdrawals := api.Group("/withdrawals")
		{
			withdrawals.POST("/", h.RequestWithdrawal)
			withdrawals.POST("/:id/cancel", h.CancelWithdrawal)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("/snapshot", h.GetSnapshot)
			wallet.POST("/convert", h.Convert)
		}
	}
	return router
}
