package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/retail-platform/stock-service/internal/application"
	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/api"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/middleware"
)

// registerRoutes mounts the stock API. Static segments are registered
// before the :productId wildcard.
func registerRoutes(router *gin.Engine, service *application.StockService, sweeper *application.ExpirationSweeper, logger *logging.Logger) {
	stock := router.Group("/api/stock")
	{
		stock.GET("", listStockHandler(service, logger))
		stock.GET("/low-stock", listLowStockHandler(service, logger))
		stock.POST("/reserve", reserveStockHandler(service, logger))
		stock.POST("/confirm/:reservationId", confirmReservationHandler(service, logger))
		stock.POST("/release/order/:orderId", releaseByOrderHandler(service, logger))
		stock.POST("/release/:reservationId", releaseReservationHandler(service, logger))
		stock.GET("/reservations/:orderId", reservationsByOrderHandler(service, logger))
		stock.GET("/reservation/:reservationId", getReservationHandler(service, logger))

		stock.GET("/:productId", getStockHandler(service, logger))
		stock.GET("/:productId/movements", listMovementsHandler(service, logger))
		stock.POST("/:productId/adjust", adjustStockHandler(service, logger))
	}

	admin := router.Group("/api/admin/stock")
	{
		admin.POST("", createStockHandler(service, logger))
		admin.GET("/alerts", listAlertsHandler(service, logger))
		admin.POST("/sweep", sweepHandler(sweeper))
		admin.PUT("/:productId/minimum", updateMinimumHandler(service, logger))
	}
}

// idParam reads a positive numeric path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func getStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		productID, ok := idParam(c, "productId")
		if !ok {
			responder.RespondBadRequest("productId must be a positive integer")
			return
		}

		stock, err := service.GetStock(c.Request.Context(), productID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stock)
	}
}

func listStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)
		page := api.ParsePagination(c)

		stocks, total, err := service.ListStock(c.Request.Context(), application.ListStockQuery{
			Offset: int(page.GetOffset()),
			Limit:  int(page.GetLimit()),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(stocks, page.Page, page.PageSize, total))
	}
}

func listLowStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stocks, err := service.ListLowStock(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, stocks)
	}
}

func listMovementsHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		productID, ok := idParam(c, "productId")
		if !ok {
			responder.RespondBadRequest("productId must be a positive integer")
			return
		}
		page := api.ParsePagination(c)

		movements, total, err := service.ListMovements(c.Request.Context(), application.ListMovementsQuery{
			ProductID: productID,
			Offset:    int(page.GetOffset()),
			Limit:     int(page.GetLimit()),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(movements, page.Page, page.PageSize, total))
	}
}

func adjustStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		productID, ok := idParam(c, "productId")
		if !ok {
			responder.RespondBadRequest("productId must be a positive integer")
			return
		}

		var req struct {
			MovementType  string `json:"movementType" binding:"required,adjust_movement"`
			Quantity      *int   `json:"quantity" binding:"required,gte=0"`
			ReferenceType string `json:"referenceType" binding:"omitempty,reference_type"`
			ReferenceID   *int64 `json:"referenceId"`
			Notes         string `json:"notes" binding:"max=500"`
			UserID        *int64 `json:"userId"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		stock, err := service.AdjustStock(c.Request.Context(), application.AdjustStockCommand{
			ProductID:     productID,
			MovementType:  domain.MovementType(req.MovementType),
			Quantity:      *req.Quantity,
			ReferenceType: domain.ReferenceType(req.ReferenceType),
			ReferenceID:   req.ReferenceID,
			Notes:         req.Notes,
			UserID:        req.UserID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stock)
	}
}

func reserveStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req struct {
			ProductID int64 `json:"productId" binding:"required,gt=0"`
			OrderID   int64 `json:"orderId" binding:"required,gt=0"`
			Quantity  int   `json:"quantity" binding:"required,min=1"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		reservation, err := service.ReserveStock(c.Request.Context(), application.ReserveStockCommand{
			ProductID: req.ProductID,
			OrderID:   req.OrderID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, reservation)
	}
}

func confirmReservationHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservation, err := service.ConfirmReservation(c.Request.Context(), c.Param("reservationId"))
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func releaseReservationHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservation, err := service.ReleaseReservation(c.Request.Context(), c.Param("reservationId"))
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

// releaseByOrderHandler answers with an error when any reservation failed to
// release. The ones already released stay released and a retry skips them.
func releaseByOrderHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		orderID, ok := idParam(c, "orderId")
		if !ok {
			responder.RespondBadRequest("orderId must be a positive integer")
			return
		}

		released, err := service.ReleaseReservationsByOrder(c.Request.Context(), orderID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"orderId": orderID, "released": released})
	}
}

func reservationsByOrderHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		orderID, ok := idParam(c, "orderId")
		if !ok {
			responder.RespondBadRequest("orderId must be a positive integer")
			return
		}

		reservations, err := service.GetReservationsByOrder(c.Request.Context(), orderID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, reservations)
	}
}

func getReservationHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservation, err := service.GetReservation(c.Request.Context(), c.Param("reservationId"))
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func createStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req struct {
			ProductID       int64  `json:"productId" binding:"required,gt=0"`
			InitialQuantity int    `json:"initialQuantity" binding:"gte=0"`
			MinimumQuantity *int   `json:"minimumQuantity" binding:"omitempty,gte=0"`
			UserID          *int64 `json:"userId"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		stock, err := service.CreateStock(c.Request.Context(), application.CreateStockCommand{
			ProductID:       req.ProductID,
			InitialQuantity: req.InitialQuantity,
			MinimumQuantity: req.MinimumQuantity,
			UserID:          req.UserID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, stock)
	}
}

func updateMinimumHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		productID, ok := idParam(c, "productId")
		if !ok {
			responder.RespondBadRequest("productId must be a positive integer")
			return
		}

		var req struct {
			MinimumQuantity *int `json:"minimumQuantity" binding:"required,gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		stock, err := service.UpdateMinimumQuantity(c.Request.Context(), application.UpdateMinimumQuantityCommand{
			ProductID:       productID,
			MinimumQuantity: *req.MinimumQuantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, stock)
	}
}

func listAlertsHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := service.ListActiveAlerts(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

// sweepHandler runs one expiration sweep synchronously
func sweepHandler(sweeper *application.ExpirationSweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := sweeper.RunOnce(c.Request.Context())
		c.JSON(http.StatusOK, report)
	}
}
