package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shipment-sync/config"
	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"
	"shipment-sync/internal/service"
	"shipment-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Version reported by the status banner
const Version = "1.0.0"

// OrderSyncer processes inbound orders
type OrderSyncer interface {
	HandleOrderEvent(ctx context.Context, payload map[string]any) (*service.SyncResult, error)
	SyncByID(ctx context.Context, orderID string) (*service.SyncResult, error)
}

// OrderReader reads stored sync state
type OrderReader interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.OrderRecord, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.OrderRecord, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// Handler contains HTTP handlers
type Handler struct {
	syncer OrderSyncer
	orders OrderReader
	cfg    *config.Config
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(syncer OrderSyncer, orders OrderReader, cfg *config.Config) *Handler {
	return &Handler{
		syncer: syncer,
		orders: orders,
		cfg:    cfg,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	for _, path := range []string{"/", "/webhook", "/order"} {
		router.POST(path, h.receiveOrder)
		router.GET(path, h.syncOrder)
	}

	router.GET("/health", h.healthCheck)
	router.GET("/stats", h.stats)
	router.POST("/test-webhook", h.testWebhook)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/tracking/:code", h.getOrderByTracking)
	}
}

// receiveOrder handles an order pushed by the storefront webhook
func (h *Handler) receiveOrder(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	res, err := h.syncer.HandleOrderEvent(c.Request.Context(), payload)
	h.respond(c, res, err)
}

// syncOrder fetches an order by id from the storefront and processes it
func (h *Handler) syncOrder(c *gin.Context) {
	orderID := c.Query("order")
	if orderID == "" {
		orderID = c.Query("id")
	}
	if orderID == "" {
		if c.FullPath() == "/" {
			h.banner(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing order id",
			"details": "use ?order=<id> or ?id=<id>",
		})
		return
	}

	res, err := h.syncer.SyncByID(c.Request.Context(), orderID)
	h.respond(c, res, err)
}

// testWebhook runs a built-in sample order through the sync flow
func (h *Handler) testWebhook(c *gin.Context) {
	payload := samplePayload(fmt.Sprintf("TEST-%d", h.now().UnixMilli()))
	h.logger.Info("Processing sample order", zap.Any("order_id", payload["id"]))

	res, err := h.syncer.HandleOrderEvent(c.Request.Context(), payload)
	h.respond(c, res, err)
}

func (h *Handler) respond(c *gin.Context, res *service.SyncResult, err error) {
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{
			"error":   apperrors.Reason(err),
			"details": err.Error(),
		})
		return
	}

	switch res.Outcome {
	case service.OutcomeIgnored:
		c.JSON(http.StatusOK, gin.H{
			"message":            "ignored",
			"order_id":           res.OrderID,
			"order_code":         res.OrderCode,
			"fulfillment_status": res.FulfillmentStatus,
			"required":           models.FulfillmentInvoiced,
		})
	case service.OutcomeAlreadyProcessed:
		c.JSON(http.StatusOK, gin.H{
			"message": "already processed",
			"status":  res.Status,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"order_id":            res.OrderID,
			"carrier_shipment_id": res.CarrierShipmentID,
			"tracking_code":       res.TrackingCode,
		})
	}
}

func (h *Handler) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "shipment-sync",
		"message": "Storefront to carrier shipment sync",
		"version": Version,
	})
}

// healthCheck reports degraded when a platform token is missing
func (h *Handler) healthCheck(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
			"time":   h.now().Unix(),
		})
		return
	}

	status := "healthy"
	if !h.cfg.TokensConfigured() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"time":   h.now().Unix(),
		"config": gin.H{
			"storefront_token": h.cfg.Storefront.Token != "",
			"carrier_token":    h.cfg.Carrier.Token != "",
			"service_id":       h.cfg.Carrier.ServiceID,
			"service_name":     h.cfg.ServiceName(),
			"tracker_interval": h.cfg.Sync.TrackerInterval.String(),
			"max_retries":      h.cfg.Sync.MaxRetries,
		},
		"statistics": stats,
	})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load statistics",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	})
}

// getOrder returns the stored sync state of one order
func (h *Handler) getOrder(c *gin.Context) {
	rec, err := h.orders.GetByOrderID(c.Request.Context(), c.Param("id"))
	h.writeRecord(c, rec, err)
}

func (h *Handler) getOrderByTracking(c *gin.Context) {
	rec, err := h.orders.GetByTrackingCode(c.Request.Context(), c.Param("code"))
	h.writeRecord(c, rec, err)
}

func (h *Handler) writeRecord(c *gin.Context, rec *models.OrderRecord, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load order",
			"details": err.Error(),
		})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// samplePayload is an invoiced order with a valid CPF and one 0.5kg item
func samplePayload(orderID string) map[string]any {
	return map[string]any{
		"id":                 orderID,
		"code":               orderID,
		"fulfillment_status": models.FulfillmentInvoiced,
		"total":              150.0,
		"customer": map[string]any{
			"name":     "Cliente Teste",
			"email":    "cliente@teste.com",
			"phone":    "11988887777",
			"document": "12345678909",
		},
		"address": map[string]any{
			"street":       "Avenida Paulista",
			"number":       "1000",
			"complement":   "Sala 1",
			"neighborhood": "Bela Vista",
			"city":         "São Paulo",
			"state":        "SP",
			"zipcode":      "01310-100",
		},
		"items": []any{
			map[string]any{
				"name":     "Produto Teste",
				"quantity": 1.0,
				"price":    150.0,
				"weight":   0.5,
				"height":   10.0,
				"width":    15.0,
				"length":   20.0,
			},
		},
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
