package controller

import (
	"net/http"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/middleware"
	"letter-order-service/internal/service"
	"letter-order-service/internal/status"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /api/orders/create — public
func (ctl *OrderController) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ctl.Service.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/orders/track/:trackingCode — public, no PII
func (ctl *OrderController) Track(c *gin.Context) {
	res, err := ctl.Service.TrackPublic(c.Request.Context(), c.Param("trackingCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/admin/orders — admin only
func (ctl *OrderController) AdminList(c *gin.Context) {
	limit := 20
	if v, err := intQuery(c, "limit"); err == nil && v > 0 {
		limit = v
	}
	res, err := ctl.Service.ListOrders(
		c.Request.Context(),
		status.Status(c.Query("status")),
		limit,
		c.Query("cursor"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PATCH /api/admin/orders/:orderId/status — admin only
func (ctl *OrderController) AdminUpdateStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := middleware.CallerIdentity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	previous, err := ctl.Service.Transition(
		c.Request.Context(),
		orderID,
		req.ToStatus,
		req.ExpectedFromStatus,
		service.Actor{ID: id.SubjectID, Role: "admin"},
		"admin_panel",
		req.Note,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UpdateStatusResponse{
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      req.ToStatus,
	})
}
