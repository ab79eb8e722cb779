package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

// SignatureHeader is the provider webhook signature header.
const SignatureHeader = "X-Iyz-Signature"

type PaymentController struct {
	Service *service.PaymentService
}

func NewPaymentController(s *service.PaymentService) *PaymentController {
	return &PaymentController{Service: s}
}

// POST /api/payments/create-intent
func (ctl *PaymentController) CreateIntent(c *gin.Context) {
	var req dto.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ctl.Service.CreateIntent(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/payments/webhook — signature is verified over the raw body, so
// the payload is decoded by hand instead of through binding.
func (ctl *PaymentController) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var payload dto.PaymentWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	if err := ctl.Service.HandleWebhook(c.Request.Context(), &payload, body, c.GetHeader(SignatureHeader)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook processed successfully"})
}

// GET /api/payments/status?order_id=...
func (ctl *PaymentController) Status(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	res, err := ctl.Service.Status(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func intQuery(c *gin.Context, key string) (int, error) {
	return strconv.Atoi(c.Query(key))
}
