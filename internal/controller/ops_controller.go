package controller

import (
	"net/http"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OpsController struct {
	Service *service.OpsService
}

func NewOpsController(s *service.OpsService) *OpsController {
	return &OpsController{Service: s}
}

// POST /api/ops/pdf-generate — called by the task queue after payment.
// A 5xx here tells the queue to redeliver on its own backoff.
func (ctl *OpsController) PDFGenerate(c *gin.Context) {
	var req dto.PDFGenerateJobPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Attempt < 1 {
		req.Attempt = 1
	}

	res, err := ctl.Service.GeneratePDF(c.Request.Context(), req.JobID, req.OrderID, req.Attempt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/ops/pii-cleanup — nightly scheduler trigger. Dry run unless the
// payload says otherwise.
func (ctl *OpsController) PIICleanup(c *gin.Context) {
	var req dto.PIICleanupJobPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CutoffDays <= 0 {
		req.CutoffDays = 30
	}
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	res, err := ctl.Service.CleanupPII(c.Request.Context(), req.JobID, req.CutoffDays, dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
