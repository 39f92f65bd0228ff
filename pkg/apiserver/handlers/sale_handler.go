package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/apiserver/middleware"
	"github.com/motortrade/salesd/pkg/model"
	"github.com/motortrade/salesd/pkg/sales"
)

// Sweeper triggers one on-demand reconciliation pass.
type Sweeper interface {
	RunOnce(ctx context.Context) error
}

// WebhookLogReader exposes a sale's delivery-attempt history.
type WebhookLogReader interface {
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.WebhookLog, error)
}

type SaleHandler struct {
	service *sales.Service
	sweeper Sweeper
	logs    WebhookLogReader
	logger  *zap.Logger
}

func NewSaleHandler(service *sales.Service, sweeper Sweeper, logs WebhookLogReader, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{service: service, sweeper: sweeper, logs: logs, logger: logger}
}

type createSaleRequest struct {
	VehicleID     string  `json:"vehicle_id" binding:"required"`
	BuyerTaxID    string  `json:"buyer_tax_id" binding:"required"`
	AmountPaid    float64 `json:"amount_paid" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

func (h *SaleHandler) Create(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	method := model.PaymentMethod(req.PaymentMethod)
	if !model.IsValidPaymentMethod(method) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment_method"})
		return
	}

	sale, err := h.service.CreateSale(c.Request.Context(), sales.CreateSaleRequest{
		VehicleID:     req.VehicleID,
		BuyerTaxID:    req.BuyerTaxID,
		AmountPaid:    req.AmountPaid,
		PaymentMethod: method,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to create sale", zap.Error(err))
			c.JSON(status, gin.H{"error": "failed to create sale"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) Get(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}

	sale, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to get sale", zap.Error(err))
			c.JSON(status, gin.H{"error": "failed to get sale"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sale)
}

// List is admin-aware: admins see everything (optionally filtered by
// vehicle), regular users only the sales bound to the CPF in their token.
func (h *SaleHandler) List(c *gin.Context) {
	claims := middleware.UserFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	vehicleID := strings.TrimSpace(c.Query("vehicle_id"))
	ctx := c.Request.Context()

	var (
		results []model.Sale
		err     error
	)

	switch {
	case claims.IsAdmin() && vehicleID != "":
		results, err = h.service.ListByVehicle(ctx, vehicleID)
	case claims.IsAdmin():
		limit := parseLimit(c.Query("limit"), 50)
		offset := parseOffset(c.Query("offset"))
		results, err = h.service.ListAll(ctx, limit, offset)
	case claims.CPF == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "no buyer tax id bound to token"})
		return
	case vehicleID != "":
		var all []model.Sale
		all, err = h.service.ListByVehicle(ctx, vehicleID)
		if err == nil {
			cpf := sales.NormalizeTaxID(claims.CPF)
			for _, sale := range all {
				if sale.BuyerTaxID == cpf {
					results = append(results, sale)
				}
			}
		}
	default:
		results, err = h.service.ListByTaxID(ctx, claims.CPF)
	}

	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to list sales", zap.Error(err))
			c.JSON(status, gin.H{"error": "failed to list sales"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if results == nil {
		results = []model.Sale{}
	}

	c.JSON(http.StatusOK, gin.H{"sales": results, "total": len(results)})
}

// paymentCallbackRequest mirrors the payment provider's callback shape, which
// follows the same Portuguese field convention as the outbound notification.
type paymentCallbackRequest struct {
	CodigoPagamento string `json:"codigoPagamento" binding:"required"`
	Status          string `json:"status" binding:"required,oneof=aprovado rejeitado"`
}

func (h *SaleHandler) PaymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload", "details": err.Error()})
		return
	}

	outcome := sales.OutcomeRejected
	if req.Status == "aprovado" {
		outcome = sales.OutcomeApproved
	}

	sale, err := h.service.ResolvePayment(c.Request.Context(), req.CodigoPagamento, outcome)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to resolve payment", zap.Error(err))
			c.JSON(status, gin.H{"error": "failed to resolve payment"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sale)
}

// WebhookLogs returns the delivery-attempt history for one sale, oldest
// first. Admin only; useful when chasing down a partner-side delivery issue.
func (h *SaleHandler) WebhookLogs(c *gin.Context) {
	claims := middleware.UserFromContext(c)
	if claims == nil || !claims.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}

	if _, err := h.service.GetByID(c.Request.Context(), saleID); err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to get sale", zap.Error(err))
			c.JSON(status, gin.H{"error": "failed to get sale"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	logs, err := h.logs.ListBySale(c.Request.Context(), saleID)
	if err != nil {
		h.logger.Error("failed to list webhook logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list webhook logs"})
		return
	}
	if logs == nil {
		logs = []model.WebhookLog{}
	}

	c.JSON(http.StatusOK, gin.H{"attempts": logs, "total": len(logs)})
}

// ProcessWebhooks kicks one reconciliation pass without waiting for the
// scheduler's next tick.
func (h *SaleHandler) ProcessWebhooks(c *gin.Context) {
	go func() {
		if err := h.sweeper.RunOnce(context.Background()); err != nil {
			h.logger.Error("manual reconciliation failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "reconciliation started"})
}
