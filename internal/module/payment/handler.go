package payment

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/creditlab/payment-service/internal/utils/errors"
	"github.com/creditlab/payment-service/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles payment HTTP requests.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers payment routes on an authenticated group.
// adminOnly guards the cross-user listing; transitions guards the
// lifecycle endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly, transitions gin.HandlerFunc) {
	rg.POST("", h.CreatePayment)
	rg.POST("/checkout", h.CreateCheckout)
	rg.GET("", adminOnly, h.ListPayments)
	rg.GET("/:id", h.GetPayment)
	rg.GET("/user/:userId", h.ListUserPayments)
	rg.POST("/:id/confirm", transitions, h.ConfirmPayment)
	rg.POST("/:id/fail", transitions, h.FailPayment)
	rg.POST("/:id/refund", transitions, h.RefundPayment)
}

// CreateCheckout handles POST /payments/checkout.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("bundle is required"))
		return
	}

	resp, err := h.svc.CreateCheckoutSession(c.Request.Context(), middleware.GetUserID(c), req.Bundle)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreatePayment handles POST /payments.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest("Missing required fields"))
		return
	}

	resp, err := h.svc.CreatePayment(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListPayments handles GET /payments. Admin only.
func (h *Handler) ListPayments(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.respondError(c, apperrors.BadRequest("invalid query parameters"))
		return
	}

	resp, err := h.svc.ListPayments(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayment handles GET /payments/:id.
func (h *Handler) GetPayment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	payment, err := h.svc.GetPayment(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListUserPayments handles GET /payments/user/:userId.
func (h *Handler) ListUserPayments(c *gin.Context) {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.respondError(c, apperrors.BadRequest("invalid query parameters"))
		return
	}

	resp, err := h.svc.ListUserPayments(c.Request.Context(), principalFrom(c), userID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmPayment handles POST /payments/:id/confirm.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	h.transition(c, h.svc.Confirm, "Payment confirmed successfully")
}

// FailPayment handles POST /payments/:id/fail.
func (h *Handler) FailPayment(c *gin.Context) {
	h.transition(c, h.svc.Fail, "Payment marked as FAILED")
}

// RefundPayment handles POST /payments/:id/refund.
func (h *Handler) RefundPayment(c *gin.Context) {
	h.transition(c, h.svc.Refund, "Payment refunded successfully")
}

type transitionFunc func(ctx context.Context, p Principal, id uuid.UUID) (*Payment, error)

func (h *Handler) transition(c *gin.Context, op transitionFunc, message string) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	payment, err := op(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{Message: message, Payment: payment})
}

func principalFrom(c *gin.Context) Principal {
	return Principal{
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid " + name)
	}
	return id, nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	h.logger.Error("unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, apperrors.Internal("internal server error", err).ToResponse())
}
